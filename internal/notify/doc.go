// Package notify provides status listeners for the security controller.
package notify
