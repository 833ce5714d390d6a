// Package alarm contains core domain types for the home security controller.
//
// It defines sensors and their identity, the arming and alarm status enums,
// and State, a point-in-time snapshot of the controller with Clone helpers to
// avoid leaking internal references.
package alarm
