// Package console wires configuration, storage, the camera and the security
// controller together and implements the catpoint terminal commands.
package console
