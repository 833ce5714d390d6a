// Package state implements persistence for the controller State.
//
// The FileRepository stores and loads the arming status, alarm status and
// the last cat detection as YAML on disk and exposes a Repository interface
// that the security controller depends on.
package state
