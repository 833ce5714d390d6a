// Package security implements the alarm controller of the home security system.
//
// The Controller combines three signals (arming status, sensor activations
// and camera cat detection) into a single alarm status. Transitions are
// expressed as an ordered decision table (see rules.go); every public
// operation runs under one lock, persists its effects through the sensor
// store and the optional state repository before touching memory, and then
// notifies registered StatusListeners synchronously.
package security
