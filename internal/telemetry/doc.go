// Package telemetry sets up OpenTelemetry tracing for catpoint commands.
package telemetry
