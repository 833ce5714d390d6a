// Package vision holds image analyzers that decide whether a camera snapshot shows a cat.
package vision
