// Package camera feeds camera snapshots into the security controller.
//
// A camera, or anything pretending to be one, drops JPEG, PNG or WebP files into an
// inbox directory. The Watcher notices new files, decodes and downsizes them
// and hands the image to a Processor.
package camera
