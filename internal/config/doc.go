// Package config defines catpoint settings and provides helpers to load,
// validate and save them in YAML format.
//
// Every field can be overridden with a CATPOINT_* environment variable,
// for example CATPOINT_SENSOR_STORE_DRIVER=sqlite or CATPOINT_CAMERA_INBOX=/var/spool/catpoint.
package config
