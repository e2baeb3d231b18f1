// Package config provides configuration structures and utilities for nsetinspect.
// It defines the decoding, classification and report options, the optional
// .nsetinspect YAML file with per-registry overrides, and the XDG locations
// used for the inspection history.
package config
