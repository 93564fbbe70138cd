// Package integration runs the packager end to end against a scripted build tool.
package integration
