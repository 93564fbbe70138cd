// Package build runs the external release build that produces the binaries to stage.
package build
