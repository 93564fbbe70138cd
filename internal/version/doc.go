// Package version exposes build metadata injected with -ldflags -X.
package version
