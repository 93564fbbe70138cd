package artifact

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

const (
	// Firecracker is the VMM binary name.
	Firecracker = "firecracker"
	// Jailer is the jailer binary name.
	Jailer = "jailer"

	// releaseDir is the profile directory the build tool writes release outputs to.
	releaseDir = "release"
)

// ErrUnsupportedArch is returned when no target triple is known for the host architecture.
var ErrUnsupportedArch = errors.New("unsupported architecture")

// hostTargets maps GOARCH values to the triples the release build produces.
//
//nolint:gochecknoglobals // Read-only lookup table.
var hostTargets = map[string]string{
	"amd64": "x86_64-unknown-linux-musl",
	"arm64": "aarch64-unknown-linux-musl",
}

// Names returns the staged binaries in a fixed order.
func Names() []string {
	return []string{Firecracker, Jailer}
}

// TargetFor returns the target triple used for the given GOARCH.
func TargetFor(goarch string) (string, error) {
	target, ok := hostTargets[goarch]
	if !ok {
		return "", fmt.Errorf("%s: %w", goarch, ErrUnsupportedArch)
	}

	return target, nil
}

// HostTarget returns the target triple of the running machine.
func HostTarget() (string, error) {
	return TargetFor(runtime.GOARCH)
}

// SourcePath returns where the release build leaves the named binary.
func SourcePath(projectRoot, outputDir, target, name string) string {
	return filepath.Join(projectRoot, outputDir, target, releaseDir, name)
}

// StagedName returns the file name of a binary inside the destination.
func StagedName(name, suffix string) string {
	return name + suffix
}
