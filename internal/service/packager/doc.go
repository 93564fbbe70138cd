// Package packager builds Firecracker in release mode and stages the
// firecracker and jailer binaries into a directory Bazel can use through
// --override_repository.
//
// The run is a fixed sequence: build, create the destination, write the
// WORKSPACE and BUILD markers, copy the binaries with the configured suffix
// and print the override flag. The first failing step aborts the run and is
// reported as ErrBuildFailed or ErrIO.
package packager
