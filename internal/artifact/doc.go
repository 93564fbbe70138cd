// Package artifact knows where the release build leaves the Firecracker and
// jailer binaries and copies them into the staging directory.
package artifact
