// Command firecracker-bazel builds Firecracker in release mode and stages the
// firecracker and jailer binaries as a Bazel override repository.
package main

import "github.com/oshokin/firecracker-bazel/cmd/firecracker-bazel/cmd"

func main() {
	cmd.Execute()
}
