// Package bazel produces the files that let Bazel treat a plain directory as
// an external repository, and the flag that points a workspace at it.
//
// The BUILD file is checked by running it through a Starlark interpreter with
// a stub exports_files rule before it is written.
package bazel
