// Package config defines the staging settings, their built-in defaults and
// the environment overrides for the destination directory and binary suffix.
//
// Settings live in an optional YAML file; FIRECRACKER_BAZEL_DESTINATION and
// FIRECRACKER_BAZEL_SUFFIX take precedence over it when non-empty.
package config
