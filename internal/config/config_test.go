package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and rejected values.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Empty settings get every default.
	cfg := new(Config)
	require.NoError(t, Validate(cfg))
	require.Equal(t, Default(), cfg)

	// Blank build command.
	cfg = &Config{BuildCommand: "   "}
	require.ErrorIs(t, Validate(cfg), errBuildCommandRequired)

	// Absolute output directory.
	cfg = &Config{OutputDir: "/build"}
	require.ErrorIs(t, Validate(cfg), errAbsoluteOutputDir)

	// Bad repository name.
	cfg = &Config{Repository: "fire cracker"}
	require.ErrorIs(t, Validate(cfg), errInvalidRepository)

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")

	settings := Default()
	settings.Target = "aarch64-unknown-linux-musl"
	settings.Suffix = "-x"

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings, loaded)
}

// TestLoadPartialFile ensures fields missing from the file fall back to defaults.
func TestLoadPartialFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("destination: /srv/fc\n"), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/srv/fc", loaded.Destination)
	require.Equal(t, DefaultSuffix, loaded.Suffix)
	require.Equal(t, DefaultBuildCommand, loaded.BuildCommand)
}

// TestLoadMissingFile reports the read failure.
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestOverrides covers set, empty and unset environment variables.
// Not parallel: it mutates the process environment.
func TestOverrides(t *testing.T) {
	t.Setenv("FIRECRACKER_BAZEL_DESTINATION", "/tmp/out")
	t.Setenv("FIRECRACKER_BAZEL_SUFFIX", "")

	o, err := LoadOverrides()
	require.NoError(t, err)
	require.Equal(t, "/tmp/out", o.Destination)
	require.Empty(t, o.Suffix)

	cfg := Default()
	o.Apply(cfg)
	require.Equal(t, "/tmp/out", cfg.Destination)
	require.Equal(t, DefaultSuffix, cfg.Suffix)

	t.Setenv("FIRECRACKER_BAZEL_SUFFIX", "-x")

	o, err = LoadOverrides()
	require.NoError(t, err)

	o.Apply(cfg)
	require.Equal(t, "-x", cfg.Suffix)
}
