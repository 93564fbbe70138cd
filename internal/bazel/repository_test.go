package bazel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRenderBuild checks the declaration exports the literal names.
func TestRenderBuild(t *testing.T) {
	t.Parallel()

	build, err := RenderBuild([]string{"firecracker", "jailer"})
	require.NoError(t, err)
	require.Equal(t, "exports_files([\"firecracker\", \"jailer\"])\n", string(build))

	_, err = RenderBuild(nil)
	require.ErrorIs(t, err, errNoExports)
}

// TestExports evaluates BUILD sources with the stub rule.
func TestExports(t *testing.T) {
	t.Parallel()

	got, err := Exports([]byte(`exports_files(srcs = ["a"], visibility = ["//visibility:public"])`))
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, got)

	_, err = Exports([]byte(`cc_binary(name = "a")`))
	require.Error(t, err)

	_, err = Exports([]byte(`exports_files([1])`))
	require.Error(t, err)

	_, err = Exports([]byte(`exports_files(["a"`))
	require.Error(t, err)
}

// TestVerifyExports ignores order but not content.
func TestVerifyExports(t *testing.T) {
	t.Parallel()

	src := []byte(`exports_files(["jailer", "firecracker"])`)

	require.NoError(t, VerifyExports(src, []string{"firecracker", "jailer"}))
	require.ErrorIs(t, VerifyExports(src, []string{"firecracker"}), ErrUnexpectedExports)
}

// TestWriteMarkers writes both files and overwrites stale ones.
func TestWriteMarkers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, WorkspaceFilename), []byte("stale"), 0o600))

	names := []string{"firecracker", "jailer"}

	for range 2 {
		require.NoError(t, WriteMarkers(dir, names))
	}

	workspace, err := os.ReadFile(filepath.Join(dir, WorkspaceFilename))
	require.NoError(t, err)
	require.Empty(t, workspace)

	build, err := os.ReadFile(filepath.Join(dir, BuildFilename))
	require.NoError(t, err)
	require.NoError(t, VerifyExports(build, names))
}

// TestWriteMarkersMissingDir fails when the directory was not created.
func TestWriteMarkersMissingDir(t *testing.T) {
	t.Parallel()

	err := WriteMarkers(filepath.Join(t.TempDir(), "absent"), []string{"firecracker"})
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestOverrideFlag renders the flag consumers pass to bazel.
func TestOverrideFlag(t *testing.T) {
	t.Parallel()

	require.Equal(t, "--override_repository=firecracker=/tmp/out", OverrideFlag("firecracker", "/tmp/out"))
}
