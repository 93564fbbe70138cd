package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/firecracker-bazel/internal/bazel"
	"github.com/oshokin/firecracker-bazel/internal/build"
	"github.com/oshokin/firecracker-bazel/internal/service/packager"
)

const (
	target = "x86_64-unknown-linux-musl"

	// devtool mimics the release build: it drops both binaries under build/cargo_target.
	devtool = `#!/bin/sh
set -eu
out="build/cargo_target/` + target + `/release"
mkdir -p "$out"
printf 'fc %s' "$*" > "$out/firecracker"
printf 'jailer %s' "$*" > "$out/jailer"
chmod +x "$out/firecracker" "$out/jailer"
`
)

// newProject creates a checkout whose tools/devtool runs the given script.
func newProject(t *testing.T, script string) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tools"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tools", "devtool"), []byte(script), 0o755))

	return root
}

func run(t *testing.T, root, destination string) (string, error) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var stdout, buildOutput bytes.Buffer

	err := packager.Run(ctx, &packager.Options{
		ProjectRoot: root,
		Destination: destination,
		Suffix:      "-x",
		Builder: &build.Command{
			Line:   "tools/devtool -y build --release",
			Stdout: &buildOutput,
			Stderr: &buildOutput,
		},
		Target:  target,
		Stdout:  &stdout,
		NoColor: true,
	})

	return stdout.String(), err
}

// TestPackager_StagesRepository runs the real build command and checks the staged repository.
func TestPackager_StagesRepository(t *testing.T) {
	t.Parallel()

	root := newProject(t, devtool)
	destination := filepath.Join(t.TempDir(), "out")

	stdout, err := run(t, root, destination)
	require.NoError(t, err)
	require.Contains(t, stdout, "--override_repository=firecracker="+destination)

	entries, err := os.ReadDir(destination)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	require.ElementsMatch(t, []string{"WORKSPACE", "BUILD", "firecracker-x", "jailer-x"}, names)

	fc, err := os.ReadFile(filepath.Join(destination, "firecracker-x"))
	require.NoError(t, err)
	require.Equal(t, "fc -y build --release", string(fc))

	buildFile, err := os.ReadFile(filepath.Join(destination, bazel.BuildFilename))
	require.NoError(t, err)
	require.NoError(t, bazel.VerifyExports(buildFile, []string{"firecracker", "jailer"}))

	// A second run leaves identical contents behind.
	_, err = run(t, root, destination)
	require.NoError(t, err)

	again, err := os.ReadFile(filepath.Join(destination, bazel.BuildFilename))
	require.NoError(t, err)
	require.Equal(t, buildFile, again)
}

// TestPackager_BuildFails leaves no destination behind.
func TestPackager_BuildFails(t *testing.T) {
	t.Parallel()

	root := newProject(t, "#!/bin/sh\necho 'error: linking failed' >&2\nexit 101\n")
	destination := filepath.Join(t.TempDir(), "out")

	_, err := run(t, root, destination)
	require.ErrorIs(t, err, packager.ErrBuildFailed)

	_, err = os.Stat(destination)
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestPackager_IncompleteBuild fails with an I/O error when the jailer was not built.
func TestPackager_IncompleteBuild(t *testing.T) {
	t.Parallel()

	script := "#!/bin/sh\nset -eu\nout=build/cargo_target/" + target + "/release\nmkdir -p $out\necho fc > $out/firecracker\n"
	root := newProject(t, script)

	_, err := run(t, root, filepath.Join(t.TempDir(), "out"))
	require.ErrorIs(t, err, packager.ErrIO)
	require.ErrorIs(t, err, os.ErrNotExist)
}
