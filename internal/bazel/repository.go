package bazel

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
)

const (
	// WorkspaceFilename marks a directory as the root of an external repository.
	WorkspaceFilename = "WORKSPACE"
	// BuildFilename holds the package declaration of the repository root.
	BuildFilename = "BUILD"

	// markerFileMode is used for WORKSPACE and BUILD.
	markerFileMode os.FileMode = 0o644
)

var (
	// ErrUnexpectedExports is returned when a BUILD file exports something other than the expected names.
	ErrUnexpectedExports = errors.New("unexpected exported files")
	// errNoExports is returned when no file names are given.
	errNoExports = errors.New("at least one exported file is required")
)

// RenderWorkspace returns the WORKSPACE contents. The file only has to exist.
func RenderWorkspace() []byte {
	return []byte{}
}

// RenderBuild returns a BUILD file exporting exactly the given file names.
func RenderBuild(names []string) ([]byte, error) {
	if len(names) == 0 {
		return nil, errNoExports
	}

	quoted := make([]string, 0, len(names))
	for _, name := range names {
		quoted = append(quoted, strconv.Quote(name))
	}

	return []byte("exports_files([" + strings.Join(quoted, ", ") + "])\n"), nil
}

// Exports executes a BUILD file and returns the names passed to exports_files.
// Any other rule or a Starlark error makes the file invalid.
func Exports(src []byte) ([]string, error) {
	var exported []string

	exportsFiles := starlark.NewBuiltin("exports_files",
		func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
			var (
				srcs       *starlark.List
				visibility starlark.Value
			)

			if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "srcs", &srcs, "visibility?", &visibility); err != nil {
				return nil, err
			}

			for i := range srcs.Len() {
				name, ok := starlark.AsString(srcs.Index(i))
				if !ok {
					return nil, fmt.Errorf("%s: expected string, got %s", fn.Name(), srcs.Index(i).Type())
				}

				exported = append(exported, name)
			}

			return starlark.None, nil
		})

	thread := &starlark.Thread{Name: BuildFilename}
	predeclared := starlark.StringDict{"exports_files": exportsFiles}

	if _, err := starlark.ExecFile(thread, BuildFilename, src, predeclared); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", BuildFilename, err)
	}

	return exported, nil
}

// VerifyExports checks that src exports exactly names, in any order.
func VerifyExports(src []byte, names []string) error {
	got, err := Exports(src)
	if err != nil {
		return err
	}

	want := slices.Clone(names)
	slices.Sort(want)
	slices.Sort(got)

	if !slices.Equal(got, want) {
		return fmt.Errorf("%w: got %q, want %q", ErrUnexpectedExports, got, want)
	}

	return nil
}

// WriteMarkers (re)writes WORKSPACE and BUILD in dir so it can be used as an
// external repository exporting names. Existing files are replaced.
func WriteMarkers(dir string, names []string) error {
	build, err := RenderBuild(names)
	if err != nil {
		return err
	}

	if err = VerifyExports(build, names); err != nil {
		return err
	}

	if err = os.WriteFile(filepath.Join(dir, WorkspaceFilename), RenderWorkspace(), markerFileMode); err != nil {
		return fmt.Errorf("write %s: %w", WorkspaceFilename, err)
	}

	if err = os.WriteFile(filepath.Join(dir, BuildFilename), build, markerFileMode); err != nil {
		return fmt.Errorf("write %s: %w", BuildFilename, err)
	}

	return nil
}

// OverrideFlag returns the Bazel flag pointing repository at dir.
func OverrideFlag(repository, dir string) string {
	return "--override_repository=" + repository + "=" + dir
}
