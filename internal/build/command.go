package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"mvdan.cc/sh/v3/shell"

	"github.com/oshokin/firecracker-bazel/internal/logger"
)

// Builder produces the release binaries inside a project root.
type Builder interface {
	Build(ctx context.Context, projectRoot string) error
}

// errEmptyCommand is returned when the command line has no words after splitting.
var errEmptyCommand = errors.New("empty build command")

// Command runs an external build tool given as a single command line.
// The line is split with POSIX shell quoting rules and $VAR references are
// expanded from the environment; no shell is started.
type Command struct {
	// Line is the command line, e.g. "tools/devtool -y build --release".
	Line string
	// Stdout and Stderr receive the tool's output unmodified; they default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// NewCommand returns a Command writing to the process streams.
func NewCommand(line string) *Command {
	return &Command{
		Line:   line,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Args splits the command line into argv.
func (c *Command) Args() ([]string, error) {
	args, err := shell.Fields(c.Line, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("parse build command %q: %w", c.Line, err)
	}

	if len(args) == 0 {
		return nil, errEmptyCommand
	}

	return args, nil
}

// Build runs the command with projectRoot as working directory.
// A relative executable path is resolved against projectRoot.
func (c *Command) Build(ctx context.Context, projectRoot string) error {
	args, err := c.Args()
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Running release build", "command", args, "dir", projectRoot)

	//nolint:gosec // Running the configured build tool is the whole point.
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = projectRoot
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	if err = cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with status %d: %w", args[0], exitErr.ExitCode(), err)
		}

		return fmt.Errorf("run %s: %w", args[0], err)
	}

	return nil
}
