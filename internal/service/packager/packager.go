package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/colorstring"

	"github.com/oshokin/firecracker-bazel/internal/artifact"
	"github.com/oshokin/firecracker-bazel/internal/bazel"
	"github.com/oshokin/firecracker-bazel/internal/build"
	"github.com/oshokin/firecracker-bazel/internal/config"
	"github.com/oshokin/firecracker-bazel/internal/logger"
)

// Options contains inputs for the packager entry point.
// Empty string fields fall back to the defaults in package config.
type Options struct {
	// ProjectRoot is the Firecracker checkout; every relative path is resolved against it.
	ProjectRoot string
	// Destination is the directory populated as the override repository.
	// A relative value is taken relative to ProjectRoot.
	Destination string
	// Suffix is appended to the staged binary names.
	Suffix string
	// BuildCommand is the release build invocation used when Builder is nil.
	BuildCommand string
	// Builder runs the release build. Nil means running BuildCommand.
	Builder build.Builder
	// OutputDir is the build output directory relative to ProjectRoot.
	OutputDir string
	// Target is the target triple. Empty means the host architecture.
	Target string
	// Repository is the external repository name used in the override flag.
	Repository string
	// Stdout receives the completion banner; defaults to os.Stdout.
	Stdout io.Writer
	// Progress shows a progress bar on stderr while copying.
	Progress bool
	// NoColor disables colours in the completion banner.
	NoColor bool
}

// Settings are the resolved, absolute values a run works with.
type Settings struct {
	// ProjectRoot is the absolute path of the checkout the build runs in.
	ProjectRoot string
	// Destination is the absolute path of the override repository.
	Destination string
	// Suffix is appended to the staged binary names.
	Suffix string
	// OutputDir is the build output directory relative to ProjectRoot.
	OutputDir string
	// Target is the target triple whose release outputs are staged.
	Target string
	// Repository is the external repository name used in the override flag.
	Repository string
}

var (
	// ErrBuildFailed is returned when the release build does not succeed.
	ErrBuildFailed = errors.New("build failed")
	// ErrIO is returned when the destination cannot be created or populated.
	ErrIO = errors.New("i/o error")
	// ErrInvalidOptions is returned when options cannot be resolved into settings.
	ErrInvalidOptions = errors.New("invalid options")
)

// packager stages release binaries into a Bazel override repository.
// It is unexported; callers use Run.
type packager struct {
	settings *Settings
	builder  build.Builder
	copier   *artifact.Copier
	stdout   io.Writer
	colorize colorstring.Colorize
}

// Run builds the project and stages the binaries.
// Steps run in order and the first failure aborts the run; the destination may
// be left partially populated.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "packager")

	pkg, err := newPackager(opts)
	if err != nil {
		return err
	}

	ctx = logger.WithKV(ctx, "destination", pkg.settings.Destination)

	return pkg.Run(ctx)
}

// Resolve turns options into settings, applying defaults.
func Resolve(opts *Options) (*Settings, error) {
	if opts == nil {
		opts = new(Options)
	}

	root, err := filepath.Abs(firstNonEmpty(opts.ProjectRoot, "."))
	if err != nil {
		return nil, fmt.Errorf("%w: project root: %w", ErrInvalidOptions, err)
	}

	s := &Settings{
		ProjectRoot: root,
		Destination: firstNonEmpty(opts.Destination, config.DefaultDestination),
		Suffix:      firstNonEmpty(opts.Suffix, config.DefaultSuffix),
		OutputDir:   firstNonEmpty(opts.OutputDir, config.DefaultOutputDir),
		Target:      opts.Target,
		Repository:  firstNonEmpty(opts.Repository, config.DefaultRepository),
	}

	if !filepath.IsAbs(s.Destination) {
		s.Destination = filepath.Join(root, s.Destination)
	}

	s.Destination = filepath.Clean(s.Destination)

	if strings.ContainsRune(s.Suffix, filepath.Separator) || strings.ContainsRune(s.Suffix, '/') {
		return nil, fmt.Errorf("%w: suffix %q contains a path separator", ErrInvalidOptions, s.Suffix)
	}

	if filepath.IsAbs(s.OutputDir) {
		return nil, fmt.Errorf("%w: output directory %q must be relative", ErrInvalidOptions, s.OutputDir)
	}

	if s.Target == "" {
		if s.Target, err = artifact.HostTarget(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
	}

	return s, nil
}

func newPackager(opts *Options) (*packager, error) {
	settings, err := Resolve(opts)
	if err != nil {
		return nil, err
	}

	if opts == nil {
		opts = new(Options)
	}

	builder := opts.Builder
	if builder == nil {
		builder = build.NewCommand(firstNonEmpty(opts.BuildCommand, config.DefaultBuildCommand))
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	return &packager{
		settings: settings,
		builder:  builder,
		copier:   &artifact.Copier{Progress: opts.Progress},
		stdout:   stdout,
		colorize: colorstring.Colorize{
			Colors:  colorstring.DefaultColors,
			Disable: opts.NoColor,
			Reset:   true,
		},
	}, nil
}

// Run executes the pipeline steps.
func (p *packager) Run(ctx context.Context) error {
	if err := p.build(ctx); err != nil {
		return err
	}

	if err := p.ensureDestination(ctx); err != nil {
		return err
	}

	if err := p.writeMarkers(ctx); err != nil {
		return err
	}

	if err := p.copyArtifacts(ctx); err != nil {
		return err
	}

	return p.report(ctx)
}

func (p *packager) build(ctx context.Context) error {
	logger.Info(ctx, "Building release binaries")

	if err := p.builder.Build(ctx, p.settings.ProjectRoot); err != nil {
		return fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	return nil
}

func (p *packager) ensureDestination(ctx context.Context) error {
	logger.Debug(ctx, "Creating destination directory")

	if err := os.MkdirAll(p.settings.Destination, 0o755); err != nil {
		return fmt.Errorf("%w: create destination: %w", ErrIO, err)
	}

	return nil
}

func (p *packager) writeMarkers(ctx context.Context) error {
	logger.Info(ctx, "Writing repository marker files")

	if err := bazel.WriteMarkers(p.settings.Destination, artifact.Names()); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	return nil
}

func (p *packager) copyArtifacts(ctx context.Context) error {
	names := artifact.Names()

	staged := make([]string, 0, len(names))
	for _, name := range names {
		staged = append(staged, artifact.StagedName(name, p.settings.Suffix))
	}

	p.warnIfRunning(ctx, staged)

	for i, name := range names {
		src := artifact.SourcePath(p.settings.ProjectRoot, p.settings.OutputDir, p.settings.Target, name)
		dst := filepath.Join(p.settings.Destination, staged[i])

		if err := p.copier.Copy(ctx, src, dst); err != nil {
			return fmt.Errorf("%w: stage %s: %w", ErrIO, name, err)
		}

		logger.InfoKV(ctx, "Staged artifact", "name", staged[i])
	}

	return nil
}

// warnIfRunning logs processes that execute a binary about to be overwritten.
func (p *packager) warnIfRunning(ctx context.Context, staged []string) {
	running, err := artifact.FindRunning(staged)
	if err != nil {
		logger.DebugKV(ctx, "Unable to list running processes", "error", err)

		return
	}

	for _, proc := range running {
		logger.WarnKV(ctx, "A staged binary is running and may not be replaceable",
			"pid", proc.PID, "executable", proc.Executable)
	}
}

func (p *packager) report(ctx context.Context) error {
	flag := bazel.OverrideFlag(p.settings.Repository, p.settings.Destination)

	var builder strings.Builder

	builder.WriteString(p.colorize.Color("[green][bold]Done![reset] Firecracker binaries are staged in "))
	builder.WriteString(p.settings.Destination)
	builder.WriteString("\n")
	builder.WriteString(p.colorize.Color("Pass the following flag to bazel to use them:"))
	builder.WriteString("\n  ")
	builder.WriteString(flag)
	builder.WriteString("\n")

	if _, err := io.WriteString(p.stdout, builder.String()); err != nil {
		return fmt.Errorf("%w: print summary: %w", ErrIO, err)
	}

	logger.InfoKV(ctx, "Packager completed successfully", "flag", flag)

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
