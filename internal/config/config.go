package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the staging settings that may be kept in a YAML file.
type Config struct {
	// BuildCommand is the release build invocation, split with shell quoting rules.
	BuildCommand string `yaml:"build_command"`
	// OutputDir is the build output directory relative to the project root.
	OutputDir string `yaml:"output_dir"`
	// Target is the compilation target triple. Empty means the host architecture.
	Target string `yaml:"target,omitempty"`
	// Destination is the directory populated as the override repository.
	Destination string `yaml:"destination"`
	// Suffix is appended to every staged binary name.
	Suffix string `yaml:"suffix"`
	// Repository is the external repository name used in the override flag.
	Repository string `yaml:"repository"`
}

// Overrides are the environment-provided values that win over the settings file.
// An empty variable is treated the same as an unset one.
type Overrides struct {
	// Destination overrides Config.Destination.
	Destination string `env:"FIRECRACKER_BAZEL_DESTINATION"`
	// Suffix overrides Config.Suffix.
	Suffix string `env:"FIRECRACKER_BAZEL_SUFFIX"`
}

const (
	// DefaultConfigFilename is the settings file written by `config init`.
	DefaultConfigFilename = "firecracker-bazel.yaml"

	// DefaultDestination is where binaries are staged when nothing overrides it.
	DefaultDestination = "/tmp/firecracker-bazel"

	// DefaultSuffix tags staged binaries with the release they were built from.
	// It is an ordinary default and carries no meaning beyond being appended to file names.
	DefaultSuffix = "-v1.4.0-dev"

	// DefaultBuildCommand builds Firecracker and the jailer in release mode.
	DefaultBuildCommand = "tools/devtool -y build --release"

	// DefaultOutputDir is where the build tool leaves per-target outputs.
	DefaultOutputDir = "build/cargo_target"

	// DefaultRepository is the external repository name consumers depend on.
	DefaultRepository = "firecracker"

	// DefaultFilePermissions is used for the settings file.
	DefaultFilePermissions = 0o644
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBuildCommandRequired is returned when the build command is blank.
	errBuildCommandRequired = errors.New("build command must be provided")
	// errInvalidRepository is returned for names Bazel would not accept as a repository.
	errInvalidRepository = errors.New("invalid repository name")
	// errAbsoluteOutputDir is returned when the output directory escapes the project root.
	errAbsoluteOutputDir = errors.New("output directory must be relative to the project root")

	repositoryNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]*$`)
)

// Default returns settings with every field set to its built-in default.
// Target is left empty so the host architecture is used.
func Default() *Config {
	return &Config{
		BuildCommand: DefaultBuildCommand,
		OutputDir:    DefaultOutputDir,
		Destination:  DefaultDestination,
		Suffix:       DefaultSuffix,
		Repository:   DefaultRepository,
	}
}

// Load reads settings from path, fills missing fields with defaults and validates them.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to path in YAML format.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills blank fields with defaults and checks the rest.
// Destination and Suffix are checked by the packager once overrides are applied.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.BuildCommand == "" {
		cfg.BuildCommand = DefaultBuildCommand
	}

	if strings.TrimSpace(cfg.BuildCommand) == "" {
		return errBuildCommandRequired
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}

	if filepath.IsAbs(cfg.OutputDir) {
		return fmt.Errorf("%s: %w", cfg.OutputDir, errAbsoluteOutputDir)
	}

	if cfg.Destination == "" {
		cfg.Destination = DefaultDestination
	}

	if cfg.Suffix == "" {
		cfg.Suffix = DefaultSuffix
	}

	if cfg.Repository == "" {
		cfg.Repository = DefaultRepository
	}

	if !repositoryNamePattern.MatchString(cfg.Repository) {
		return fmt.Errorf("%q: %w", cfg.Repository, errInvalidRepository)
	}

	return nil
}

// LoadOverrides reads the destination and suffix overrides from the environment.
func LoadOverrides() (*Overrides, error) {
	var o Overrides
	if err := env.Parse(&o); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return &o, nil
}

// Apply copies every non-empty override into cfg.
func (o *Overrides) Apply(cfg *Config) {
	if o == nil || cfg == nil {
		return
	}

	if o.Destination != "" {
		cfg.Destination = o.Destination
	}

	if o.Suffix != "" {
		cfg.Suffix = o.Suffix
	}
}
