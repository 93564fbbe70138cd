package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oshokin/firecracker-bazel/internal/config"
	"github.com/oshokin/firecracker-bazel/internal/logger"
	"github.com/oshokin/firecracker-bazel/internal/service/packager"
	"github.com/oshokin/firecracker-bazel/internal/version"
)

var (
	// configPath to the optional settings YAML file.
	configPath string
	// projectRoot is the Firecracker checkout to build.
	projectRoot string
	// logLevel selects the minimum level of log messages.
	logLevel string
	// showProgress enables copy progress bars.
	showProgress bool
	// noColor disables the coloured completion banner.
	noColor bool

	errUnknownLogLevel = errors.New("unknown log level")

	// rootCmd builds the project and stages the binaries.
	rootCmd = &cobra.Command{
		Use:   "firecracker-bazel",
		Short: "Stage Firecracker release binaries as a Bazel override repository",
		Long: `Runs the Firecracker release build and copies the firecracker and jailer
binaries into a directory containing WORKSPACE and BUILD files, so a Bazel
workspace can pick them up with --override_repository.

The destination and the file name suffix are taken from
FIRECRACKER_BAZEL_DESTINATION and FIRECRACKER_BAZEL_SUFFIX when set,
otherwise from the settings file, otherwise from built-in defaults.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			lvl, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("%q: %w", logLevel, errUnknownLogLevel)
			}

			logger.SetLevel(lvl)

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling; cancelling stops the build tool.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options, err := loadOptions()
			if err != nil {
				return err
			}

			options.Stdout = cmd.OutOrStdout()
			options.NoColor = !colorEnabled(options.Stdout, noColor)

			return packager.Run(ctx, options)
		},
	}
)

// loadOptions merges defaults, the optional settings file and the environment.
func loadOptions() (*packager.Options, error) {
	cfg := config.Default()

	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}

	overrides, err := config.LoadOverrides()
	if err != nil {
		return nil, err
	}

	overrides.Apply(cfg)

	return &packager.Options{
		ProjectRoot:  projectRoot,
		Destination:  cfg.Destination,
		Suffix:       cfg.Suffix,
		BuildCommand: cfg.BuildCommand,
		OutputDir:    cfg.OutputDir,
		Target:       cfg.Target,
		Repository:   cfg.Repository,
		Progress:     showProgress,
		NoColor:      noColor,
	}, nil
}

// colorEnabled reports whether the banner may carry ANSI colours.
func colorEnabled(w io.Writer, disabled bool) bool {
	if disabled {
		return false
	}

	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd()))
}

// ExitCode maps a run error to the process exit status.
// A failed build tool passes its own status through; anything else is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode()
	}

	return 1
}

// Run executes the CLI with args and returns the exit status.
func Run(args []string) int {
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	if err != nil {
		logger.ErrorKV(context.Background(), "Staging failed", "error", err)
	}

	logger.Sync()

	return ExitCode(err)
}

// Execute runs the CLI and exits with the status of the first failing step.
func Execute() {
	os.Exit(Run(os.Args[1:]))
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	version.AttachCobraVersionCommand(rootCmd)

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to an optional settings file")
	rootCmd.Flags().StringVarP(&projectRoot, "project-root", "C", ".", "Firecracker checkout to build")
	rootCmd.Flags().BoolVar(&showProgress, "progress", false, "show copy progress on stderr")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable coloured output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
}
