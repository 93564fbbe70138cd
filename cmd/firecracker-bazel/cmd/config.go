package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oshokin/firecracker-bazel/internal/config"
)

var (
	// configCmd groups settings file helpers.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the settings file",
	}

	// configInitCmd writes the built-in defaults to a settings file.
	configInitCmd = &cobra.Command{
		Use:   "init [path]",
		Short: "Write a settings file with the default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigFilename
			if len(args) > 0 {
				path = args[0]
			}

			if err := config.Save(path, config.Default()); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Settings written to %s\n", path)

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
