package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"trainckpt/pkg/config"
)

const defaultConfigPath = ".trainckpt.yaml"

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}
	configCmd.AddCommand(newConfigInitCmd(a), newConfigShowCmd(a), newConfigValidateCmd(a))
	return configCmd
}

func newConfigInitCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Long: `Write a configuration file with default values.

The file is created as '.trainckpt.yaml' in the current directory unless a
different path is given with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configFile
			if path == "" {
				path = defaultConfigPath
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", path)
			}

			cfg := config.DefaultConfig()
			cfg.MergeCommandLineFlags(a.flagOverrides(cmd))
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return err
			}

			p := printer(cmd)
			p.Success("Configuration file created: " + path)
			p.Dim("Run 'trainckpt config validate' after editing it")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			data, err := yaml.Marshal(a.cfg)
			if err != nil {
				return fmt.Errorf("failed to format configuration: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}

func newConfigValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Long: `Load configuration from every source and report all problems at once.

This command checks:
  - YAML syntax
  - Numeric environment variables
  - Value ranges
  - Timezone and log level names`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := printer(cmd)
			cfg, err := config.Load(a.configFile, a.flagOverrides(cmd))
			if err != nil {
				p.Error("Configuration has errors", nil)
				for _, line := range strings.Split(unwrapAll(err).Error(), "\n") {
					fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", line)
				}
				return errors.New("invalid configuration")
			}

			p.Success("Configuration is valid")
			p.Info("Directory", cfg.Checkpoint.Directory)
			p.Info("Max checkpoints", fmt.Sprint(cfg.Checkpoint.MaxCheckpoints))
			p.Info("Batches per epoch", fmt.Sprint(cfg.Checkpoint.BatchesPerEpoch))
			p.Info("Log level", cfg.Logging.Level)
			return nil
		},
	}
}

// unwrapAll strips single-error wrapping down to the joined list, if any
func unwrapAll(err error) error {
	for {
		if _, ok := err.(interface{ Unwrap() []error }); ok {
			return err
		}
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
