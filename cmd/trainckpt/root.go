package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
	"trainckpt/pkg/checkpoint"
	"trainckpt/pkg/config"
	"trainckpt/pkg/logger"
	"trainckpt/pkg/ui"
)

var (
	// Version information, set at build time
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// app holds global flag values and what is built from them
type app struct {
	configFile      string
	dir             string
	maxCheckpoints  int
	batchesPerEpoch int
	timezone        string
	logLevel        string

	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "trainckpt",
		Short: "Inspect and maintain training checkpoints",
		Long: `trainckpt works on a checkpoint directory written by a training run.

It lists retained checkpoints, shows their metrics and optimizer state,
applies the retention policy, deletes checkpoints and reports where an
interrupted run would resume.

Configuration is read from (highest priority first):
  - Command line flags
  - Environment variables (TRAINCKPT_*)
  - .env files
  - Configuration file (.trainckpt.yaml, ~/.config/trainckpt/config.yaml)
  - Default values`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "config file (default is ./.trainckpt.yaml)")
	flags.StringVarP(&a.dir, "dir", "d", "", "checkpoint directory (default ./checkpoints)")
	flags.IntVarP(&a.maxCheckpoints, "max-checkpoints", "m", 0, "number of checkpoints to retain (default 5)")
	flags.IntVar(&a.batchesPerEpoch, "batches-per-epoch", 0, "batches in one epoch, 0 if unknown")
	flags.StringVar(&a.timezone, "timezone", "", "timezone for timestamps without an offset (default local)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")

	rootCmd.SetVersionTemplate(`trainckpt {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newPruneCmd(a),
		newDeleteCmd(a),
		newResumePointCmd(a),
		newVerifyCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// flagOverrides returns only the global flags the user set
func (a *app) flagOverrides(cmd *cobra.Command) map[string]interface{} {
	overrides := make(map[string]interface{})
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}
	if changed("dir") {
		overrides["dir"] = a.dir
	}
	if changed("max-checkpoints") {
		overrides["max-checkpoints"] = a.maxCheckpoints
	}
	if changed("batches-per-epoch") {
		overrides["batches-per-epoch"] = a.batchesPerEpoch
	}
	if changed("timezone") {
		overrides["timezone"] = a.timezone
	}
	if changed("log-level") {
		overrides["log-level"] = a.logLevel
	}
	return overrides
}

// load resolves configuration and sets up logging
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, a.flagOverrides(cmd))
	if err != nil {
		return err
	}
	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = log.WithField("command", cmd.Name())
	return nil
}

// manager loads configuration and opens the checkpoint directory
func (a *app) manager(cmd *cobra.Command) (*checkpoint.Manager, error) {
	if err := a.load(cmd); err != nil {
		return nil, err
	}
	loc, err := a.cfg.Checkpoint.Location()
	if err != nil {
		return nil, err
	}
	return checkpoint.NewManager(checkpoint.Config{
		Directory:      a.cfg.Checkpoint.Directory,
		MaxCheckpoints: a.cfg.Checkpoint.MaxCheckpoints,
		Location:       loc,
	}, checkpoint.WithLogger(a.log))
}

func printer(cmd *cobra.Command) *ui.Printer {
	return ui.NewPrinter(cmd.OutOrStdout())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			p := printer(cmd)
			p.Logo()
			p.Info("Version", version)
			p.Info("Commit", gitCommit)
			p.Info("Built", buildDate)
			p.Info("Go", runtime.Version())
			p.Info("Checkpoint format", fmt.Sprintf("v%d", checkpoint.FormatVersion))
		},
	}
}
