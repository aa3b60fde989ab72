package main

import (
	"errors"

	"github.com/spf13/cobra"
	"trainckpt/pkg/checkpoint"
)

func newShowCmd(a *app) *cobra.Command {
	var (
		epoch int
		at    string
	)

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a checkpoint's metrics and optimizer state",
		Long: `Show a checkpoint's metrics and optimizer state.

Without arguments the highest retained checkpoint is shown. A checkpoint
can instead be selected by ID (or file path), by epoch, or by the time it
was created.`,
		Example: `  trainckpt show
  trainckpt show ckpt-e000005-b00000300-20261017T101500.000000000Z
  trainckpt show --epoch 5
  trainckpt show --at 2026-10-17T10:15:00Z`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selectors := 0
			if len(args) == 1 {
				selectors++
			}
			if cmd.Flags().Changed("epoch") {
				selectors++
			}
			if cmd.Flags().Changed("at") {
				selectors++
			}
			if selectors > 1 {
				return errors.New("give at most one of an ID, --epoch or --at")
			}

			mgr, err := a.manager(cmd)
			if err != nil {
				return err
			}

			var cp *checkpoint.Checkpoint
			switch {
			case len(args) == 1:
				cp, err = mgr.LoadID(args[0])
			case cmd.Flags().Changed("epoch"):
				cp, err = mgr.LoadEpoch(epoch)
			case cmd.Flags().Changed("at"):
				if _, ok := checkpoint.ParseTimestamp(at, nil); !ok {
					return errors.New("--at must be an ISO-8601 timestamp")
				}
				cp, err = mgr.LoadNearest(at)
			default:
				cp, err = mgr.Load()
			}
			if err != nil {
				return err
			}
			if cp == nil {
				return errors.New("no matching checkpoint")
			}

			mds, err := mgr.List()
			if err != nil {
				return err
			}
			printer(cmd).Checkpoint(cp, len(mds) > 0 && mds[0].ID == cp.Metadata.ID)
			return nil
		},
	}

	cmd.Flags().IntVarP(&epoch, "epoch", "e", 0, "show the highest checkpoint within this epoch")
	cmd.Flags().StringVar(&at, "at", "", "show the checkpoint created closest to this time")
	return cmd
}
