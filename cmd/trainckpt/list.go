package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List retained checkpoints, highest progress first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager(cmd)
			if err != nil {
				return err
			}

			mds, err := mgr.List()
			if err != nil {
				return err
			}
			p := printer(cmd)
			if len(mds) == 0 {
				p.Dim(fmt.Sprintf("No checkpoints in %s", a.cfg.Checkpoint.Directory))
				return nil
			}

			// List is ordered highest first, so the first entry is the latest
			fmt.Fprintln(cmd.OutOrStdout(), p.CheckpointTable(mds, mds[0].ID, time.Now()))
			p.Dim(fmt.Sprintf("%d of at most %d retained in %s", len(mds), mgr.MaxCheckpoints(), a.cfg.Checkpoint.Directory))
			corrupt := 0
			for _, md := range mds {
				if md.Corrupt {
					corrupt++
				}
			}
			if corrupt > 0 {
				p.Warning(fmt.Sprintf("%d checkpoint(s) have corrupt metadata; run verify or delete them", corrupt))
			}
			return nil
		},
	}
}
