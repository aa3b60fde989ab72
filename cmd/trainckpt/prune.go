package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPruneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Apply the retention policy now",
		Long: `Delete every checkpoint outside the highest --max-checkpoints by
(epoch, batch) and repoint the latest marker.`,
		Example: `  trainckpt prune --max-checkpoints 2`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager(cmd)
			if err != nil {
				return err
			}

			deleted, err := mgr.Prune()
			if err != nil {
				return err
			}
			p := printer(cmd)
			if deleted == 0 {
				p.Dim("Nothing to prune")
				return nil
			}
			p.Success(fmt.Sprintf("Deleted %d checkpoint(s), keeping at most %d", deleted, mgr.MaxCheckpoints()))
			return nil
		},
	}
}
