package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	ckerrors "trainckpt/pkg/errors"
)

func newDeleteCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one checkpoint",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager(cmd)
			if err != nil {
				return err
			}

			md, err := mgr.Store().Stat(args[0])
			switch {
			case errors.Is(err, ckerrors.ErrNotFound) && force:
				printer(cmd).Dim("Checkpoint not found, nothing to delete")
				return nil
			case errors.Is(err, ckerrors.ErrCorrupt) && force:
				// Unreadable metadata can still be removed
			case err != nil:
				return err
			}

			id := args[0]
			if md.ID != "" {
				id = md.ID
			}
			if err := mgr.Delete(id); err != nil {
				return err
			}
			printer(cmd).Success(fmt.Sprintf("Deleted %s", id))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not fail on missing or unreadable checkpoints")
	return cmd
}
