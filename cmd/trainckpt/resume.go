package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"trainckpt/pkg/resume"
)

func newResumePointCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resume-point",
		Short: "Print where an interrupted run would continue",
		Long: `Print the (epoch, batch) a training run would continue from, based on
the highest retained checkpoint. Without --batches-per-epoch the epoch
length is unknown and the run continues at the next batch of the same
epoch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := a.manager(cmd)
			if err != nil {
				return err
			}

			md, err := mgr.Latest()
			if err != nil {
				return err
			}
			p := printer(cmd)
			if md == nil {
				p.Info("Resume", "epoch 0, batch 0 (no checkpoint)")
				return nil
			}

			bpe := a.cfg.Checkpoint.BatchesPerEpoch
			point := resume.Calculate(md.Epoch, md.Batch, bpe)
			p.Info("Checkpoint", md.ID)
			p.Info("Saved at", fmt.Sprintf("epoch %d, batch %d", md.Epoch, md.Batch))
			if bpe > 0 {
				p.Info("Batches per epoch", strconv.Itoa(bpe))
			} else {
				p.Info("Batches per epoch", "unknown")
			}
			resumeAt := fmt.Sprintf("epoch %d, batch %d", point.Epoch, point.Batch)
			if point.IsNewEpoch {
				resumeAt += " (new epoch)"
			}
			p.Info("Resume", resumeAt)
			return nil
		},
	}
}
