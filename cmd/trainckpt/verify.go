package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"trainckpt/internal/verify"
	"trainckpt/pkg/ratelimit"
)

func newVerifyCmd(a *app) *cobra.Command {
	var (
		workers int
		rate    int
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every retained checkpoint still loads",
		Long: `Read every retained checkpoint and confirm its payload decodes and
matches its checksum. Exits with an error if any checkpoint is corrupt.`,
		Example: `  trainckpt verify
  trainckpt verify --workers 8 --rate 20`,
		Args: cobra.NoArgs,
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
				p.Dim("No checkpoints in " + a.cfg.Checkpoint.Directory)
				return nil
			}

			ids := make([]string, len(mds))
			for i, md := range mds {
				ids[i] = md.ID
			}

			results, err := verify.Verify(cmd.Context(), mgr.Store(), ids, workers, ratelimit.PerSecond(rate), a.log)
			if err != nil {
				return err
			}

			failed := 0
			for _, result := range results {
				switch result.Status {
				case verify.StatusOK:
					p.Success(fmt.Sprintf("%s  %s parameters", result.Job.ID, humanize.Comma(int64(result.Params))))
				case verify.StatusMissing:
					p.Warning(fmt.Sprintf("%s  deleted while verifying", result.Job.ID))
				default:
					failed++
					p.Error(result.Job.ID, result.Error)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d checkpoint(s) failed verification", failed, len(results))
			}
			p.Info("Verified", fmt.Sprintf("%d checkpoint(s)", len(results)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "number of checkpoints read concurrently")
	cmd.Flags().IntVar(&rate, "rate", 0, "maximum checkpoints read per second, 0 for no limit")
	return cmd
}
