package ui

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// EpochProgress draws a progress bar over the batches of one epoch
type EpochProgress struct {
	bar   *progressbar.ProgressBar
	epoch int
}

// NewEpochProgress starts a bar for epoch with batchesPerEpoch steps,
// already advanced to startBatch when resuming mid-epoch
func NewEpochProgress(w io.Writer, epoch, batchesPerEpoch, startBatch int) *EpochProgress {
	bar := progressbar.NewOptions(batchesPerEpoch,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(fmt.Sprintf("Epoch %d", epoch)),
		progressbar.OptionEnableColorCodes(IsTerminal(w)),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("batches"),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
		progressbar.OptionSetPredictTime(false),
	)
	if startBatch > 0 {
		_ = bar.Set(startBatch)
	}
	return &EpochProgress{bar: bar, epoch: epoch}
}

// Step records a finished batch and its loss
func (p *EpochProgress) Step(loss float64) {
	p.bar.Describe(fmt.Sprintf("Epoch %d loss=%s", p.epoch, formatLoss(loss)))
	_ = p.bar.Add(1)
}

// Finish completes the bar and ends its line
func (p *EpochProgress) Finish() {
	_ = p.bar.Finish()
}
