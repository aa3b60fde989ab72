package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"trainckpt/pkg/checkpoint"
)

const (
	latestMark  = "*"
	corruptMark = "corrupt"
)

// CheckpointTable renders mds as a table, highest first as given. The row
// whose ID equals latestID is marked; ages are relative to now.
func (p *Printer) CheckpointTable(mds []checkpoint.Metadata, latestID string, now time.Time) string {
	latestRow := -1
	corruptRows := make(map[int]bool)
	rows := make([][]string, 0, len(mds))
	for i, md := range mds {
		mark := ""
		if md.ID == latestID {
			mark = latestMark
			latestRow = i
		}
		loss, size := formatLoss(md.Loss), humanize.Bytes(uint64(md.SizeBytes))
		if md.Corrupt {
			loss, size = corruptMark, "-"
			corruptRows[i] = true
		}
		rows = append(rows, []string{
			mark,
			md.ID,
			strconv.Itoa(md.Epoch),
			strconv.Itoa(md.Batch),
			loss,
			size,
			humanize.RelTime(md.CreatedAt, now, "ago", "from now"),
		})
	}

	border := lipgloss.HiddenBorder()
	if p.tty {
		border = lipgloss.RoundedBorder()
	}

	s := p.styles
	t := lgtable.New().
		Border(border).
		BorderStyle(s.border).
		Headers("", "ID", "EPOCH", "BATCH", "LOSS", "SIZE", "AGE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return s.header
			case corruptRows[row]:
				return s.err
			case row == latestRow:
				return s.latest
			case col >= 2 && col <= 5:
				return s.number
			}
			return s.cell
		})
	return t.String()
}

func formatLoss(loss float64) string {
	return strconv.FormatFloat(loss, 'g', 6, 64)
}

// Checkpoint prints a checkpoint's metadata and a summary of its state
func (p *Printer) Checkpoint(cp *checkpoint.Checkpoint, latest bool) {
	md := cp.Metadata
	p.Info("ID", md.ID)
	if latest {
		p.Highlight("(latest)")
	}
	p.Info("Progress", fmt.Sprintf("epoch %d, batch %d", cp.Progress.Epoch, cp.Progress.Batch))
	p.Info("Loss", formatLoss(cp.Metrics.Loss))
	for _, key := range cp.Metrics.Extra.Keys() {
		p.Info("  "+key, DescribeValue(cp.Metrics.Extra[key]))
	}
	p.Info("Created", fmt.Sprintf("%s (%s)", md.CreatedAt.Format(time.RFC3339Nano), humanize.Time(md.CreatedAt)))
	p.Info("Size", humanize.Bytes(uint64(md.SizeBytes)))
	p.Info("Model", fmt.Sprintf("%s, %d tensors, %s parameters",
		cp.ModelState.Kind, len(cp.ModelState.Weights), humanize.Comma(int64(cp.ModelState.NumParams()))))

	if len(cp.OptimizerState) == 0 {
		p.Dim("No optimizer state")
		return
	}
	p.Highlight("Optimizer state")
	for _, key := range cp.OptimizerState.Keys() {
		p.Info("  "+key, DescribeValue(cp.OptimizerState[key]))
	}
}
