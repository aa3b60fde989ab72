package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"trainckpt/pkg/checkpoint"
	"trainckpt/pkg/state"
)

func TestPrinterWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	assert.False(t, p.IsTerminal())

	p.Info("Directory", "./checkpoints")
	p.Error("Load failed", errors.New("checksum mismatch"))
	p.Success("Done")

	assert.Equal(t, "Directory: ./checkpoints\nLoad failed: checksum mismatch\nDone\n", buf.String())
}

func TestCheckpointTable(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	mds := []checkpoint.Metadata{
		{ID: "ckpt-e000010-b00000050-a", Epoch: 10, Batch: 50, Loss: 0.125, SizeBytes: 1234, CreatedAt: now.Add(-3 * time.Minute)},
		{ID: "ckpt-e000003-b00000999-b", Epoch: 3, Batch: 999, Loss: 0.5, SizeBytes: 2 << 20, CreatedAt: now.Add(-2 * time.Hour)},
	}

	out := NewPrinter(&bytes.Buffer{}).CheckpointTable(mds, mds[0].ID, now)
	lines := strings.Split(out, "\n")

	assert.Contains(t, out, "EPOCH")
	assert.Contains(t, out, "1.2 kB")
	assert.Contains(t, out, "2.1 MB")
	assert.Contains(t, out, "3 minutes ago")
	assert.Contains(t, out, "2 hours ago")

	var first, second string
	for _, line := range lines {
		switch {
		case strings.Contains(line, mds[0].ID):
			first = line
		case strings.Contains(line, mds[1].ID):
			second = line
		}
	}
	assert.Contains(t, first, latestMark)
	assert.NotContains(t, second, latestMark)
	assert.Less(t, strings.Index(out, mds[0].ID), strings.Index(out, mds[1].ID))
}

func TestCheckpointTableFlagsCorrupt(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	mds := []checkpoint.Metadata{
		{ID: "ckpt-e000004-b00000001-a", Epoch: 4, Batch: 1, CreatedAt: now.Add(-time.Minute), Corrupt: true},
		{ID: "ckpt-e000004-b00000000-b", Epoch: 4, Batch: 0, Loss: 0.25, SizeBytes: 100, CreatedAt: now.Add(-2 * time.Minute)},
	}

	out := NewPrinter(&bytes.Buffer{}).CheckpointTable(mds, mds[0].ID, now)

	for _, line := range strings.Split(out, "\n") {
		switch {
		case strings.Contains(line, mds[0].ID):
			assert.Contains(t, line, corruptMark)
			assert.NotContains(t, line, "0 B")
		case strings.Contains(line, mds[1].ID):
			assert.NotContains(t, line, corruptMark)
			assert.Contains(t, line, "0.25")
		}
	}
}

func TestCheckpointTableEmpty(t *testing.T) {
	out := NewPrinter(&bytes.Buffer{}).CheckpointTable(nil, "", time.Now())
	assert.Contains(t, out, "ID")
}

func TestDescribeValue(t *testing.T) {
	tests := []struct {
		value state.Value
		want  string
	}{
		{state.Int(-42), "-42"},
		{state.Float(0.001), "0.001"},
		{state.String("cosine"), `"cosine"`},
		{state.Bool(true), "true"},
		{state.Floats(0.5, 0.25), "floats[2] [0.5 0.25]"},
		{state.Ints(1, 2, 3, 4, 5, 6), "ints[6] [1 2 3 4 …]"},
		{state.List(state.Int(1), state.Floats()), "list[2] [int floats]"},
		{state.Floats(), "floats[0] []"},
	}

	for _, test := range tests {
		t.Run(test.want, func(t *testing.T) {
			assert.Equal(t, test.want, DescribeValue(test.value))
		})
	}
}

func TestPrintCheckpoint(t *testing.T) {
	var buf bytes.Buffer
	cp := &checkpoint.Checkpoint{
		Progress:       checkpoint.Progress{Epoch: 2, Batch: 7},
		Metrics:        checkpoint.Metrics{Loss: 0.75},
		OptimizerState: state.Map{"step": state.Int(2007), "lr": state.Float(0.01)},
		ModelState:     state.ModelState{Kind: "linear/v1", Weights: map[string][]float64{"w": make([]float64, 1500)}},
		Metadata:       checkpoint.Metadata{ID: "ckpt-x", SizeBytes: 100, CreatedAt: time.Now()},
	}

	NewPrinter(&buf).Checkpoint(cp, true)
	out := buf.String()

	assert.Contains(t, out, "ID: ckpt-x")
	assert.Contains(t, out, "(latest)")
	assert.Contains(t, out, "epoch 2, batch 7")
	assert.Contains(t, out, "linear/v1, 1 tensors, 1,500 parameters")
	assert.Less(t, strings.Index(out, "  lr: 0.01"), strings.Index(out, "  step: 2007"))
}

func TestEpochProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewEpochProgress(&buf, 3, 10, 4)
	for i := 0; i < 6; i++ {
		p.Step(0.5)
	}
	p.Finish()

	assert.Contains(t, buf.String(), "Epoch 3")
	assert.Contains(t, buf.String(), "10/10")
}
