package resume

import (
	"fmt"

	"trainckpt/pkg/checkpoint"
	"trainckpt/pkg/logger"
	"trainckpt/pkg/state"
)

// Loader returns the highest retained checkpoint, or nil when none exist.
// *checkpoint.Manager satisfies it.
type Loader interface {
	Load() (*checkpoint.Checkpoint, error)
}

// State is everything a training loop needs to continue after restoring
// its model
type State struct {
	OptimizerState state.Map
	Point
	Loss         float64
	CheckpointID string
}

// Resumer restores a model from the latest checkpoint
type Resumer struct {
	loader          Loader
	batchesPerEpoch int
	logger          logger.Logger
}

// Option configures a Resumer
type Option func(*Resumer)

// WithBatchesPerEpoch sets the epoch length used to detect epoch boundaries
func WithBatchesPerEpoch(n int) Option {
	return func(r *Resumer) { r.batchesPerEpoch = n }
}

// WithLogger sets the resumer's logger
func WithLogger(l logger.Logger) Option {
	return func(r *Resumer) { r.logger = l }
}

// NewResumer creates a Resumer reading from loader
func NewResumer(loader Loader, opts ...Option) *Resumer {
	r := &Resumer{
		loader: loader,
		logger: logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resume applies the latest checkpoint's weights to model and returns where
// training continues. It returns nil, nil when there is nothing to resume
// from; model is left untouched in that case.
func (r *Resumer) Resume(model state.Model) (*State, error) {
	cp, err := r.loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if cp == nil {
		r.logger.Info("No checkpoint found, starting from scratch")
		return nil, nil
	}

	if err := model.ApplyState(cp.ModelState); err != nil {
		return nil, fmt.Errorf("failed to restore model from %s: %w", cp.Metadata.ID, err)
	}

	point := Calculate(cp.Progress.Epoch, cp.Progress.Batch, r.batchesPerEpoch)
	r.logger.InfoWithFields("Resuming training", logger.Fields{
		"checkpoint": cp.Metadata.ID,
		"epoch":      point.Epoch,
		"batch":      point.Batch,
		"new_epoch":  point.IsNewEpoch,
	})

	return &State{
		OptimizerState: cp.OptimizerState,
		Point:          point,
		Loss:           cp.Metrics.Loss,
		CheckpointID:   cp.Metadata.ID,
	}, nil
}
