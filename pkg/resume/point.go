// Package resume turns the newest retained checkpoint into the position a
// training loop should continue from.
package resume

// Point is the first (epoch, batch) that still has to be trained
type Point struct {
	Epoch int
	Batch int
	// IsNewEpoch reports that the checkpoint closed its epoch and training
	// starts at batch 0 of the next one
	IsNewEpoch bool
}

// Calculate returns the resume point after a checkpoint taken at
// (epoch, batch). When batchesPerEpoch is zero or negative the epoch length
// is treated as unknown and training continues at the next batch of the
// same epoch. epoch and batch must be below math.MaxInt, which
// checkpoint.Manager.Save enforces.
func Calculate(epoch, batch, batchesPerEpoch int) Point {
	next := batch + 1
	if batchesPerEpoch <= 0 || next < batchesPerEpoch {
		return Point{Epoch: epoch, Batch: next}
	}
	return Point{Epoch: epoch + 1, Batch: 0, IsNewEpoch: true}
}
