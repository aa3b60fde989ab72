// Package retry re-runs operations that fail with transient errors.
//
// Checkpoint operations never retry internally; a caller that wants to ride
// out a flaky filesystem wraps the call instead:
//
//	md, err := retry.DoWithResult(func() (checkpoint.Metadata, error) {
//		return mgr.Save(model, optState, epoch, batch, loss)
//	}, &retry.Config{
//		MaxAttempts: 3,
//		Backoff:     retry.DefaultExponentialBackoff(),
//		Context:     ctx,
//	})
//
// DefaultRetryIf only retries errors of type errors.ErrorTypeIO. Invalid
// arguments, missing and corrupt checkpoints fail immediately.
package retry
