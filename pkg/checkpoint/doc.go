// Package checkpoint persists, enumerates, retains and restores training
// state across interruptions.
//
// A Manager writes each checkpoint as a self-contained payload file plus a
// small metadata sidecar through a Store, then applies the retention policy
// so that at most MaxCheckpoints remain. "Latest" always means the retained
// checkpoint with the greatest (epoch, batch), never the most recently
// written one, and is recorded in a marker file so the default load does not
// need to scan the directory.
//
// Files are written with a temp-file-then-rename discipline, so readers in
// other processes never observe a partially written checkpoint:
//
//	mgr, err := checkpoint.NewManager(checkpoint.Config{
//	    Directory:      "./checkpoints",
//	    MaxCheckpoints: 3,
//	})
//	md, err := mgr.Save(model, optimizerState, epoch, batch, loss)
//	cp, err := mgr.Load() // nil when no checkpoint exists yet
//
// Payloads carry a BLAKE2b-256 checksum of their body; a payload that fails
// to decode or verify is reported with an error matching errors.ErrCorrupt,
// distinct from the nil result of a cold start.
package checkpoint
