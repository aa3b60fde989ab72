// Package logger provides structured logging for trainckpt.
//
// It wraps zerolog behind a small Logger interface so that library packages
// can accept a logger without depending on zerolog directly:
//
//	log := logger.GetLogger().WithField("component", "checkpoint")
//	log.InfoWithFields("Checkpoint saved", logger.Fields{
//	    "epoch": 3,
//	    "batch": 120,
//	})
//
// Packages that are handed no logger fall back to NewNopLogger. Tests can use
// NewTestLogger to capture entries and assert on them.
package logger
