// Package ratelimit throttles bulk checkpoint reads so that verifying a
// large directory on shared storage does not starve a running trainer.
//
//	limiter := ratelimit.PerSecond(20)
//	if err := limiter.Wait(ctx); err != nil {
//		return err
//	}
package ratelimit
