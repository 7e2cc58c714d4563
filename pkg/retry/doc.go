// Package retry provides simple exponential backoff retry logic for transient failures.
//
// # Core Functions
//
//   - Do: Execute function with retry and exponential backoff
//   - DoWithResult: Execute function with retry, returns both result and error
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (normal operations)
//   - Contended(): 10 attempts, 10ms-1s delay (optimistic-concurrency conflicts)
//
// # Usage
//
// Basic retry with defaults:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return client.Connect(ctx)
//	})
//
// Mark errors that must never be retried:
//
//	err := retry.Do(ctx, cfg, func() error {
//	    if err := validate(input); err != nil {
//	        return retry.NonRetryable(err)
//	    }
//	    return submit(input)
//	})
//
// All backoff sleeps honor context cancellation. Jitter (up to 25% of the
// current delay) is added when AddJitter is set to avoid synchronized retries
// from concurrent writers.
package retry
