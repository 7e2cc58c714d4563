// Package registry implements the material registry synchronization engine.
//
// The engine maintains a durable, scannable catalog of material-research
// records inside a key-value ledger that offers only single-key get/set,
// projects the full registry into a local in-memory view, drives the
// two-step submission pipeline (record write, then index append) while
// tolerating partial failure, and enforces the ownership-gated status state
// machine (pending → verified / rejected).
//
// # Read path
//
// Sync is the single read path: it probes ledger availability, scans the
// index, fetches records with bounded concurrency, skips anything absent or
// undecodable, sorts by timestamp descending and atomically publishes the
// result as the new Projection. Readers always see either the previous or
// the new complete projection, never a partial one.
//
// # Write paths
//
// Submit writes the record blob first and appends its id to the index
// second. The two writes span two keys with no transaction, so the pipeline
// distinguishes the dangerous case: a persisted record whose index append
// failed is an orphan, surfaced as ErrPartialIndex with the id preserved so
// RetryIndex can re-run just the append.
//
// Transition is the only writer of status on existing records; ownership is
// an application-level predicate (the ledger has no ACL), checked before
// every mutation.
//
// Both write paths trigger a refresh of the projection on success. No
// operation retries itself; retries are caller-initiated, and plumbing for
// them lives in the errors and retry packages.
package registry
