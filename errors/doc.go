// Package errors provides standardized error handling for the material
// registry.
//
// # Error Classification
//
// Errors are classified into three classes: Transient (temporary, retryable),
// Invalid (caller error, non-retryable), and Fatal (unrecoverable, stop
// processing). Classification enables retry decisions without string matching
// and integrates with errors.Is(), errors.As(), and error wrapping chains.
//
// # Registry Taxonomy
//
// The package defines the stable error kinds surfaced by registry operations:
//
//   - ErrStoreUnavailable: ledger failed its availability probe; the current
//     sync pass aborts, a later pass may succeed
//   - ErrNotFound, ErrUnauthorized, ErrInvalidTransition: caller errors from
//     the status transition engine, surfaced verbatim
//   - ErrWriteFailure: a ledger set was rejected or unreachable
//   - ErrPartialIndex: a record was persisted but the index append failed
//     (orphan record); only the index step needs retrying
//   - ErrDecode: stored bytes did not decode to a well-formed record;
//     per-record, callers log and skip
//
// No error is silently retried by the registry itself; all retries are
// caller-initiated. RetryConfig and its ToRetryConfig bridge to pkg/retry
// support those caller loops.
//
// # Wrapping
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// The generic Wrap() preserves the original error's classification.
package errors
