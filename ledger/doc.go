// Package ledger defines the contract of the remote append-oriented
// key-value store the registry is built on, and its implementations.
//
// The ledger offers exactly three primitives: an availability probe, a
// single-key get (where "never set" is a normal empty result, not an error),
// and a single-key set. There is no listing, no schema, no multi-key
// transaction and no storage-layer access control; every higher-level
// guarantee in this repository is constructed above these primitives.
//
// Two implementations are provided:
//
//   - NATSLedger: production ledger on a NATS JetStream KV bucket. It also
//     implements the optional Updater capability using KV revisions, giving
//     callers an atomic read-modify-write with bounded conflict retries.
//   - Memory: an in-process map for tests and local development, with
//     availability toggling and per-key failure injection.
//
// Consumers should depend on the Client interface and discover Updater by
// type assertion, falling back to plain get/set where it is absent.
package ledger
