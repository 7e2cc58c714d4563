// Package materium is the root of the material research registry module: a
// synchronization engine that maintains a verifiable catalog of material
// research records on top of a remote key-value ledger offering only
// single-key get and set.
//
// # Architecture
//
// The ledger has no listing primitive, so the registry maintains its own
// catalog: a JSON array of record ids under one well-known key, with each
// record stored as a JSON document under its own key. Reads scan the index
// and fan out per-record fetches into an immutable in-memory projection;
// writes go record-first, index-second, and surface the gap between the two
// steps explicitly so callers can repair it.
//
//	┌──────────────────────────────┐
//	│       registry.Engine        │  Sync, Submit, Transition,
//	│  (projection, write pipeline)│  RetryIndex, Aggregate
//	└──────────────────────────────┘
//	       ↓ scans            ↓ writes
//	┌──────────────┐   ┌──────────────┐
//	│ index.Manager│   │ store.Store  │  id catalog / record codec
//	└──────────────┘   └──────────────┘
//	       ↓ get/set          ↓ get/set
//	┌──────────────────────────────┐
//	│        ledger.Client          │  NATS JetStream KV, or the
//	│   (get, set, availability)    │  in-memory double for tests
//	└──────────────────────────────┘
//
// Package layout:
//   - registry: the engine, projection, aggregates and Prometheus metrics
//   - index: the id catalog kept inside the ledger
//   - store: per-record persistence and the wire codec
//   - record: the record model and status lifecycle
//   - ledger: the key-value ledger contract and its implementations
//   - errors: classified errors and the registry's error taxonomy
//   - health, metric, config: operational surfaces of a registry node
//   - cmd/materium-registry: the command line client and daemon
package materium
