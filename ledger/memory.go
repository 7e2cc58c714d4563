package ledger

import (
	"context"
	"sync"
)

// Memory is an in-process ledger for tests and local development. It
// implements both Client and Updater and supports failure injection so
// partial-failure scenarios can be driven deterministically.
type Memory struct {
	mu        sync.Mutex
	data      map[string][]byte
	available bool
	getErrs   map[string]error
	setErrs   map[string]error
}

// NewMemory returns an empty, available in-memory ledger.
func NewMemory() *Memory {
	return &Memory{
		data:      make(map[string][]byte),
		available: true,
		getErrs:   make(map[string]error),
		setErrs:   make(map[string]error),
	}
}

// SetAvailable toggles the availability probe.
func (m *Memory) SetAvailable(available bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
}

// FailGet makes every Get of key return err until ClearFailures.
func (m *Memory) FailGet(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErrs[key] = err
}

// FailSet makes every Set of key return err until ClearFailures.
func (m *Memory) FailSet(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErrs[key] = err
}

// ClearFailures removes all injected failures.
func (m *Memory) ClearFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErrs = make(map[string]error)
	m.setErrs = make(map[string]error)
}

// IsAvailable implements Client.
func (m *Memory) IsAvailable(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// Get implements Client. Unset keys yield (nil, nil).
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.getErrs[key]; ok {
		return nil, err
	}

	value, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set implements Client.
func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.setErrs[key]; ok {
		return err
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

// Update implements the Updater capability: the whole read-modify-write runs
// under the ledger lock, so concurrent updates never lose each other.
func (m *Memory) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err, ok := m.getErrs[key]; ok {
		return err
	}
	if err, ok := m.setErrs[key]; ok {
		return err
	}

	next, err := fn(m.data[key])
	if err != nil {
		return err
	}

	stored := make([]byte, len(next))
	copy(stored, next)
	m.data[key] = stored
	return nil
}

// Len reports the number of stored keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
