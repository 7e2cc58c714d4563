// Package health tracks the liveness of the registry's collaborators (the
// ledger connection, the sync loop) and serves an aggregated view over HTTP
// for probes.
package health

import (
	"regexp"
	"sync"
	"time"
)

// Status health states.
const (
	StateHealthy   = "healthy"
	StateDegraded  = "degraded"
	StateUnhealthy = "unhealthy"
)

// Status is the health of one named component at a point in time.
type Status struct {
	Component string    `json:"component"`
	Healthy   bool      `json:"healthy"`
	State     string    `json:"state"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHealthy builds a healthy status.
func NewHealthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   true,
		State:     StateHealthy,
		Message:   sanitize(message),
		Timestamp: time.Now(),
	}
}

// NewDegraded builds a degraded status: operating but impaired.
func NewDegraded(component, message string) Status {
	return Status{
		Component: component,
		State:     StateDegraded,
		Message:   sanitize(message),
		Timestamp: time.Now(),
	}
}

// NewUnhealthy builds an unhealthy status.
func NewUnhealthy(component, message string) Status {
	return Status{
		Component: component,
		State:     StateUnhealthy,
		Message:   sanitize(message),
		Timestamp: time.Now(),
	}
}

// Monitor tracks the statuses of named components. Safe for concurrent use.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{statuses: make(map[string]Status)}
}

// Update records the status for a named component.
func (m *Monitor) Update(status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.statuses[status.Component] = status
}

// Get retrieves the status of one component.
func (m *Monitor) Get(component string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.statuses[component]
	return status, ok
}

// All returns a copy of every tracked status.
func (m *Monitor) All() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		out = append(out, status)
	}
	return out
}

// Aggregate folds all component statuses into one system status: unhealthy
// if any component is unhealthy, else degraded if any is degraded, else
// healthy. An empty monitor is degraded: nothing has reported yet.
func (m *Monitor) Aggregate(system string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.statuses) == 0 {
		return NewDegraded(system, "no components reporting")
	}

	worst := StateHealthy
	for _, status := range m.statuses {
		switch status.State {
		case StateUnhealthy:
			worst = StateUnhealthy
		case StateDegraded:
			if worst == StateHealthy {
				worst = StateDegraded
			}
		}
	}

	switch worst {
	case StateUnhealthy:
		return NewUnhealthy(system, "one or more components unhealthy")
	case StateDegraded:
		return NewDegraded(system, "one or more components degraded")
	default:
		return NewHealthy(system, "all components healthy")
	}
}

// Probe messages can carry connection errors; scrub addresses and secrets
// before they leave the process.
var (
	natsURLRegex    = regexp.MustCompile(`nats://\S+`)
	httpURLRegex    = regexp.MustCompile(`https?://\S+`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|secret|credential)\s*[:=]\s*\S+`)
)

func sanitize(message string) string {
	message = natsURLRegex.ReplaceAllString(message, "nats://[redacted]")
	message = httpURLRegex.ReplaceAllString(message, "[redacted-url]")
	message = credentialRegex.ReplaceAllString(message, "$1=[redacted]")
	return message
}
