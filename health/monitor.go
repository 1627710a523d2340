package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Backend is one dependency checked by a Monitor.
type Backend struct {
	Name string
	// Critical backends make the gateway unhealthy when they fail;
	// others only degrade it.
	Critical bool
	Check    func(ctx context.Context) error
}

// Monitor keeps the last status of every checked backend. It is safe for
// concurrent use.
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{statuses: make(map[string]Status)}
}

// Update records status under name.
func (m *Monitor) Update(name string, status Status) {
	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}

	m.mu.Lock()
	m.statuses[name] = status
	m.mu.Unlock()
}

// Set records a status without check metrics.
func (m *Monitor) Set(name string, state State, message string) {
	m.Update(name, NewStatus(name, state, message))
}

// Get returns the last status recorded for name.
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.statuses[name]
	return status, ok
}

// AggregateHealth folds every backend into one status for systemName,
// sub-statuses sorted by name.
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	subs := make([]Status, 0, len(m.statuses))
	for _, status := range m.statuses {
		subs = append(subs, status)
	}
	m.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].Component < subs[j].Component })
	return Aggregate(systemName, subs)
}

// Check runs p once with timeout and records the result. ErrorCount
// carries over between checks and resets only on restart.
func (m *Monitor) Check(ctx context.Context, p Backend, timeout time.Duration) Status {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := p.Check(ctx)
	latency := time.Since(start)

	errorCount := 0
	if prev, ok := m.Get(p.Name); ok && prev.Metrics != nil {
		errorCount = prev.Metrics.ErrorCount
	}
	if err != nil {
		errorCount++
	}

	status := FromCheck(p.Name, err, latency, p.Critical, errorCount)
	m.Update(p.Name, status)
	return status
}

// Run checks every backend immediately and then at interval until ctx is
// done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration, backends ...Backend) {
	checkAll := func() {
		for _, p := range backends {
			m.Check(ctx, p, interval)
		}
	}
	checkAll()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			checkAll()
		}
	}
}

// Handler serves the aggregate status as JSON. Unhealthy answers 503;
// degraded still answers 200.
func (m *Monitor) Handler(systemName string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status := m.AggregateHealth(systemName)

		code := http.StatusOK
		if status.IsUnhealthy() {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})
}
