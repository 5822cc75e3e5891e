package command

import (
	"sort"
	"sync"
	"time"
)

// Metrics collects invocation statistics.
type Metrics struct {
	mu       sync.RWMutex
	commands map[string]*CommandMetrics
	total    uint64
	errors   uint64
	panics   uint64
}

// CommandMetrics holds the statistics of one command.
type CommandMetrics struct {
	Name        string
	Invocations uint64
	Errors      uint64
	Total       time.Duration
	Max         time.Duration
	Last        time.Time
}

// NewMetrics creates an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{commands: make(map[string]*CommandMetrics)}
}

// Record records one invocation.
func (m *Metrics) Record(name string, d time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	cm := m.commands[name]
	if cm == nil {
		cm = &CommandMetrics{Name: name}
		m.commands[name] = cm
	}
	cm.Invocations++
	cm.Total += d
	cm.Max = max(cm.Max, d)
	cm.Last = time.Now()
	if failed {
		m.errors++
		cm.Errors++
	}
}

// RecordPanic counts a recovered panic.
func (m *Metrics) RecordPanic() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panics++
}

// Totals returns invocations, failures and recovered panics.
func (m *Metrics) Totals() (invocations, errors, panics uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.total, m.errors, m.panics
}

// Command returns the statistics of name.
func (m *Metrics) Command(name string) (CommandMetrics, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cm, ok := m.commands[name]
	if !ok {
		return CommandMetrics{}, false
	}
	return *cm, true
}

// All returns every command's statistics sorted by name.
func (m *Metrics) All() []CommandMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]CommandMetrics, 0, len(m.commands))
	for _, cm := range m.commands {
		out = append(out, *cm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
