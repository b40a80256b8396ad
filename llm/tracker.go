package llm

import (
	"sort"
	"sync"
)

// TokenTracker accumulates token usage. Implementations must be safe for
// concurrent use.
type TokenTracker interface {
	// Add records one call's usage against model.
	Add(model string, usage TokenUsage)

	// Total returns the usage summed over every model.
	Total() TokenUsage
}

// UsageTracker is the in-memory TokenTracker.
type UsageTracker struct {
	mu      sync.Mutex
	byModel map[string]*modelUsage
}

type modelUsage struct {
	calls int
	usage TokenUsage
}

// NewUsageTracker creates an empty tracker.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{byModel: make(map[string]*modelUsage)}
}

// Add implements TokenTracker.
func (t *UsageTracker) Add(model string, usage TokenUsage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.byModel[model]
	if !ok {
		m = &modelUsage{}
		t.byModel[model] = m
	}
	m.calls++
	m.usage = m.usage.Add(usage)
}

// Total implements TokenTracker.
func (t *UsageTracker) Total() TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	var total TokenUsage
	for _, m := range t.byModel {
		total = total.Add(m.usage)
	}
	return total
}

// ModelUsage is the usage of one model in a UsageReport.
type ModelUsage struct {
	Model string     `json:"model"`
	Calls int        `json:"calls"`
	Usage TokenUsage `json:"usage"`
}

// UsageReport is a point-in-time copy of a tracker.
type UsageReport struct {
	Total  TokenUsage   `json:"total"`
	Calls  int          `json:"calls"`
	Models []ModelUsage `json:"models"`
}

// Report returns the tracked usage, models sorted by name.
func (t *UsageTracker) Report() UsageReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	r := UsageReport{Models: make([]ModelUsage, 0, len(t.byModel))}
	for name, m := range t.byModel {
		r.Models = append(r.Models, ModelUsage{Model: name, Calls: m.calls, Usage: m.usage})
		r.Total = r.Total.Add(m.usage)
		r.Calls += m.calls
	}
	sort.Slice(r.Models, func(i, j int) bool { return r.Models[i].Model < r.Models[j].Model })
	return r
}

// Reset forgets all recorded usage.
func (t *UsageTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.byModel)
}
