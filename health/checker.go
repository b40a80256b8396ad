package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// CheckFunc produces the current status of one dependency.
type CheckFunc func(ctx context.Context) Status

// Report is the result of running every registered check.
type Report struct {
	Status    Status            `json:"status"`
	Checks    map[string]Status `json:"checks"`
	CheckedAt time.Time         `json:"checked_at"`
}

// Checker runs named checks concurrently. It is safe for concurrent use.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker creates an empty checker.
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]CheckFunc)}
}

// Register adds or replaces the check called name.
func (c *Checker) Register(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// Names returns the registered check names in sorted order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes every check and combines the results.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]Status, len(checks))
	)
	for name, fn := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := fn(ctx)
			mu.Lock()
			results[name] = st
			mu.Unlock()
		}()
	}
	wg.Wait()

	ordered := make([]Status, 0, len(results))
	for _, name := range sortedKeys(results) {
		st := results[name]
		if st.Message != "" {
			st.Message = name + ": " + st.Message
		}
		ordered = append(ordered, st)
	}

	return Report{
		Status:    Combine(ordered...),
		Checks:    results,
		CheckedAt: time.Now().UTC(),
	}
}

func sortedKeys(m map[string]Status) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
