package shutdown

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pixstu_backend/core"
)

type entry struct {
	name     string
	fn       core.ShutdownFunc
	priority int // lower runs first
}

// Registry holds cleanup functions executed in priority order during
// shutdown. Lower priorities run first (flush logs before closing the
// stores they log about).
type Registry struct {
	mu      sync.Mutex
	entries []entry
	closed  bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a named cleanup function. Registration after Run has been
// called is a no-op.
func (r *Registry) Register(name string, priority int, fn core.ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.entries = append(r.entries, entry{name: name, fn: fn, priority: priority})
}

// Count returns the number of registered cleanup functions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Run executes every registered function in priority order, continuing past
// failures, and returns the errors collected. Run is one-shot: subsequent
// calls return nil without executing anything.
func (r *Registry) Run(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	entries := make([]entry, len(r.entries))
	copy(entries, r.entries)
	r.mu.Unlock()

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})

	var errs []error
	for _, e := range entries {
		if err := e.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.name, err))
		}
	}
	return errs
}
