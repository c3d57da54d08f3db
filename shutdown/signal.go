// Package shutdown coordinates graceful teardown for the CLI: the first
// interrupt cancels the in-flight generation and runs registered cleanup,
// a second interrupt forces the process out immediately.
package shutdown

import "sync"

// SignalCounter tracks repeated shutdown signals. The first signal is the
// graceful path; when the count reaches the force threshold the onForce
// callback fires.
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	onForce    func()
}

// NewSignalCounter creates a counter that invokes onForce once the count
// reaches forceAfter. onForce may be nil.
func NewSignalCounter(forceAfter int, onForce func()) *SignalCounter {
	return &SignalCounter{forceAfter: forceAfter, onForce: onForce}
}

// Increment adds one to the signal count and returns the new count. The
// onForce callback runs under the lock, so it should exit the process or
// return quickly.
func (s *SignalCounter) Increment() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.count >= s.forceAfter && s.onForce != nil {
		s.onForce()
	}
	return s.count
}

// Count returns the current signal count.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
