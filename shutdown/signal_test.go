package shutdown

import "testing"

func TestSignalCounter_Increment(t *testing.T) {
	counter := NewSignalCounter(2, nil)

	if got := counter.Increment(); got != 1 {
		t.Errorf("first Increment() = %d, want 1", got)
	}
	if got := counter.Increment(); got != 2 {
		t.Errorf("second Increment() = %d, want 2", got)
	}
	if got := counter.Count(); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestSignalCounter_ForceCallback(t *testing.T) {
	fired := 0
	counter := NewSignalCounter(2, func() { fired++ })

	counter.Increment()
	if fired != 0 {
		t.Error("force callback fired on the first signal")
	}
	counter.Increment()
	if fired != 1 {
		t.Errorf("force callback fired %d times after threshold, want 1", fired)
	}
	// Every signal past the threshold keeps forcing.
	counter.Increment()
	if fired != 2 {
		t.Errorf("force callback fired %d times, want 2", fired)
	}
}

func TestSignalCounter_NilCallback(t *testing.T) {
	counter := NewSignalCounter(1, nil)
	// Must not panic at the threshold.
	counter.Increment()
}
