package device

// Selector walks an ordered probe chain and returns the first usable backend.
type Selector struct {
	probes []Probe
}

// NewSelector creates a Selector with the default probe chain.
func NewSelector() *Selector {
	return NewSelectorWithProbes(DefaultProbes())
}

// NewSelectorWithProbes creates a Selector with a custom probe chain.
// This is primarily used for testing. A CPU terminal probe is appended if the
// chain does not end with one, preserving the never-fails contract.
func NewSelectorWithProbes(probes []Probe) *Selector {
	if len(probes) == 0 || probes[len(probes)-1].Backend != CPU {
		probes = append(probes, Probe{Backend: CPU, Available: func() bool { return true }})
	}
	return &Selector{probes: probes}
}

// Select returns a handle for the best available backend.
//
// When preference names an available backend, it wins. Otherwise the chain is
// probed in priority order and the first available tier is returned. Select
// never fails: CPU is always assumed available as the terminal case.
func (s *Selector) Select(preference string) Handle {
	if preference != "" {
		if b, ok := ParseBackend(preference); ok && s.available(b) {
			return Handle{Backend: b, Precision: DefaultPrecision(b)}
		}
	}

	for _, p := range s.probes {
		if p.Available() {
			return Handle{Backend: p.Backend, Precision: DefaultPrecision(p.Backend)}
		}
	}

	// Unreachable with a well-formed chain, but keep the contract anyway.
	return Handle{Backend: CPU, Precision: FP32}
}

// Fallbacks returns the available handles strictly after the given backend in
// the probe chain. The generation facade walks this list when a pipeline
// invocation fails on the selected device.
func (s *Selector) Fallbacks(from Backend) []Handle {
	var out []Handle
	seen := false
	for _, p := range s.probes {
		if p.Backend == from {
			seen = true
			continue
		}
		if !seen {
			continue
		}
		if p.Available() {
			out = append(out, Handle{Backend: p.Backend, Precision: DefaultPrecision(p.Backend)})
		}
	}
	return out
}

func (s *Selector) available(b Backend) bool {
	for _, p := range s.probes {
		if p.Backend == b {
			return p.Available()
		}
	}
	return false
}
