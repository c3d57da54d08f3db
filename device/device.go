// Package device selects the compute backend used for generation.
//
// Backends are probed in a fixed priority order (CUDA, ROCm via the ZLUDA
// shim, Apple Metal, CPU) and the first available one wins. Selection never
// fails: CPU is the terminal tier and is always assumed available.
package device

import "strings"

// Backend identifies a compute backend tier.
type Backend string

// Backend tiers in fallback priority order.
const (
	CUDA Backend = "cuda"
	ROCm Backend = "rocm"
	MPS  Backend = "mps"
	CPU  Backend = "cpu"
)

// Precision is the numeric mode a pipeline runs under.
type Precision string

const (
	// FP16 is the half-precision default on accelerators.
	FP16 Precision = "fp16"
	// FP32 is full precision, the CPU default and the dtype-mismatch fallback.
	FP32 Precision = "fp32"
)

// Handle is a selected compute backend plus the numeric mode to run it in.
type Handle struct {
	Backend   Backend
	Precision Precision
}

// String returns e.g. "cuda/fp16".
func (h Handle) String() string {
	return string(h.Backend) + "/" + string(h.Precision)
}

// WithPrecision returns a copy of the handle with the given precision.
func (h Handle) WithPrecision(p Precision) Handle {
	h.Precision = p
	return h
}

// DefaultPrecision returns the numeric mode a backend defaults to.
func DefaultPrecision(b Backend) Precision {
	if b == CPU {
		return FP32
	}
	return FP16
}

// ParseBackend maps a user-supplied preference string onto a Backend.
// Matching is case-insensitive. Returns false for anything unrecognized.
func ParseBackend(s string) (Backend, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch Backend(s) {
	case CUDA, ROCm, MPS, CPU:
		return Backend(s), true
	}
	// Common aliases seen in launcher configs.
	switch s {
	case "zluda":
		return ROCm, true
	case "metal":
		return MPS, true
	}
	return "", false
}
