package pipeline

import (
	"errors"
	"strings"
)

// Sentinel errors for pipeline operations.
// These are domain-specific errors that provide clear failure modes.
var (
	// Input validation errors
	ErrInvalidPrompt = errors.New("pipeline: invalid prompt")
	ErrInvalidParams = errors.New("pipeline: invalid generation parameters")

	// Invocation errors
	ErrGenerationFailed = errors.New("pipeline: image generation failed")
	ErrUnavailable      = errors.New("pipeline: backend unavailable")

	// Hardware/resource errors; these trigger the facade's fallback chain
	ErrOutOfMemory       = errors.New("pipeline: device out of memory")
	ErrPrecisionMismatch = errors.New("pipeline: dtype/precision mismatch")
	ErrMissingKernel     = errors.New("pipeline: no kernel image for device")
)

// Retryable reports whether an error should be retried on the next device
// fallback tier (and/or with a precision downgrade). Validation errors and
// plain generation failures are not retryable; resource and kernel problems
// are.
func Retryable(err error) bool {
	return errors.Is(err, ErrOutOfMemory) ||
		errors.Is(err, ErrPrecisionMismatch) ||
		errors.Is(err, ErrMissingKernel)
}

// Message fragments backends emit for recoverable hardware failures.
// Kept lowercase; classification is case-insensitive.
var (
	oomFragments = []string{
		"out of memory",
		"out of vram",
		"cuda error: out of memory",
	}
	precisionFragments = []string{
		"half",
		"fp16",
		"dtype",
	}
	kernelFragments = []string{
		"no kernel image",
		"kernel image is available",
	}
)

// ClassifyFailure maps a backend error message onto the sentinel taxonomy.
// Unrecognized messages classify as ErrGenerationFailed.
func ClassifyFailure(message string) error {
	lower := strings.ToLower(message)
	for _, frag := range oomFragments {
		if strings.Contains(lower, frag) {
			return ErrOutOfMemory
		}
	}
	for _, frag := range kernelFragments {
		if strings.Contains(lower, frag) {
			return ErrMissingKernel
		}
	}
	for _, frag := range precisionFragments {
		if strings.Contains(lower, frag) {
			return ErrPrecisionMismatch
		}
	}
	return ErrGenerationFailed
}
