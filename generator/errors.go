package generator

import (
	"errors"
	"fmt"
	"strings"

	"pixstu_backend/presets"
)

// ErrInvalidSeed indicates a seed string that is neither an integer nor
// the literal "random". Rejected before any side effect.
var ErrInvalidSeed = errors.New("generator: seed must be an integer or \"random\"")

// GenerationError is returned when every device/precision fallback tier has
// been exhausted. It carries the last underlying pipeline error; no partial
// output is written when this is returned.
type GenerationError struct {
	Attempts int   // number of pipeline invocations tried
	Last     error // last underlying failure
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generator: all %d fallback attempts exhausted: %v", e.Attempts, e.Last)
}

func (e *GenerationError) Unwrap() error {
	return e.Last
}

// MissingAssetError is returned in strict mode when a preset references
// LoRA assets that are absent locally. In the default (non-strict) mode the
// same information is surfaced as warnings on the Result instead.
type MissingAssetError struct {
	Preset string
	Assets []presets.MissingAsset
}

func (e *MissingAssetError) Error() string {
	paths := make([]string, len(e.Assets))
	for i, a := range e.Assets {
		paths[i] = a.DisplayPath
	}
	return fmt.Sprintf("generator: preset %q is missing assets: %s",
		e.Preset, strings.Join(paths, ", "))
}
