// Package generator implements the preset-driven generation facade: it
// resolves presets, guards prompts, selects devices, consults the fingerprint
// cache and walks the device/precision fallback chain around the underlying
// diffusion pipeline.
package generator

import (
	"pixstu_backend/metadata"
	"pixstu_backend/pipeline"
)

// Request describes one generation to perform.
type Request struct {
	// Prompt is the user's prompt text (required).
	Prompt string

	// NegativePrompt is the user's avoid-list. The preset negatives and the
	// always-on default terms are merged in regardless.
	NegativePrompt string

	// Preset is the curated preset identifier (required).
	Preset string

	// Seed is an integer string or "random" (empty behaves like "random").
	// The resolved concrete seed is recorded in the result metadata.
	Seed string

	// Width/Height override the preset resolution when non-zero.
	Width  int
	Height int

	// Reference is an optional encoded reference image (img2img).
	Reference []byte

	// Mask is an optional encoded inpainting mask; requires Reference.
	Mask []byte

	// Conditioners are optional conditioning modules applied in order to the
	// resolved invocation parameters. Absent modules are simply omitted.
	Conditioners []pipeline.Conditioner
}

// Warning codes surfaced on results.
const (
	WarnMissingAsset = "missing_asset"
)

// Warning is a non-fatal problem surfaced to the caller alongside a result,
// with a remediation hint where one exists.
type Warning struct {
	Code     string // machine-readable code (e.g. missing_asset)
	Message  string // human-readable description
	Download string // download suggestion for missing assets, when known
}

// Result is the outcome of a successful generation (or cache hit).
type Result struct {
	// ImagePath is where the encoded image lives on disk.
	ImagePath string

	// MetadataPath is the sidecar JSON path beside the image.
	MetadataPath string

	// Image is the encoded image bytes. On a cache hit these are
	// bit-identical to the original generation.
	Image []byte

	// Record is the resolved provenance metadata.
	Record metadata.Record

	// Fingerprint is the cache key derived from the resolved request.
	Fingerprint string

	// CacheHit is true when the artifact came from the fingerprint cache
	// without invoking the pipeline.
	CacheHit bool

	// Warnings carries non-fatal problems (e.g. missing LoRA assets).
	Warnings []Warning
}
