// Package presets loads and validates the curated preset document that drives
// image generation. Presets are read-only at generation time; the only
// sanctioned mutation path is the explicit tuning operation in tuner.go.
package presets

import (
	"encoding/json"
	"errors"
	"fmt"

	"pixstu_backend/core"
)

// ErrPresetNotFound indicates an unknown preset identifier.
// This is a caller error and is never retried.
var ErrPresetNotFound = errors.New("presets: preset not found")

// Parameter bounds shared with the generation facade.
const (
	MinSteps = 1
	MaxSteps = 100

	MinCFG = 1.0
	MaxCFG = 30.0

	MinImageSize      = 128
	MaxImageSize      = 2048
	ImageSizeMultiple = 8 // dimensions must be divisible by this
)

// LoRARef references a LoRA adapter layered onto the base model.
type LoRARef struct {
	Path     string  `json:"path"`
	Weight   float64 `json:"weight"`
	Download string  `json:"download,omitempty"` // optional download hint (repo/URL)
	SizeGB   float64 `json:"size_gb,omitempty"`
}

// Resolution is the output image size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Preset is a named bundle of model, LoRA, prompt and parameter defaults for
// consistent style reproduction.
type Preset struct {
	Name       string     `json:"name"`
	Model      string     `json:"model"`
	LoRAs      []LoRARef  `json:"loras,omitempty"`
	Positive   []string   `json:"positive,omitempty"`
	Negative   []string   `json:"negative,omitempty"`
	Steps      int        `json:"steps"`
	CFG        float64    `json:"cfg"`
	Resolution Resolution `json:"resolution"`
}

// Clone returns a deep copy of the preset so callers can mutate the result
// without touching the store's snapshot.
func (p Preset) Clone() Preset {
	out := p
	out.LoRAs = append([]LoRARef(nil), p.LoRAs...)
	out.Positive = append([]string(nil), p.Positive...)
	out.Negative = append([]string(nil), p.Negative...)
	return out
}

// Validate checks that the preset carries every required field with sane values.
// Returns a *core.ConfigError describing the first problem found.
func (p Preset) Validate() error {
	if p.Name == "" {
		return core.ErrPresetInvalid(p.Name, "missing name")
	}
	if p.Model == "" {
		return core.ErrPresetInvalid(p.Name, "missing model reference")
	}
	if p.Steps < MinSteps || p.Steps > MaxSteps {
		return core.ErrPresetInvalid(p.Name,
			fmt.Sprintf("steps %d must be between %d and %d", p.Steps, MinSteps, MaxSteps))
	}
	if p.CFG < MinCFG || p.CFG > MaxCFG {
		return core.ErrPresetInvalid(p.Name,
			fmt.Sprintf("cfg %.2f must be between %.1f and %.1f", p.CFG, MinCFG, MaxCFG))
	}
	if err := validateDimension(p.Name, "width", p.Resolution.Width); err != nil {
		return err
	}
	if err := validateDimension(p.Name, "height", p.Resolution.Height); err != nil {
		return err
	}
	for i, l := range p.LoRAs {
		if l.Path == "" {
			return core.ErrPresetInvalid(p.Name, fmt.Sprintf("lora %d has no path", i))
		}
		if l.Weight < 0 {
			return core.ErrPresetInvalid(p.Name, fmt.Sprintf("lora %s has negative weight", l.Path))
		}
	}
	return nil
}

func validateDimension(preset, field string, value int) error {
	if value < MinImageSize || value > MaxImageSize {
		return core.ErrPresetInvalid(preset,
			fmt.Sprintf("%s %d must be between %d and %d", field, value, MinImageSize, MaxImageSize))
	}
	if value%ImageSizeMultiple != 0 {
		return core.ErrPresetInvalid(preset,
			fmt.Sprintf("%s %d must be divisible by %d", field, value, ImageSizeMultiple))
	}
	return nil
}

// document is the on-disk preset file shape. Both a bare array and an object
// wrapping a "presets" array are accepted, matching what the curated documents
// in the wild look like.
type document struct {
	Presets []Preset `json:"presets"`
}

// parseDocument decodes a preset document from raw JSON.
func parseDocument(data []byte) ([]Preset, error) {
	trimmed := firstNonSpace(data)
	if trimmed == '[' {
		var list []Preset
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Presets, nil
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			return b
		}
	}
	return 0
}
