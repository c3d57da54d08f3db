// Package pipeline defines the diffusion pipeline collaborator interface and
// its concrete backends (local SD web API, cloud provider).
//
// The package owns:
//   - Params: the resolved invocation parameters handed to a backend
//   - Pipeline: the single run capability every backend implements
//   - Conditioner: capability-checked optional conditioning modules
//   - the pipeline error taxonomy and retryability classifier (errors.go)
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"pixstu_backend/device"
)

// Parameter validation constants.
const (
	MinImageSize      = 128
	MaxImageSize      = 2048
	ImageSizeMultiple = 8

	MinSteps = 1
	MaxSteps = 100

	MinCFG = 1.0
	MaxCFG = 30.0

	MaxPromptLength = 1000
)

// LoRAWeight is a resolved LoRA adapter reference handed to a backend.
type LoRAWeight struct {
	Path   string
	Weight float64
}

// Params holds the fully resolved parameters for one pipeline invocation.
// By the time Params reaches a backend, the prompt is already composed and
// the seed is a concrete value; backends apply the parameters verbatim.
type Params struct {
	Prompt         string
	NegativePrompt string
	Steps          int
	CFG            float64
	Seed           int64
	Width          int
	Height         int
	Model          string
	LoRAs          []LoRAWeight

	// Reference is an optional encoded reference image (img2img path).
	Reference []byte
	// Mask is an optional encoded inpainting mask; white pixels are editable.
	Mask []byte
	// Strength is the denoising strength when Reference is set (0..1).
	Strength float64

	// Device is the selected compute backend and numeric mode.
	Device device.Handle
}

// Pipeline is the diffusion pipeline capability consumed by the generation
// facade. Run blocks until the image is ready or the context is done, and
// returns encoded (PNG) image bytes.
type Pipeline interface {
	Run(ctx context.Context, params Params) ([]byte, error)
}

// Conditioner is an optional conditioning module (ControlNet/IP-Adapter
// style). Modules are polymorphic over a single capability: transform the
// invocation parameters. Absent modules are simply omitted by the caller;
// nothing branches on module types at runtime.
type Conditioner interface {
	// Name identifies the module for logging and metadata.
	Name() string
	// Apply transforms the invocation parameters.
	Apply(params Params) Params
}

// ConditionerFunc adapts a function to the Conditioner interface.
type ConditionerFunc struct {
	ModuleName string
	Fn         func(Params) Params
}

// Name returns the module name.
func (c ConditionerFunc) Name() string { return c.ModuleName }

// Apply invokes the wrapped function.
func (c ConditionerFunc) Apply(params Params) Params { return c.Fn(params) }

// ValidateParams validates invocation parameters and returns an error if
// invalid. This is a pure function with no side effects.
func ValidateParams(p Params) error {
	if err := ValidatePrompt(p.Prompt); err != nil {
		return err
	}
	if p.Width < MinImageSize || p.Width > MaxImageSize {
		return fmt.Errorf("%w: width %d must be between %d and %d",
			ErrInvalidParams, p.Width, MinImageSize, MaxImageSize)
	}
	if p.Width%ImageSizeMultiple != 0 {
		return fmt.Errorf("%w: width %d must be divisible by %d",
			ErrInvalidParams, p.Width, ImageSizeMultiple)
	}
	if p.Height < MinImageSize || p.Height > MaxImageSize {
		return fmt.Errorf("%w: height %d must be between %d and %d",
			ErrInvalidParams, p.Height, MinImageSize, MaxImageSize)
	}
	if p.Height%ImageSizeMultiple != 0 {
		return fmt.Errorf("%w: height %d must be divisible by %d",
			ErrInvalidParams, p.Height, ImageSizeMultiple)
	}
	if p.Steps < MinSteps || p.Steps > MaxSteps {
		return fmt.Errorf("%w: steps %d must be between %d and %d",
			ErrInvalidParams, p.Steps, MinSteps, MaxSteps)
	}
	if p.CFG < MinCFG || p.CFG > MaxCFG {
		return fmt.Errorf("%w: cfg %.2f must be between %.1f and %.1f",
			ErrInvalidParams, p.CFG, MinCFG, MaxCFG)
	}
	if p.Seed < 0 {
		return fmt.Errorf("%w: seed must be resolved to a concrete non-negative value", ErrInvalidParams)
	}
	if len(p.NegativePrompt) > MaxPromptLength {
		return fmt.Errorf("%w: negative prompt length %d exceeds maximum %d",
			ErrInvalidParams, len(p.NegativePrompt), MaxPromptLength)
	}
	if p.Mask != nil && p.Reference == nil {
		return fmt.Errorf("%w: mask requires a reference image", ErrInvalidParams)
	}
	return nil
}

// ValidatePrompt validates a prompt string.
// This is a pure function with no side effects.
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("%w: prompt cannot be empty", ErrInvalidPrompt)
	}
	if strings.ContainsRune(prompt, '\x00') {
		return fmt.Errorf("%w: prompt contains null bytes", ErrInvalidPrompt)
	}
	if len(prompt) > MaxPromptLength {
		return fmt.Errorf("%w: prompt length %d exceeds maximum %d",
			ErrInvalidPrompt, len(prompt), MaxPromptLength)
	}
	return nil
}
