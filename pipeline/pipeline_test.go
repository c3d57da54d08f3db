package pipeline

import (
	"errors"
	"strings"
	"testing"

	"pixstu_backend/device"
)

func validParams() Params {
	return Params{
		Prompt: "a knight on a hill",
		Steps:  28,
		CFG:    7.0,
		Seed:   42,
		Width:  512,
		Height: 512,
		Model:  "sd15.safetensors",
		Device: device.Handle{Backend: device.CPU, Precision: device.FP32},
	}
}

func TestValidateParams(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Params) {}},
		{name: "empty prompt", mutate: func(p *Params) { p.Prompt = "" }, wantErr: true},
		{name: "width too small", mutate: func(p *Params) { p.Width = 64 }, wantErr: true},
		{name: "width not multiple of eight", mutate: func(p *Params) { p.Width = 500 }, wantErr: true},
		{name: "height too large", mutate: func(p *Params) { p.Height = 4096 }, wantErr: true},
		{name: "zero steps", mutate: func(p *Params) { p.Steps = 0 }, wantErr: true},
		{name: "cfg out of range", mutate: func(p *Params) { p.CFG = 0.2 }, wantErr: true},
		{name: "unresolved seed", mutate: func(p *Params) { p.Seed = -1 }, wantErr: true},
		{name: "mask without reference", mutate: func(p *Params) { p.Mask = []byte{1} }, wantErr: true},
		{name: "mask with reference", mutate: func(p *Params) { p.Reference = []byte{1}; p.Mask = []byte{1} }},
		{
			name:    "negative prompt too long",
			mutate:  func(p *Params) { p.NegativePrompt = strings.Repeat("x", MaxPromptLength+1) },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validParams()
			tt.mutate(&p)
			err := ValidateParams(p)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParams) && !errors.Is(err, ErrInvalidPrompt) {
				t.Errorf("ValidateParams() error = %v, want wrapped sentinel", err)
			}
		})
	}
}

func TestValidatePrompt(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		wantErr bool
	}{
		{name: "ok", prompt: "a fox in the snow"},
		{name: "empty", prompt: "", wantErr: true},
		{name: "whitespace only", prompt: "   ", wantErr: true},
		{name: "null byte", prompt: "fox\x00trick", wantErr: true},
		{name: "too long", prompt: strings.Repeat("a", MaxPromptLength+1), wantErr: true},
		{name: "exactly max length", prompt: strings.Repeat("a", MaxPromptLength)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePrompt(tt.prompt)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePrompt() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPrompt) {
				t.Errorf("ValidatePrompt() error = %v, want ErrInvalidPrompt", err)
			}
		})
	}
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    error
	}{
		{name: "cuda oom", message: "CUDA out of memory. Tried to allocate 2.00 GiB", want: ErrOutOfMemory},
		{name: "vram", message: "torch.OutOfMemoryError: out of VRAM", want: ErrOutOfMemory},
		{name: "missing kernel", message: "RuntimeError: no kernel image is available for execution", want: ErrMissingKernel},
		{name: "half precision", message: "\"LayerNormKernelImpl\" not implemented for 'Half'", want: ErrPrecisionMismatch},
		{name: "dtype", message: "expected scalar type Float but found dtype mismatch", want: ErrPrecisionMismatch},
		{name: "anything else", message: "connection refused", want: ErrGenerationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyFailure(tt.message)
			if !errors.Is(got, tt.want) {
				t.Errorf("ClassifyFailure(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "oom", err: ErrOutOfMemory, want: true},
		{name: "precision", err: ErrPrecisionMismatch, want: true},
		{name: "missing kernel", err: ErrMissingKernel, want: true},
		{name: "generic failure", err: ErrGenerationFailed, want: false},
		{name: "invalid params", err: ErrInvalidParams, want: false},
		{name: "nil", err: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Retryable(tt.err); got != tt.want {
				t.Errorf("Retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
