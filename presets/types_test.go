package presets

import "testing"

func validPreset() Preset {
	return Preset{
		Name:       "pixel-art",
		Model:      "sd15.safetensors",
		Steps:      28,
		CFG:        7.0,
		Resolution: Resolution{Width: 512, Height: 512},
	}
}

func TestPreset_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Preset)
		wantErr bool
	}{
		{name: "valid preset", mutate: func(*Preset) {}},
		{name: "missing name", mutate: func(p *Preset) { p.Name = "" }, wantErr: true},
		{name: "missing model", mutate: func(p *Preset) { p.Model = "" }, wantErr: true},
		{name: "steps below minimum", mutate: func(p *Preset) { p.Steps = 0 }, wantErr: true},
		{name: "steps above maximum", mutate: func(p *Preset) { p.Steps = MaxSteps + 1 }, wantErr: true},
		{name: "cfg below minimum", mutate: func(p *Preset) { p.CFG = 0.5 }, wantErr: true},
		{name: "cfg above maximum", mutate: func(p *Preset) { p.CFG = MaxCFG + 1 }, wantErr: true},
		{name: "width too small", mutate: func(p *Preset) { p.Resolution.Width = 64 }, wantErr: true},
		{name: "width not multiple of eight", mutate: func(p *Preset) { p.Resolution.Width = 513 }, wantErr: true},
		{name: "height too large", mutate: func(p *Preset) { p.Resolution.Height = MaxImageSize + 8 }, wantErr: true},
		{name: "lora without path", mutate: func(p *Preset) { p.LoRAs = []LoRARef{{Weight: 0.8}} }, wantErr: true},
		{name: "lora negative weight", mutate: func(p *Preset) { p.LoRAs = []LoRARef{{Path: "l.safetensors", Weight: -1}} }, wantErr: true},
		{name: "lora zero weight allowed", mutate: func(p *Preset) { p.LoRAs = []LoRARef{{Path: "l.safetensors"}} }},
		{name: "boundary steps", mutate: func(p *Preset) { p.Steps = MaxSteps }},
		{name: "boundary size", mutate: func(p *Preset) { p.Resolution = Resolution{Width: MaxImageSize, Height: MinImageSize} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPreset()
			tt.mutate(&p)
			err := p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPreset_Clone(t *testing.T) {
	p := validPreset()
	p.LoRAs = []LoRARef{{Path: "l.safetensors", Weight: 0.8}}
	p.Positive = []string{"pixel art"}

	clone := p.Clone()
	clone.LoRAs[0].Weight = 0.1
	clone.Positive[0] = "mutated"

	if p.LoRAs[0].Weight != 0.8 || p.Positive[0] != "pixel art" {
		t.Error("Clone() shares backing arrays with the original")
	}
}
