package generator

import (
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/blake2b"

	"pixstu_backend/pipeline"
)

// fingerprintPayload is the canonical serialization of every
// generation-affecting input. Field order is fixed by the struct; two
// invocations that would produce different images must serialize differently,
// and identical invocations must serialize identically.
type fingerprintPayload struct {
	Prompt   string               `json:"prompt"`
	Negative string               `json:"negative"`
	Preset   string               `json:"preset"`
	Model    string               `json:"model"`
	LoRAs    []fingerprintLoRA    `json:"loras,omitempty"`
	Steps    int                  `json:"steps"`
	CFG      float64              `json:"cfg"`
	Seed     int64                `json:"seed"`
	Width    int                  `json:"width"`
	Height   int                  `json:"height"`
	Strength float64              `json:"strength,omitempty"`
	Refs     fingerprintArtifacts `json:"refs"`
}

type fingerprintLoRA struct {
	Path   string  `json:"path"`
	Weight float64 `json:"weight"`
}

type fingerprintArtifacts struct {
	Reference string `json:"reference,omitempty"` // digest of reference bytes
	Mask      string `json:"mask,omitempty"`      // digest of mask bytes
}

// Fingerprint derives the deterministic cache key for one invocation. It
// digests the final resolved parameters, after preset merging, asset
// resolution and conditioning, so the LoRA list is the set actually applied
// and the denoising strength is whatever the conditioners settled on. The
// seed must already be concrete (never "random"); resolving it first is what
// keeps cache keys stable across runs. The device handle is provenance, not
// identity, and stays out of the key.
func Fingerprint(presetName string, params pipeline.Params) string {
	payload := fingerprintPayload{
		Prompt:   params.Prompt,
		Negative: params.NegativePrompt,
		Preset:   presetName,
		Model:    params.Model,
		Steps:    params.Steps,
		CFG:      params.CFG,
		Seed:     params.Seed,
		Width:    params.Width,
		Height:   params.Height,
		Strength: params.Strength,
	}
	for _, l := range params.LoRAs {
		payload.LoRAs = append(payload.LoRAs, fingerprintLoRA{Path: l.Path, Weight: l.Weight})
	}
	if params.Reference != nil {
		payload.Refs.Reference = digest(params.Reference)
	}
	if params.Mask != nil {
		payload.Refs.Mask = digest(params.Mask)
	}

	// Marshal cannot fail for this payload shape.
	serialized, _ := json.Marshal(payload)
	return digest(serialized)
}

func digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
