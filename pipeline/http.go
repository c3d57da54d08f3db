package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPPipeline invokes a Stable Diffusion web API (AUTOMATIC1111-compatible)
// over JSON. It implements Pipeline for both txt2img and img2img: when
// Params.Reference is set the img2img route is used, with the optional mask
// enabling inpainting.
//
// LoRA adapters are passed the way the web API expects them: as prompt tags
// of the form <lora:name:weight>.
type HTTPPipeline struct {
	host   string
	client *http.Client
}

// HTTPConfig holds configuration for the web API client.
type HTTPConfig struct {
	// Host is the server base URL, e.g. http://127.0.0.1:7860
	Host string
	// Timeout bounds a single request. Zero means no client-side timeout;
	// the caller's context still applies.
	Timeout time.Duration
}

// NewHTTPPipeline creates a web API pipeline client.
func NewHTTPPipeline(cfg HTTPConfig) (*HTTPPipeline, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("pipeline: missing host")
	}
	return &HTTPPipeline{
		host:   strings.TrimRight(cfg.Host, "/"),
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// txt2imgRequest is the wire shape for the txt2img route.
type txt2imgRequest struct {
	Prompt           string                 `json:"prompt"`
	NegativePrompt   string                 `json:"negative_prompt"`
	Width            int                    `json:"width"`
	Height           int                    `json:"height"`
	Steps            int                    `json:"steps"`
	CfgScale         float64                `json:"cfg_scale"`
	Seed             int64                  `json:"seed"`
	BatchSize        int                    `json:"batch_size"`
	NIter            int                    `json:"n_iter"`
	SamplerName      string                 `json:"sampler_name,omitempty"`
	OverrideSettings map[string]interface{} `json:"override_settings,omitempty"`
}

// img2imgRequest extends the txt2img shape with the reference/mask fields.
type img2imgRequest struct {
	txt2imgRequest
	InitImages        []string `json:"init_images"`
	Mask              string   `json:"mask,omitempty"`
	DenoisingStrength float64  `json:"denoising_strength"`
	InpaintingFill    int      `json:"inpainting_fill,omitempty"`
}

// apiResponse is the wire shape of a successful generation response.
type apiResponse struct {
	Images []string `json:"images"`
	Detail string   `json:"detail"`
}

// Run invokes the web API and returns the generated PNG bytes.
// Server-side failures are classified into the package error taxonomy so the
// facade can decide whether a fallback tier is worth trying.
func (p *HTTPPipeline) Run(ctx context.Context, params Params) ([]byte, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}

	base := txt2imgRequest{
		Prompt:         withLoRATags(params.Prompt, params.LoRAs),
		NegativePrompt: params.NegativePrompt,
		Width:          params.Width,
		Height:         params.Height,
		Steps:          params.Steps,
		CfgScale:       params.CFG,
		Seed:           params.Seed,
		BatchSize:      1,
		NIter:          1,
	}
	if params.Model != "" {
		base.OverrideSettings = map[string]interface{}{
			"sd_model_checkpoint": params.Model,
		}
	}
	if params.Device.Precision == "fp32" {
		if base.OverrideSettings == nil {
			base.OverrideSettings = map[string]interface{}{}
		}
		// Precision downgrade hint for servers that honor it.
		base.OverrideSettings["upcast_attn"] = true
	}

	var (
		route   string
		payload interface{}
	)
	if params.Reference != nil {
		req := img2imgRequest{
			txt2imgRequest:    base,
			InitImages:        []string{base64.StdEncoding.EncodeToString(params.Reference)},
			DenoisingStrength: params.Strength,
		}
		if params.Mask != nil {
			req.Mask = base64.StdEncoding.EncodeToString(params.Mask)
			req.InpaintingFill = 1
		}
		route = "/sdapi/v1/img2img"
		payload = req
	} else {
		route = "/sdapi/v1/txt2img"
		payload = base
	}

	body, err := p.post(ctx, route, payload)
	if err != nil {
		return nil, err
	}

	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unexpected response: %v", ErrGenerationFailed, err)
	}
	if len(resp.Images) == 0 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("%w: %s", ClassifyFailure(resp.Detail), resp.Detail)
		}
		return nil, fmt.Errorf("%w: response contained no images", ErrGenerationFailed)
	}

	image, err := base64.StdEncoding.DecodeString(resp.Images[0])
	if err != nil {
		return nil, fmt.Errorf("%w: image payload not base64: %v", ErrGenerationFailed, err)
	}
	return image, nil
}

func (p *HTTPPipeline) post(ctx context.Context, route string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("pipeline: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+route, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("pipeline: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrGenerationFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d: %s",
			ClassifyFailure(string(body)), resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

// withLoRATags appends web API LoRA tags to the prompt.
// The adapter name is the file base name without extension.
func withLoRATags(prompt string, loras []LoRAWeight) string {
	if len(loras) == 0 {
		return prompt
	}
	var b strings.Builder
	b.WriteString(prompt)
	for _, l := range loras {
		name := l.Path
		if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
			name = name[idx+1:]
		}
		if idx := strings.LastIndex(name, "."); idx > 0 {
			name = name[:idx]
		}
		fmt.Fprintf(&b, " <lora:%s:%g>", name, l.Weight)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
