package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIPipeline implements Pipeline using the OpenAI image API.
//
// This backend runs in the provider's cloud: device and precision hints are
// ignored, reference images and masks are unsupported, and the provider picks
// the nearest supported resolution. It exists for hosts with no usable local
// accelerator at all.
type OpenAIPipeline struct {
	client *openai.Client
	model  string
}

// OpenAIConfig holds configuration for the cloud provider.
type OpenAIConfig struct {
	// APIKey is the provider API key (required)
	APIKey string
	// BaseURL overrides the API endpoint (optional)
	BaseURL string
	// Model is the image model to use (default: dall-e-3)
	Model string
}

// NewOpenAIPipeline creates a cloud image pipeline.
func NewOpenAIPipeline(cfg OpenAIConfig) (*OpenAIPipeline, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pipeline: missing API key")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &OpenAIPipeline{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Run generates an image from the composed prompt and returns PNG bytes.
// Steps, CFG and seed cannot be forwarded to this provider; the negative
// prompt is folded into the prompt as an avoidance instruction so the
// enforced-negatives guarantee still shapes the output.
func (p *OpenAIPipeline) Run(ctx context.Context, params Params) ([]byte, error) {
	if err := ValidatePrompt(params.Prompt); err != nil {
		return nil, err
	}
	if params.Reference != nil {
		return nil, fmt.Errorf("%w: reference images are not supported by the cloud backend", ErrInvalidParams)
	}

	prompt := params.Prompt
	if params.NegativePrompt != "" {
		prompt = fmt.Sprintf("%s. Avoid: %s", prompt, params.NegativePrompt)
	}

	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          p.model,
		N:              1,
		Size:           nearestSize(params.Width, params.Height),
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ClassifyFailure(err.Error()), err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}

	image, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("%w: image payload not base64: %v", ErrGenerationFailed, err)
	}
	return image, nil
}

// nearestSize maps the requested resolution onto a provider-supported size.
func nearestSize(width, height int) string {
	switch {
	case width > height:
		return openai.CreateImageSize1792x1024
	case height > width:
		return openai.CreateImageSize1024x1792
	default:
		return openai.CreateImageSize1024x1024
	}
}
