package core

import (
	"net/url"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
// A .env file is loaded by main before this is populated (godotenv).
type Config struct {
	// PresetFile is the path to the curated preset JSON document
	PresetFile string

	// ModelsRoot is the portable-launcher asset root; preset-relative LoRA
	// paths are resolved beneath it when set
	ModelsRoot string

	// OutputsDir is where generated images and metadata sidecars are written
	OutputsDir string

	// CachePath is the SQLite cache index file path
	CachePath string

	// Provider selects the pipeline backend: "http" (SD web API) or "openai"
	Provider string

	// PipelineURL is the SD web API endpoint (http provider)
	PipelineURL string

	// OpenAIKey is the API key for the cloud provider (openai provider)
	OpenAIKey string

	// DevicePreference overrides the device probe order when set
	// (one of "cuda", "rocm", "mps", "cpu")
	DevicePreference string

	// StrictAssets turns missing LoRA assets from warnings into hard errors
	StrictAssets bool

	// ReferenceStrength is the default denoising strength for img2img
	// requests (0..1)
	ReferenceStrength float64

	// GenerationTimeout bounds a single pipeline invocation
	GenerationTimeout time.Duration

	// LogFile is the structured log output path
	LogFile string

	// DevMode enables human-readable console logging at debug level
	DevMode bool
}

// Default configuration values
const (
	DefaultPresetFile        = "configs/curated_models.json"
	DefaultOutputsDir        = "outputs"
	DefaultCachePath         = ".pixstu/cache.sqlite"
	DefaultProvider          = "http"
	DefaultPipelineURL       = "http://127.0.0.1:7860"
	DefaultLogFile           = "pixstu.log"
	DefaultTimeoutSeconds    = 300
	DefaultReferenceStrength = 0.75
	ProviderHTTP             = "http"
	ProviderOpenAI           = "openai"
)

// LoadConfig reads configuration from environment variables, applying
// defaults for everything optional. Returns a ConfigError for values that
// cannot possibly work (bad endpoint URL, unknown provider).
func LoadConfig() (*Config, error) {
	cfg := &Config{
		PresetFile:        GetEnvOrDefault("PIXSTU_PRESET_FILE", DefaultPresetFile),
		ModelsRoot:        GetEnvOrDefault("PIXSTU_MODELS_ROOT", ""),
		OutputsDir:        GetEnvOrDefault("PIXSTU_OUTPUTS_DIR", DefaultOutputsDir),
		CachePath:         GetEnvOrDefault("PIXSTU_CACHE_PATH", DefaultCachePath),
		Provider:          strings.ToLower(GetEnvOrDefault("PIXSTU_PROVIDER", DefaultProvider)),
		PipelineURL:       GetEnvOrDefault("PIXSTU_PIPELINE_URL", DefaultPipelineURL),
		OpenAIKey:         GetEnvOrDefault("OPENAI_API_KEY", ""),
		DevicePreference:  strings.ToLower(GetEnvOrDefault("PIXSTU_DEVICE", "")),
		StrictAssets:      ParseBoolEnv("PIXSTU_STRICT_ASSETS", false),
		ReferenceStrength: ParseFloat64Env("PIXSTU_REFERENCE_STRENGTH", DefaultReferenceStrength),
		GenerationTimeout: ParseDurationEnv("PIXSTU_TIMEOUT_SECONDS", DefaultTimeoutSeconds),
		LogFile:           GetEnvOrDefault("PIXSTU_LOG_FILE", DefaultLogFile),
		DevMode:           ParseBoolEnv("DEV_MODE", false),
	}

	switch cfg.Provider {
	case ProviderHTTP:
		if err := validatePipelineURL(cfg.PipelineURL); err != nil {
			return nil, err
		}
	case ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, ErrMissingConfig("OPENAI_API_KEY")
		}
	default:
		return nil, ErrInvalidEndpoint(cfg.Provider, "unknown provider (use http or openai)")
	}

	return cfg, nil
}

// validatePipelineURL checks that the SD web API endpoint is a usable http(s) URL.
func validatePipelineURL(raw string) error {
	if raw == "" {
		return ErrMissingConfig("PIXSTU_PIPELINE_URL")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidEndpoint(raw, err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidEndpoint(raw, "scheme must be http or https")
	}
	if parsed.Host == "" {
		return ErrInvalidEndpoint(raw, "missing host")
	}
	return nil
}
