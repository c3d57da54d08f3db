package generator

import (
	"errors"
	"time"

	"pixstu_backend/cache"
	"pixstu_backend/device"
	"pixstu_backend/logging"
	"pixstu_backend/pipeline"
	"pixstu_backend/presets"
)

// SessionConfig wires the collaborators a Session needs. Presets, Cache and
// Pipeline are required; the rest fall back to sensible defaults.
type SessionConfig struct {
	Presets  *presets.Store
	Cache    *cache.Store
	Pipeline pipeline.Pipeline
	Selector *device.Selector
	Logger   *logging.Logger

	// OutputsDir is where generated images and sidecars are written.
	OutputsDir string

	// DevicePreference optionally pins the device chain entry point
	// (e.g. "cuda", "cpu"). Empty means best available.
	DevicePreference string

	// StrictAssets turns missing preset assets into hard errors instead of
	// warnings.
	StrictAssets bool

	// GenerationTimeout bounds a single pipeline invocation. Zero disables
	// the per-attempt deadline.
	GenerationTimeout time.Duration
}

// Session holds everything a generation needs: the device selector, the
// fingerprint cache, the preset store and the pipeline. Callers create one at
// startup, pass it into Generate, and Close it on shutdown.
type Session struct {
	presets  *presets.Store
	cache    *cache.Store
	pipe     pipeline.Pipeline
	selector *device.Selector
	logger   *logging.Logger

	outputsDir string
	preference string
	strict     bool
	timeout    time.Duration
}

// NewSession validates cfg and returns a ready Session.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Presets == nil {
		return nil, errors.New("generator: preset store is required")
	}
	if cfg.Cache == nil {
		return nil, errors.New("generator: cache store is required")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("generator: pipeline is required")
	}

	selector := cfg.Selector
	if selector == nil {
		selector = device.NewSelector()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewTestLogger()
	}
	outputs := cfg.OutputsDir
	if outputs == "" {
		outputs = "outputs"
	}

	return &Session{
		presets:    cfg.Presets,
		cache:      cfg.Cache,
		pipe:       cfg.Pipeline,
		selector:   selector,
		logger:     logger,
		outputsDir: outputs,
		preference: cfg.DevicePreference,
		strict:     cfg.StrictAssets,
		timeout:    cfg.GenerationTimeout,
	}, nil
}

// OutputsDir returns the directory generated artifacts are written to.
func (s *Session) OutputsDir() string {
	return s.outputsDir
}

// Presets exposes the preset store for callers that list or tune presets.
func (s *Session) Presets() *presets.Store {
	return s.presets
}

// Close releases the session's resources. The session must not be used
// afterwards.
func (s *Session) Close() error {
	return s.cache.Close()
}
