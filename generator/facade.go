package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"pixstu_backend/cache"
	"pixstu_backend/core"
	"pixstu_backend/device"
	"pixstu_backend/metadata"
	"pixstu_backend/pipeline"
	"pixstu_backend/presets"
)

// Generate runs one generation end to end: preset resolution, prompt
// composition, fingerprint cache lookup, device selection and the fallback
// chain around the pipeline, then artifact and sidecar persistence.
//
// Invalid input is rejected before any side effect. When every fallback tier
// fails the returned error is a *GenerationError and nothing has been written.
func (s *Session) Generate(ctx context.Context, req Request) (*Result, error) {
	if err := pipeline.ValidatePrompt(req.Prompt); err != nil {
		return nil, err
	}

	preset, err := s.presets.Get(req.Preset)
	if err != nil {
		return nil, err
	}

	var warnings []Warning
	missing := s.presets.MissingAssets(preset)
	if len(missing) > 0 {
		if s.strict {
			return nil, &MissingAssetError{Preset: preset.Name, Assets: missing}
		}
		for _, a := range missing {
			msg := fmt.Sprintf("LoRA %q not found at %s", a.DisplayPath, a.ResolvedPath)
			if a.SizeGB > 0 {
				msg += fmt.Sprintf(" (~%.1f GB download)", a.SizeGB)
			}
			warnings = append(warnings, Warning{
				Code:     WarnMissingAsset,
				Message:  msg,
				Download: a.Download,
			})
			s.logger.Warnw("preset asset missing, generating without it",
				"preset", preset.Name, "asset", a.DisplayPath)
		}
	}

	seed, err := ResolveSeed(req.Seed)
	if err != nil {
		return nil, err
	}

	params := s.buildParams(preset, req, seed, missing)
	for _, c := range req.Conditioners {
		if c == nil {
			continue
		}
		params = c.Apply(params)
	}
	if err := pipeline.ValidateParams(params); err != nil {
		return nil, err
	}

	fingerprint := Fingerprint(preset.Name, params)

	if res := s.lookupCache(fingerprint, warnings); res != nil {
		return res, nil
	}

	image, handle, err := s.runFallbackChain(ctx, params)
	if err != nil {
		return nil, err
	}

	imagePath, err := s.persistImage(preset.Name, image)
	if err != nil {
		return nil, err
	}

	record := metadata.NewRecord(preset.Name, seed, handle.String(), preset.Steps, preset.CFG)
	record.Prompt = params.Prompt
	record.NegativePrompt = params.NegativePrompt
	sidecarPath, err := metadata.Write(record, imagePath)
	if err != nil {
		// Keep outputs and sidecars paired; drop the orphaned image.
		os.Remove(imagePath)
		return nil, err
	}

	if err := s.cache.Put(cacheEntry(fingerprint, imagePath, sidecarPath)); err != nil {
		// The artifact is already safe on disk; a cache write failure only
		// costs a future hit.
		s.logger.Warnw("cache write failed", "fingerprint", fingerprint, "error", err)
	}

	s.logger.Infow("generation complete",
		"preset", preset.Name, "seed", seed, "device", handle.String(), "path", imagePath)

	return &Result{
		ImagePath:    imagePath,
		MetadataPath: sidecarPath,
		Image:        image,
		Record:       record,
		Fingerprint:  fingerprint,
		CacheHit:     false,
		Warnings:     warnings,
	}, nil
}

func cacheEntry(fingerprint, imagePath, sidecarPath string) cache.Entry {
	return cache.Entry{
		Fingerprint:  fingerprint,
		ResultPath:   imagePath,
		MetadataPath: sidecarPath,
	}
}

// buildParams resolves the preset and request into pipeline parameters.
// LoRAs whose files are missing are skipped rather than failing the run.
func (s *Session) buildParams(p presets.Preset, req Request, seed int64, missing []presets.MissingAsset) pipeline.Params {
	width, height := p.Resolution.Width, p.Resolution.Height
	if req.Width > 0 {
		width = req.Width
	}
	if req.Height > 0 {
		height = req.Height
	}

	absent := make(map[string]bool, len(missing))
	for _, a := range missing {
		absent[a.DisplayPath] = true
	}
	var loras []pipeline.LoRAWeight
	for _, l := range p.LoRAs {
		if absent[l.Path] {
			continue
		}
		loras = append(loras, pipeline.LoRAWeight{
			Path:   s.presets.ResolveAsset(l.Path),
			Weight: l.Weight,
		})
	}

	return pipeline.Params{
		Prompt:         ComposePrompt(req.Prompt, p.Positive),
		NegativePrompt: ComposeNegative(req.NegativePrompt, p.Negative),
		Steps:          p.Steps,
		CFG:            p.CFG,
		Seed:           seed,
		Width:          width,
		Height:         height,
		Model:          p.Model,
		LoRAs:          loras,
		Reference:      req.Reference,
		Mask:           req.Mask,
	}
}

// lookupCache returns a completed result when the fingerprint resolves to an
// entry whose artifact and sidecar are both still readable. A stale entry
// (files removed out from under the index) is evicted and reported as a miss.
func (s *Session) lookupCache(fingerprint string, warnings []Warning) *Result {
	entry, err := s.cache.Get(fingerprint)
	if err != nil {
		s.logger.Warnw("cache lookup failed", "fingerprint", fingerprint, "error", err)
		return nil
	}
	if entry == nil {
		return nil
	}

	image, err := os.ReadFile(entry.ResultPath)
	if err == nil {
		record, rerr := metadata.Read(entry.MetadataPath)
		if rerr == nil {
			s.logger.Infow("cache hit", "fingerprint", fingerprint, "path", entry.ResultPath)
			return &Result{
				ImagePath:    entry.ResultPath,
				MetadataPath: entry.MetadataPath,
				Image:        image,
				Record:       record,
				Fingerprint:  fingerprint,
				CacheHit:     true,
				Warnings:     warnings,
			}
		}
		err = rerr
	}

	s.logger.Warnw("evicting stale cache entry", "fingerprint", fingerprint, "error", err)
	if derr := s.cache.Delete(fingerprint); derr != nil {
		s.logger.Warnw("cache eviction failed", "fingerprint", fingerprint, "error", derr)
	}
	return nil
}

// runFallbackChain walks the device chain starting from the session's
// preference. Each accelerator tier gets one half-precision attempt and, when
// the failure is retryable, one full-precision retry before moving down the
// chain. Non-retryable failures stop the walk immediately.
func (s *Session) runFallbackChain(ctx context.Context, params pipeline.Params) ([]byte, device.Handle, error) {
	primary := s.selector.Select(s.preference)
	tiers := append([]device.Handle{primary}, s.selector.Fallbacks(primary.Backend)...)

	attempts := 0
	var last error
	for _, tier := range tiers {
		handles := []device.Handle{tier}
		if tier.Precision == device.FP16 {
			handles = append(handles, tier.WithPrecision(device.FP32))
		}
		for _, h := range handles {
			if err := ctx.Err(); err != nil {
				return nil, device.Handle{}, err
			}
			params.Device = h
			attempts++
			image, err := s.runAttempt(ctx, params)
			if err == nil {
				return image, h, nil
			}
			last = err
			if !pipeline.Retryable(err) {
				s.logger.Errorw("generation failed", "device", h.String(), "error", err)
				return nil, device.Handle{}, &GenerationError{Attempts: attempts, Last: last}
			}
			s.logger.Warnw("attempt failed, falling back", "device", h.String(), "error", err)
		}
	}

	return nil, device.Handle{}, &GenerationError{Attempts: attempts, Last: last}
}

func (s *Session) runAttempt(ctx context.Context, params pipeline.Params) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.pipe.Run(ctx, params)
}

// persistImage writes the encoded image under the outputs directory with a
// collision-free name derived from the preset and a fresh UUID.
func (s *Session) persistImage(presetName string, image []byte) (string, error) {
	if err := os.MkdirAll(s.outputsDir, 0o755); err != nil {
		return "", core.ErrOutputsDirUnusable(s.outputsDir, err.Error())
	}
	name := fmt.Sprintf("%s_%s.png", slugify(presetName), uuid.New().String())
	path := filepath.Join(s.outputsDir, name)
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", fmt.Errorf("generator: write image: %w", err)
	}
	return path, nil
}

// slugify reduces a preset name to a filesystem-friendly token.
func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "preset"
	}
	return b.String()
}
