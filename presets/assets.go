package presets

import (
	"os"
	"path/filepath"
)

// MissingAsset describes a LoRA reference whose file is absent locally,
// along with everything the caller needs to suggest a remediation.
type MissingAsset struct {
	DisplayPath  string  // path as written in the preset document
	ResolvedPath string  // absolute path where the asset was expected
	Download     string  // optional download hint from the preset
	SizeGB       float64 // approximate download size, when known
}

// ResolveAssetPath returns an absolute path for a preset asset reference.
//
// Curated documents reference assets relative to the project root (for example
// "loras/example.safetensors"). The portable launcher instead places assets
// under a models root exposed via PIXSTU_MODELS_ROOT. Resolution tries, in
// order: the path as-is if absolute, the current working directory, then the
// models root; the first existing candidate wins. When nothing exists the
// first candidate is returned absolute so downstream consumers still get a
// consistent location to report.
func ResolveAssetPath(path, modelsRoot string) string {
	if path == "" {
		return ""
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, path))
	}
	if modelsRoot != "" {
		candidates = append(candidates, filepath.Join(modelsRoot, path))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return filepath.Clean(candidate)
		}
	}

	if len(candidates) > 0 {
		return filepath.Clean(candidates[0])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// ResolveAsset resolves an asset reference against this store's models root.
func (s *Store) ResolveAsset(path string) string {
	return ResolveAssetPath(path, s.modelsRoot)
}

// MissingAssets reports every LoRA in the preset whose resolved file does not
// exist. An empty result means the preset is ready for generation. This is a
// pure filesystem check; nothing is mutated.
func (s *Store) MissingAssets(p Preset) []MissingAsset {
	var missing []MissingAsset
	for _, l := range p.LoRAs {
		resolved := ResolveAssetPath(l.Path, s.modelsRoot)
		if resolved == "" {
			continue
		}
		if _, err := os.Stat(resolved); err == nil {
			continue
		}
		missing = append(missing, MissingAsset{
			DisplayPath:  l.Path,
			ResolvedPath: resolved,
			Download:     l.Download,
			SizeGB:       l.SizeGB,
		})
	}
	return missing
}
