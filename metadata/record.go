// Package metadata persists provenance sidecars next to generated assets and
// handles the later rating annotation and its aggregation.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Record is the JSON sidecar written beside every generated image.
// The seed is always the concrete value actually used, recorded verbatim for
// reproducibility. Rating is absent until the asset is rated.
type Record struct {
	Preset         string  `json:"preset"`
	Seed           int64   `json:"seed"`
	Device         string  `json:"device"`
	Timestamp      string  `json:"timestamp"` // ISO-8601
	Steps          int     `json:"steps"`
	CFG            float64 `json:"cfg"`
	Prompt         string  `json:"prompt,omitempty"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Rating         *int    `json:"rating,omitempty"`
}

// NewRecord builds a Record with the timestamp set to now.
func NewRecord(preset string, seed int64, deviceName string, steps int, cfg float64) Record {
	return Record{
		Preset:    preset,
		Seed:      seed,
		Device:    deviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Steps:     steps,
		CFG:       cfg,
	}
}

// SidecarPath derives the sidecar location for an image path:
// outputs/abc.png -> outputs/abc.json.
func SidecarPath(imagePath string) string {
	ext := filepath.Ext(imagePath)
	return strings.TrimSuffix(imagePath, ext) + ".json"
}

// Write persists the record beside the given image path and returns the
// sidecar path. Parent directories are created as needed.
func Write(record Record, imagePath string) (string, error) {
	path := SidecarPath(imagePath)
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("metadata: create output directory: %w", err)
		}
	}

	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("metadata: encode record: %w", err)
	}
	payload = append(payload, '\n')

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("metadata: write sidecar: %w", err)
	}
	return path, nil
}

// Read loads a sidecar record.
func Read(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("metadata: read sidecar: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return Record{}, fmt.Errorf("metadata: decode sidecar %s: %w", path, err)
	}
	return record, nil
}
