package metadata

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PresetRating summarizes the ratings recorded for one preset.
type PresetRating struct {
	Preset  string
	Average float64
	Count   int
}

// Aggregate walks the outputs directory, collects every rated sidecar and
// reports per-preset averages sorted by preset name.
//
// Unreadable or unparseable sidecars are skipped: aggregation is a reporting
// convenience and should never fail because one file went bad.
func Aggregate(outputsDir string) ([]PresetRating, error) {
	sums := make(map[string]int)
	counts := make(map[string]int)

	err := filepath.WalkDir(outputsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		var fields struct {
			Preset string `json:"preset"`
			Rating *int   `json:"rating"`
		}
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil
		}
		if fields.Rating == nil {
			return nil
		}

		preset := fields.Preset
		if preset == "" {
			preset = "unknown"
		}
		sums[preset] += *fields.Rating
		counts[preset]++
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]PresetRating, 0, len(counts))
	for preset, count := range counts {
		out = append(out, PresetRating{
			Preset:  preset,
			Average: float64(sums[preset]) / float64(count),
			Count:   count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Preset < out[j].Preset })
	return out, nil
}
