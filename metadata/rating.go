package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// ErrInvalidRating indicates a score outside the 1..5 range.
// The sidecar file is left untouched when this is returned.
var ErrInvalidRating = errors.New("metadata: rating must be between 1 and 5")

// Rate annotates an existing sidecar with a score.
//
// Validation happens before any side effect: an out-of-range score rejects
// without reading or writing the file. The rewrite is read-modify-write over
// a generic map so fields this version of the code does not know about are
// preserved byte-for-value.
func Rate(sidecarPath string, score int) error {
	if score < MinRating || score > MaxRating {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, score)
	}

	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		return fmt.Errorf("metadata: read sidecar: %w", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("metadata: decode sidecar %s: %w", sidecarPath, err)
	}

	fields["rating"] = score

	payload, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return fmt.Errorf("metadata: encode sidecar: %w", err)
	}
	payload = append(payload, '\n')

	if err := os.WriteFile(sidecarPath, payload, 0o644); err != nil {
		return fmt.Errorf("metadata: write sidecar: %w", err)
	}
	return nil
}
