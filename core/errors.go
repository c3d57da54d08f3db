package core

import (
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
// Configuration problems are never retried: they abort startup and tell the
// operator exactly what to fix.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodePresetFileMissing   = "PRESET_FILE_MISSING"
	ErrCodePresetFileMalformed = "PRESET_FILE_MALFORMED"
	ErrCodePresetInvalid       = "PRESET_INVALID"
	ErrCodeMissingConfig       = "MISSING_CONFIG"
	ErrCodeInvalidEndpoint     = "INVALID_ENDPOINT"
	ErrCodeOutputsDirUnusable  = "OUTPUTS_DIR_UNUSABLE"
)

// ErrPresetFileMissing returns an error for a missing preset document.
func ErrPresetFileMissing(path string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodePresetFileMissing,
		Message: fmt.Sprintf("Preset file not found: %s", path),
		Action:  "Create configs/curated_models.json or point PIXSTU_PRESET_FILE at an existing preset document",
	}
}

// ErrPresetFileMalformed returns an error for unparseable preset JSON.
func ErrPresetFileMalformed(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodePresetFileMalformed,
		Message: fmt.Sprintf("Preset file %s is not valid JSON: %s", path, reason),
		Action:  "Fix the JSON syntax; the file must be a list of presets or an object with a 'presets' array",
	}
}

// ErrPresetInvalid returns an error for a preset missing required fields.
func ErrPresetInvalid(name string, reason string) *ConfigError {
	label := name
	if label == "" {
		label = "(unnamed)"
	}
	return &ConfigError{
		Code:    ErrCodePresetInvalid,
		Message: fmt.Sprintf("Preset %s is invalid: %s", label, reason),
		Action:  "Every preset needs name, model, steps, cfg and resolution fields",
	}
}

// ErrMissingConfig returns an error for missing required configuration.
func ErrMissingConfig(varName string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", varName),
		Action:  fmt.Sprintf("Set %s in your .env file", varName),
	}
}

// ErrInvalidEndpoint returns an error for an unusable pipeline endpoint URL.
func ErrInvalidEndpoint(url string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidEndpoint,
		Message: fmt.Sprintf("Invalid pipeline endpoint '%s': %s", url, reason),
		Action:  "Set PIXSTU_PIPELINE_URL to a valid http(s) URL (e.g. http://127.0.0.1:7860)",
	}
}

// ErrOutputsDirUnusable returns an error when the outputs directory cannot be created.
func ErrOutputsDirUnusable(dir string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeOutputsDirUnusable,
		Message: fmt.Sprintf("Cannot use outputs directory %s: %s", dir, reason),
		Action:  "Set PIXSTU_OUTPUTS_DIR to a writable location",
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so.
func IsConfigError(err error) (*ConfigError, bool) {
	if configErr, ok := err.(*ConfigError); ok {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError.
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
