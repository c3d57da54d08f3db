package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLogLevelString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		def   zapcore.Level
		want  zapcore.Level
	}{
		{name: "debug", input: "debug", def: zapcore.InfoLevel, want: zapcore.DebugLevel},
		{name: "info", input: "info", def: zapcore.ErrorLevel, want: zapcore.InfoLevel},
		{name: "warn", input: "warn", def: zapcore.InfoLevel, want: zapcore.WarnLevel},
		{name: "warning alias", input: "warning", def: zapcore.InfoLevel, want: zapcore.WarnLevel},
		{name: "error", input: "error", def: zapcore.InfoLevel, want: zapcore.ErrorLevel},
		{name: "fatal", input: "fatal", def: zapcore.InfoLevel, want: zapcore.FatalLevel},
		{name: "mixed case", input: "DeBuG", def: zapcore.InfoLevel, want: zapcore.DebugLevel},
		{name: "whitespace", input: "  info  ", def: zapcore.ErrorLevel, want: zapcore.InfoLevel},
		{name: "unknown uses default", input: "verbose", def: zapcore.WarnLevel, want: zapcore.WarnLevel},
		{name: "empty uses default", input: "", def: zapcore.InfoLevel, want: zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLogLevelString(tt.input, tt.def); got != tt.want {
				t.Errorf("ParseLogLevelString(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseLogLevel_EnvOverride(t *testing.T) {
	const key = "TEST_PIXSTU_LOG_LEVEL"

	t.Setenv(key, "error")
	if got := ParseLogLevel(key, zapcore.InfoLevel); got != zapcore.ErrorLevel {
		t.Errorf("ParseLogLevel() = %v, want %v", got, zapcore.ErrorLevel)
	}

	t.Setenv(key, "not-a-level")
	if got := ParseLogLevel(key, zapcore.InfoLevel); got != zapcore.InfoLevel {
		t.Errorf("ParseLogLevel() with bad value = %v, want default", got)
	}
}
