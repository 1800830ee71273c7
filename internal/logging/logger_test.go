package logging

import (
	"log/slog"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  slog.Level
		format string
	}{
		{
			name:   "json format with info level",
			level:  slog.LevelInfo,
			format: "json",
		},
		{
			name:   "text format with debug level",
			level:  slog.LevelDebug,
			format: "text",
		},
		{
			name:   "default format (json) with error level",
			level:  slog.LevelError,
			format: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level, tt.format)
			if logger == nil {
				t.Fatal("expected non-nil logger")
			}
			if logger.Logger == nil {
				t.Fatal("expected non-nil underlying logger")
			}
		})
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	if logger.Logger == nil {
		t.Fatal("expected non-nil underlying logger")
	}
}

func TestWith(t *testing.T) {
	logger := New(slog.LevelInfo, "json")
	child := logger.With(Transport("udp"))
	if child == nil || child.Logger == nil {
		t.Fatal("expected non-nil child logger")
	}
	if child == logger {
		t.Error("With() should return a new logger")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
