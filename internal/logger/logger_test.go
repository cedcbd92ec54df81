package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestLogBeforeInit(t *testing.T) {
	// The package loggers must be usable without Init.
	Info("not initialized")
	Sugar.Debugf("value %d", 1)
	Named("test").Warn("still fine")
}

func TestLogLevels(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		level    string
		expected []string
		excluded []string
	}{
		{"error", []string{"ERROR"}, []string{"WARN", "INFO", "DEBUG"}},
		{"warn", []string{"ERROR", "WARN"}, []string{"INFO", "DEBUG"}},
		{"info", []string{"ERROR", "WARN", "INFO"}, []string{"DEBUG"}},
		{"debug", []string{"ERROR", "WARN", "INFO", "DEBUG"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logFile := filepath.Join(tempDir, tt.level+".log")

			cfg := FileConfig{Path: logFile, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1}
			if err := InitWithFileConfig(tt.level, cfg, nil); err != nil {
				t.Fatalf("failed to init logger: %v", err)
			}

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")
			Sync()

			content, err := os.ReadFile(logFile)
			if err != nil {
				t.Fatalf("failed to read log file: %v", err)
			}
			logContent := string(content)

			for _, exp := range tt.expected {
				if !strings.Contains(logContent, exp) {
					t.Errorf("expected %s in log output", exp)
				}
			}
			for _, exc := range tt.excluded {
				if strings.Contains(logContent, exc) {
					t.Errorf("unexpected %s in log output for level %s", exc, tt.level)
				}
			}
		})
	}
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithFileConfig("info", FileConfig{}, &buf); err != nil {
		t.Fatal(err)
	}
	defer func() { Log, Sugar = zap.NewNop(), zap.NewNop().Sugar() }()

	Named("exporter").Info("scene written", zap.String("path", "out.dwn"), zap.Int("bytes", 70))
	Debug("hidden")

	out := buf.String()
	for _, want := range []string{"scene written", "out.dwn", "70"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output %q is missing %q", out, want)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug message written at info level")
	}
}

func TestParseLevel(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		if _, err := ParseLevel(level); err != nil {
			t.Errorf("ParseLevel(%q) failed: %v", level, err)
		}
	}

	_, err := ParseLevel("verbose")
	if !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("got %v, want ErrInvalidLevel", err)
	}
	if err := InitWithFileConfig("verbose", FileConfig{}, nil); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("Init with a bad level: got %v", err)
	}
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/tmp/dwntool.log")

	if cfg.Path != "/tmp/dwntool.log" {
		t.Errorf("expected path /tmp/dwntool.log, got %s", cfg.Path)
	}
	if cfg.MaxSizeMB != 10 || cfg.MaxBackups != 3 || cfg.MaxAgeDays != 14 {
		t.Errorf("unexpected rotation settings: %+v", cfg)
	}
	if !cfg.Compress {
		t.Error("expected Compress to be true")
	}
}
