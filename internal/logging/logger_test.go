package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"roadwatch/internal/config"
)

func TestNewConsoleJSONTagsService(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger, closeFn, err := newLogger(config.LogConfig{
		Console: config.LogSinkConfig{Enabled: true, Level: "info", Format: "json"},
	}, "roadwatch", &out)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer closeFn()

	logger.Debug("hidden")
	logger.Info("escalation cycle finished", "alerts", 2)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", out.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if record["service"] != "roadwatch" || record["msg"] != "escalation cycle finished" {
		t.Fatalf("record=%v", record)
	}
	if _, ok := record["time"]; ok {
		t.Fatalf("console sink must omit time: %v", record)
	}
}

func TestNewConsoleLineIsColored(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	logger, closeFn, err := newLogger(config.LogConfig{
		Console: config.LogSinkConfig{Enabled: true, Level: "debug", Format: "line"},
	}, "", &out)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	defer closeFn()

	logger.Warn("outbox full")
	if !strings.HasPrefix(out.String(), ansiYellow) || !strings.HasSuffix(out.String(), ansiReset+"\n") {
		t.Fatalf("unexpected console line %q", out.String())
	}
}

func TestNewTeeWritesFileSink(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "roadwatch.log")
	var out bytes.Buffer
	logger, closeFn, err := newLogger(config.LogConfig{
		Console: config.LogSinkConfig{Enabled: true, Level: "error", Format: "json"},
		File:    config.LogSinkConfig{Enabled: true, Level: "info", Format: "json", Path: path},
	}, "roadwatch", &out)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("notification persisted")
	closeFn()

	if out.Len() != 0 {
		t.Fatalf("console sink must filter info, got %q", out.String())
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(body), `"msg":"notification persisted"`) {
		t.Fatalf("file log=%q", body)
	}
}

func TestNewRejectsInvalidSinks(t *testing.T) {
	t.Parallel()

	tests := []config.LogConfig{
		{},
		{Console: config.LogSinkConfig{Enabled: true, Level: "trace", Format: "json"}},
		{Console: config.LogSinkConfig{Enabled: true, Level: "info", Format: "xml"}},
	}
	for i, cfg := range tests {
		if _, _, err := newLogger(cfg, "", &bytes.Buffer{}); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"debug", "INFO", " warn ", "error"} {
		if _, err := ParseLevel(value); err != nil {
			t.Fatalf("level %q: %v", value, err)
		}
	}
}
