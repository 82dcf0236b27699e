package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := Setup(Options{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	defer closeFn()

	logger.Debug("table loaded", "path", "/tmp/a.csv", "rows", 3)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record["msg"] != "table loaded" {
		t.Errorf("msg = %v, want table loaded", record["msg"])
	}
	if record["rows"] != float64(3) {
		t.Errorf("rows = %v, want 3", record["rows"])
	}
}

func TestSetupLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := Setup(Options{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestSetupRejectsUnknownFormat(t *testing.T) {
	if _, _, err := Setup(Options{Format: "xml"}); err == nil {
		t.Error("Setup() error = nil, want error for xml format")
	}
}

func TestMultiHandlerFansOut(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}}
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("Enabled(debug) = false, want true when any handler accepts it")
	}

	logger := slog.New(h).With("node", "n1")
	logger.Info("tick")

	if !strings.Contains(a.String(), "node=n1") {
		t.Errorf("first handler output = %q, want node attr", a.String())
	}
	if b.Len() != 0 {
		t.Errorf("second handler output = %q, want empty below its level", b.String())
	}
}
