package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if err := Init(WithLevel("loud")); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat("json"), WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("api").Info(context.Background(), "request served", String("path", "/rankings"), Int("status", 200))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v: %s", err, buf.String())
	}
	if rec["msg"] != "request served" || rec["component"] != "api" || rec["path"] != "/rankings" {
		t.Errorf("unexpected record: %v", rec)
	}
	if src, _ := rec["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Errorf("source should point at the caller, got %q", src)
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf), WithLevel("warn")); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	ctx := context.Background()

	Get().Info(ctx, "hidden")
	Get().Warn(ctx, "shown", Error(errors.New("boom")))
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("level filter not applied: %s", buf.String())
	}

	if err := SetLevelString("debug"); err != nil {
		t.Fatal(err)
	}
	Get().Debug(ctx, "now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("runtime level change not applied: %s", buf.String())
	}
	_ = SetLevelString("info")
}
