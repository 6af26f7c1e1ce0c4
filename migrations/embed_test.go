package migrations

import (
	"strings"
	"testing"
)

func TestEmbeddedFS_ContainsMigrationFiles(t *testing.T) {
	entries, err := FS.ReadDir(".")
	if err != nil {
		t.Fatalf("failed to read embedded FS: %v", err)
	}

	want := map[string]bool{"001_events.sql": false, "002_catalog.sql": false}
	for _, entry := range entries {
		if _, ok := want[entry.Name()]; ok {
			want[entry.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("%s not found in embedded FS", name)
		}
	}
}

func TestEmbeddedFS_HasGooseDirectives(t *testing.T) {
	for _, name := range []string{"001_events.sql", "002_catalog.sql"} {
		content, err := FS.ReadFile(name)
		if err != nil {
			t.Fatalf("failed to read %s: %v", name, err)
		}
		s := string(content)
		if !strings.Contains(s, "-- +goose Up") || !strings.Contains(s, "-- +goose Down") {
			t.Errorf("%s is missing goose directives", name)
		}
	}
}
