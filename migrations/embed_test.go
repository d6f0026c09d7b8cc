package migrations

import (
	"strings"
	"testing"
)

func TestEmbeddedFS_ContainsMigrationFiles(t *testing.T) {
	// Given: The embedded filesystem
	// When: We read the directory
	entries, err := FS.ReadDir(".")
	if err != nil {
		t.Fatalf("failed to read embedded FS: %v", err)
	}

	// Then: It contains the initial schema migration
	found := false
	for _, entry := range entries {
		if entry.Name() == "001_initial_schema.sql" {
			found = true
			break
		}
	}

	if !found {
		t.Error("001_initial_schema.sql not found in embedded FS")
	}
}

func TestEmbeddedFS_MigrationFileReadable(t *testing.T) {
	// Given: The embedded filesystem
	// When: We read the migration file
	content, err := FS.ReadFile("001_initial_schema.sql")
	if err != nil {
		t.Fatalf("failed to read migration file: %v", err)
	}

	// Then: It contains goose directives and the sync tables
	contentStr := string(content)
	if len(contentStr) == 0 {
		t.Error("migration file is empty")
	}

	if !strings.Contains(contentStr, "-- +goose Up") {
		t.Error("migration missing '-- +goose Up' directive")
	}
	if !strings.Contains(contentStr, "-- +goose Down") {
		t.Error("migration missing '-- +goose Down' directive")
	}
	for _, table := range []string{"topics", "questions", "progress", "quiz_sessions", "pending_deletes", "sync_meta"} {
		if !strings.Contains(contentStr, "CREATE TABLE "+table) {
			t.Errorf("migration missing %s table creation", table)
		}
	}
}
