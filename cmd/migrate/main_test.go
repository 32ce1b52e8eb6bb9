package main

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_init.sql", true, "0001", "init"},
		{"0012_add_sync_runs.sql", true, "0012", "add_sync_runs"},
		{"001_invalid.sql", false, "", ""},        // wrong number format
		{"0001_test", false, "", ""},              // missing .sql
		{"0001.sql", false, "", ""},               // missing name
		{"invalid_0001_test.sql", false, "", ""},  // wrong order
	}

	pattern := regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			matches := pattern.FindStringSubmatch(tt.filename)
			if !tt.valid {
				if matches != nil {
					t.Fatalf("expected %s to be rejected, matched %v", tt.filename, matches)
				}
				return
			}
			if matches == nil {
				t.Fatalf("expected %s to match", tt.filename)
			}
			if matches[1] != tt.version || matches[2] != tt.name {
				t.Errorf("got version %q name %q, want %q %q", matches[1], matches[2], tt.version, tt.name)
			}
		})
	}
}

func TestReadMigrationsOrderAndChecksum(t *testing.T) {
	dir := t.TempDir()

	second := []byte("CREATE INDEX idx_transactions_updated ON transactions (updated_at);")
	first := []byte("CREATE TABLE accounts (id BIGINT PRIMARY KEY);")

	writeFile(t, dir, "0002_add_index.sql", second)
	writeFile(t, dir, "0001_init.sql", first)
	writeFile(t, dir, "README.md", []byte("not a migration"))
	writeFile(t, dir, "001_short.sql", []byte("ignored"))

	migrations, err := readMigrations(dir)
	if err != nil {
		t.Fatalf("readMigrations() error = %v", err)
	}

	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != 1 || migrations[1].Version != 2 {
		t.Errorf("expected versions [1 2], got [%d %d]", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].Name != "init" {
		t.Errorf("expected name init, got %q", migrations[0].Name)
	}
	if migrations[0].SQL != string(first) {
		t.Errorf("SQL content mismatch for 0001_init.sql")
	}

	wantChecksum := fmt.Sprintf("%x", sha256.Sum256(first))
	if migrations[0].Checksum != wantChecksum {
		t.Errorf("checksum mismatch: got %s, want %s", migrations[0].Checksum, wantChecksum)
	}
	if migrations[0].Checksum == migrations[1].Checksum {
		t.Error("different files should not share a checksum")
	}
}

func TestReadMigrationsMissingDir(t *testing.T) {
	if _, err := readMigrations(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected an error for a missing directory")
	}
}

func writeFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}
