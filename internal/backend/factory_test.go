package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"revdash/internal/config"
	"revdash/internal/sheets/memory"
	"revdash/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "mongo"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		DataBackend:         "sheets",
		GoogleSpreadsheetID: "abc",
		GoogleRecordsRange:  "Records!A:D",
		GoogleAPIKey:        "k",
		DataDir:             "/srv/data",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SheetsBackend || cfg.DataDirectory != "/srv/data" {
		t.Fatalf("unexpected backend config: %+v", cfg)
	}
	src := cfg.SheetsSource()
	if src.SpreadsheetID != "abc" || src.RecordsRange != "Records!A:D" || src.APIKey != "k" {
		t.Fatalf("unexpected source config: %+v", src)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "memory", cfg: Config{Type: MemoryBackend}},
		{name: "sqlite without path", cfg: Config{Type: SQLiteBackend}, wantErr: "SQLite database path is required"},
		{name: "sheets without id", cfg: Config{Type: SheetsBackend, GoogleAPIKey: "k"}, wantErr: "SpreadsheetID is required"},
		{name: "unknown", cfg: Config{Type: "csv"}, wantErr: "invalid backend type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFactoryCreatesMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, memory.RecordsFile), []byte("Date,Department,Cash,Online\n1/1/2025,Kitchen,1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.Backend.(*memory.Store); !ok {
		t.Fatalf("unexpected backend %T", res.Backend)
	}
	recs, err := res.Backend.FetchRecords(context.Background())
	if err != nil || len(recs) != 1 {
		t.Fatalf("records = %v, %v", recs, err)
	}
}

func TestFactoryCreatesSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "revdash.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatal(err)
	}
	defer res.Cleanup()
	if _, ok := res.Backend.(*storage.SQLiteRepository); !ok {
		t.Fatalf("unexpected backend %T", res.Backend)
	}
	if err := res.Backend.TestConnection(context.Background()); err != nil {
		t.Fatalf("test connection: %v", err)
	}
}

func TestFactoryRejectsInvalidSheetsConfig(t *testing.T) {
	_, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SheetsBackend})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if strings.Join(got, ",") != "sqlite,sheets,memory" {
		t.Fatalf("got %v", got)
	}
}
