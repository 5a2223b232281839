package bigquery

import (
	"testing"

	"github.com/classpulse/classpulse-backend/pkg/config"
)

func TestConfiguredTables(t *testing.T) {
	cfg := config.BigQueryConfig{
		AttendanceFactsTable: " attendance_facts ",
	}

	tables := configuredTables(cfg)
	if len(tables) != 1 {
		t.Fatalf("expected 1 table, got %d", len(tables))
	}
	if tables[0] != "attendance_facts" {
		t.Fatalf("expected trimmed table name, got %q", tables[0])
	}
}

func TestConfiguredTablesEmpty(t *testing.T) {
	if tables := configuredTables(config.BigQueryConfig{AttendanceFactsTable: "  "}); len(tables) != 0 {
		t.Fatalf("expected no tables, got %v", tables)
	}
}
