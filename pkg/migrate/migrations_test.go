package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/classpulse/classpulse-backend/pkg/migrate"
)

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestAttendanceMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_attendance_records.sql")

	checks := []string{
		"CREATE TABLE attendance_records",
		"CHECK (status IN ('present', 'absent', 'late', 'excused'))",
		"CREATE UNIQUE INDEX ux_attendance_session_student",
		"DROP TABLE IF EXISTS attendance_records",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestUsersMigrationEnforcesIdentityConstraints(t *testing.T) {
	content := readMigration(t, "*_create_users.sql")

	checks := []string{
		"CHECK (role IN ('admin', 'teacher', 'parent'))",
		"CREATE UNIQUE INDEX ux_users_email",
		"CREATE UNIQUE INDEX ux_users_google_subject",
		"student_ids     UUID[] NOT NULL DEFAULT ARRAY[]::uuid[]",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationIndexesUnpublishedRows(t *testing.T) {
	content := readMigration(t, "*_create_outbox_events.sql")

	if !strings.Contains(content, "WHERE published_at IS NULL") {
		t.Error("expected a partial index over unpublished rows")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
