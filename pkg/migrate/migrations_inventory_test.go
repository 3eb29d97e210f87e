package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/plotvista/plotvista-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations dir: %v", err)
	}
}

func TestVisitRequestsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_visit_requests.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no visit_requests migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS visit_requests",
		"FOREIGN KEY (plot_id) REFERENCES plots(id) ON DELETE CASCADE",
		"CHECK (status != 'REJECTED' OR rejection_reason IS NOT NULL)",
		"CHECK ((qr_code IS NULL) = (expires_at IS NULL))",
		"idx_visit_requests_open_by_plot",
	}
	for _, want := range checks {
		if !strings.Contains(content, want) {
			t.Fatalf("visit_requests migration missing %q", want)
		}
	}
}

func TestEnumsMigrationCoversLifecycleStatuses(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_enums.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no enums migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	for _, want := range []string{"'PENDING'", "'ASSIGNED'", "'APPROVED'", "'REJECTED'"} {
		if !strings.Contains(content, want) {
			t.Fatalf("enums migration missing visit request status %s", want)
		}
	}
}
