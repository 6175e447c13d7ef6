package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bottlespin/bottlespin-backend/pkg/migrate"
)

func TestScanRequestsMigrationCarriesWorkflowIndexes(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_scan_requests.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no scan_requests migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS scan_requests",
		"uq_scan_requests_code_approved",
		"ON scan_requests (code_id) WHERE status = 'approved'",
		"uq_scan_requests_user_pending",
		"ON scan_requests (user_id, code_id) WHERE status = 'pending'",
		"DROP TABLE IF EXISTS scan_requests",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}
