package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsDiscovered(t *testing.T) {
	if len(Migrations.Sorted()) == 0 {
		t.Fatal("no migrations discovered")
	}
}

func TestUsageDayIsUTC(t *testing.T) {
	files, err := fs.Glob(sqlMigrations, "*.up.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	for _, name := range files {
		body, err := fs.ReadFile(sqlMigrations, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if strings.Contains(string(body), "CURRENT_DATE") {
			t.Errorf("%s uses the session time zone day (CURRENT_DATE)", name)
		}
	}

	body, err := fs.ReadFile(sqlMigrations, "20250101000003_usage_functions.tx.up.sql")
	if err != nil {
		t.Fatalf("read usage functions: %v", err)
	}
	if got := strings.Count(string(body), "AT TIME ZONE 'utc'"); got != 3 {
		t.Errorf("usage functions compute the UTC day %d times, want 3", got)
	}
}
