package database

import (
	"context"
	"testing"
	"testing/fstest"
)

func withMigrations(t *testing.T, fsys fstest.MapFS) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
	MigrationsFS = fsys
	MigrationsDir = "."
}

func TestMigrate(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"20261017_120000_widgets.up.sql":   {Data: []byte("CREATE TABLE widgets (id TEXT PRIMARY KEY);")},
		"20261017_120000_widgets.down.sql": {Data: []byte("DROP TABLE widgets;")},
		"20261018_090000_gadgets.up.sql":   {Data: []byte("CREATE TABLE gadgets (id TEXT PRIMARY KEY);")},
		"README.md":                        {Data: []byte("ignored")},
	})

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	for _, table := range []string{"widgets", "gadgets"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not created: %v", table, err)
		}
	}

	applied, err := db.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations() error = %v", err)
	}
	if len(applied) != 2 || applied[0].Version != "20261017_120000" {
		t.Errorf("applied = %+v", applied)
	}

	// Running again is a no-op.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureRollsBack(t *testing.T) {
	withMigrations(t, fstest.MapFS{
		"20261017_120000_good.up.sql": {Data: []byte("CREATE TABLE good (id TEXT);")},
		"20261017_130000_bad.up.sql":  {Data: []byte("CREATE TABLE broken (;")},
	})

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup
	ctx := context.Background()

	if err := db.Migrate(ctx); err == nil {
		t.Fatal("Migrate() expected error for broken SQL")
	}

	applied, err := db.AppliedMigrations(ctx)
	if err != nil {
		t.Fatalf("AppliedMigrations() error = %v", err)
	}
	if len(applied) != 1 || applied[0].Version != "20261017_120000" {
		t.Errorf("applied = %+v, want only the good migration", applied)
	}
}

func TestMigrate_NoFilesystem(t *testing.T) {
	origFS := MigrationsFS
	t.Cleanup(func() { MigrationsFS = origFS })
	MigrationsFS = nil

	db := openTestDB(t)
	defer db.Close() //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() with no migrations = %v", err)
	}
}

func TestLoadMigrations_InvalidName(t *testing.T) {
	_, err := LoadMigrations(fstest.MapFS{
		"create_things.up.sql": {Data: []byte("SELECT 1;")},
	}, ".")
	if err == nil {
		t.Error("LoadMigrations() expected error for bad filename")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		input       string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{"20261017_120000_registrations.up.sql", "20261017_120000", "registrations", true},
		{"20261017_120000_multi_word_name.up.sql", "20261017_120000", "multi_word_name", true},
		{"2026_120000_short.up.sql", "", "", false},
		{"20261017_120000.up.sql", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			version, name, ok := parseMigrationFilename(tt.input)
			if version != tt.wantVersion || name != tt.wantName || ok != tt.wantOK {
				t.Errorf("parseMigrationFilename() = (%q, %q, %v), want (%q, %q, %v)",
					version, name, ok, tt.wantVersion, tt.wantName, tt.wantOK)
			}
		})
	}
}
