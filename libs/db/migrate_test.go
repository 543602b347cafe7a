package db

import (
	"testing"
	"testing/fstest"
)

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_outbox.sql": {Data: []byte("CREATE TABLE outbox_jobs ();")},
		"001_core.sql":   {Data: []byte("CREATE TABLE users ();")},
		"010_later.sql":  {Data: []byte("CREATE TABLE later ();")},
		"README.md":      {Data: []byte("not a migration")},
		"noversion.sql":  {Data: []byte("skipped")},
	}

	migrations, err := loadMigrations(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if len(migrations) != 3 {
		t.Fatalf("got %d migrations, want 3", len(migrations))
	}
	wantOrder := []int{1, 2, 10}
	for i, m := range migrations {
		if m.version != wantOrder[i] {
			t.Errorf("migration %d has version %d, want %d", i, m.version, wantOrder[i])
		}
	}
	if migrations[0].name != "001_core.sql" {
		t.Errorf("first migration = %s, want 001_core.sql", migrations[0].name)
	}
}
