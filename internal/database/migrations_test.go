package database

import (
	"testing"
	"testing/fstest"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	return db
}

func TestApplyRunsPendingInOrder(t *testing.T) {
	db := openTestDB(t)
	source := fstest.MapFS{
		"002_second.sql": {Data: []byte("CREATE TABLE second (id INTEGER PRIMARY KEY);")},
		"001_first.sql":  {Data: []byte("CREATE TABLE first (id INTEGER PRIMARY KEY);")},
		"notes.txt":      {Data: []byte("not a migration")},
	}

	applied, err := apply(db, source)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(applied) != 2 || applied[0] != "001_first.sql" || applied[1] != "002_second.sql" {
		t.Fatalf("expected both files in lexical order, got %v", applied)
	}

	// A second run finds nothing to do
	applied, err = apply(db, source)
	if err != nil {
		t.Fatalf("rerun failed: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("rerun reapplied %v", applied)
	}

	var ledger []SchemaMigration
	db.Order("name").Find(&ledger)
	if len(ledger) != 2 || ledger[0].Name != "001_first.sql" {
		t.Fatalf("unexpected ledger: %+v", ledger)
	}
}

func TestApplyPicksUpNewFiles(t *testing.T) {
	db := openTestDB(t)
	source := fstest.MapFS{
		"001_first.sql": {Data: []byte("CREATE TABLE first (id INTEGER PRIMARY KEY);")},
	}
	if _, err := apply(db, source); err != nil {
		t.Fatalf("apply failed: %v", err)
	}

	source["002_second.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE second (id INTEGER PRIMARY KEY);")}
	applied, err := apply(db, source)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(applied) != 1 || applied[0] != "002_second.sql" {
		t.Fatalf("expected only the new file, got %v", applied)
	}
}

func TestApplyStopsOnFailingFile(t *testing.T) {
	db := openTestDB(t)
	source := fstest.MapFS{
		"001_ok.sql":  {Data: []byte("CREATE TABLE ok (id INTEGER PRIMARY KEY);")},
		"002_bad.sql": {Data: []byte("CREATE GARBAGE;")},
	}

	if _, err := apply(db, source); err == nil {
		t.Fatal("broken migration should fail the run")
	}

	var ledger []SchemaMigration
	db.Find(&ledger)
	if len(ledger) != 1 || ledger[0].Name != "001_ok.sql" {
		t.Fatalf("ledger should hold only the applied file: %+v", ledger)
	}
}
