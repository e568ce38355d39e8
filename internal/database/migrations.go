// Package database applies the embedded SQL schema migrations.
package database

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"time"

	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var embedded embed.FS

// SchemaMigration is one ledger row per applied migration file.
type SchemaMigration struct {
	ID        uint      `gorm:"primaryKey"`
	Name      string    `gorm:"uniqueIndex;size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName keeps the ledger out of the application namespace
func (SchemaMigration) TableName() string {
	return "_qualis_migrations"
}

// RunMigrations brings the schema up to date from the embedded
// migration files.
func RunMigrations(db *gorm.DB) error {
	source, err := fs.Sub(embedded, "migrations")
	if err != nil {
		return err
	}

	applied, err := apply(db, source)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		log.Println("schema is up to date")
		return nil
	}
	for _, name := range applied {
		log.Printf("applied migration %s", name)
	}
	return nil
}

// apply executes every .sql file in source that has no ledger row yet,
// in lexical order, and returns the names it applied. Each file runs
// as a single Exec; a failing file stops the run with everything
// before it recorded.
func apply(db *gorm.DB, source fs.FS) ([]string, error) {
	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return nil, fmt.Errorf("migration ledger: %w", err)
	}

	var past []SchemaMigration
	if err := db.Find(&past).Error; err != nil {
		return nil, fmt.Errorf("migration ledger: %w", err)
	}
	done := make(map[string]bool, len(past))
	for _, m := range past {
		done[m.Name] = true
	}

	names, err := fs.Glob(source, "*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	var applied []string
	for _, name := range names {
		if done[name] {
			continue
		}
		content, err := fs.ReadFile(source, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		if err := db.Exec(string(content)).Error; err != nil {
			return nil, fmt.Errorf("apply migration %s: %w", name, err)
		}
		if err := db.Create(&SchemaMigration{Name: name}).Error; err != nil {
			return nil, fmt.Errorf("record migration %s: %w", name, err)
		}
		applied = append(applied, name)
	}
	return applied, nil
}
