package db

import (
	"errors"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"agentd/internal/config"
	"agentd/internal/memory"
)

// Open connects to the configured database (postgres DSN preferred, sqlite
// path otherwise) and migrates the long-term memory table. The handle is
// returned rather than stored in a package global so tests can open
// isolated databases.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch {
	case cfg.Postgres.DSN != "":
		db, err = gorm.Open(postgres.Open(cfg.Postgres.DSN), &gorm.Config{})
	case cfg.SQLite.Path != "":
		db, err = gorm.Open(sqlite.Open(cfg.SQLite.Path), &gorm.Config{})
	default:
		return nil, errors.New("no database configured: set postgres.dsn or sqlite.path")
	}
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&memory.LongTermRecord{}); err != nil {
		return nil, err
	}

	log.Printf("Database connected and migrated")
	return db, nil
}
