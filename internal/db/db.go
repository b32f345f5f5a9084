// Package db opens the registry database used by toolbridge.
package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultSQLiteFile is the database file created in the working directory when no DSN is supplied.
const DefaultSQLiteFile = "toolbridge.db"

// NewDBConnection connects to the database identified by dsn.
// An empty dsn opens (or creates) the default SQLite file.
// postgres:// and postgresql:// DSNs use the postgres driver, anything else is treated as a SQLite path.
func NewDBConnection(dsn string) (*gorm.DB, error) {
	conf := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var dialector gorm.Dialector
	switch {
	case dsn == "":
		dialector = sqlite.Open(DefaultSQLiteFile)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(dsn)
	}

	db, err := gorm.Open(dialector, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
