package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLiteGormDB opens a SQLite file with foreign keys enforced. Used for local development.
func NewSQLiteGormDB(path string) (*GormDB, error) {
	if path == "" {
		path = "immobile.db"
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", path)

	db, err := gorm.Open(sqlite.Open(dsn), newGormConfig())
	if err != nil {
		return nil, err
	}

	return wrap(db)
}
