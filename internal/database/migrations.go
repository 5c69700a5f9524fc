package database

import (
	"github.com/go-gormigrate/gormigrate/v2"

	"github.com/safeoutput/backoffice/internal/database/migration_20240115_0000"
	"github.com/safeoutput/backoffice/internal/database/migrations"
)

// NewMigrations returns the full, ordered migration set for the apiserver
// schema. Migration IDs are numerical timestamps that must sort ascending.
func NewMigrations() *migrations.Migrations {
	return &migrations.Migrations{
		GormOptions: &gormigrate.Options{
			TableName:      "apiserver_migrations",
			IDColumnName:   "id",
			IDColumnSize:   40,
			UseTransaction: false,
		},
		Migrations: []*gormigrate.Migration{
			migration_20240115_0000.Migrate(),
		},
	}
}
