package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"p9e.in/veritrace/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, migrationList())
	return m.Migrate()
}

func migrationList() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "01112025_create_users",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("users")
			},
		},
		{
			ID: "01112025_create_declarations",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Declaration{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("declarations")
			},
		},
		{
			ID: "01112025_create_certificates",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Certificate{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("certificates")
			},
		},
		{
			ID: "08112025_index_declarations_owner_submitted",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec("CREATE INDEX IF NOT EXISTS idx_declarations_owner_submitted ON declarations (owner_id, submitted_at DESC)").Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP INDEX IF EXISTS idx_declarations_owner_submitted").Error
			},
		},
	}
}
