package database

import (
	"log/slog"

	"gorm.io/gorm"

	"blogapi/models"
)

func RunMigrations(db *gorm.DB) error {
	slog.Info("running database migrations", "event", "db_migrate_start", "module", "database")

	err := db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.AccessToken{},
		&models.Post{},
		&models.Comment{},
	)

	if err != nil {
		slog.Error("migrations failed", "event", "db_migrate_failed", "module", "database", "error", err)
		return err
	}

	slog.Info("migrations completed", "event", "db_migrate_done", "module", "database")
	return nil
}
