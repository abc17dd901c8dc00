package config

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"alfredoptarigan/hiresense/internal/models"
)

func InitDatabase(cfg *Config, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.GetDatabaseDSN())
	default:
		dialector = sqlite.Open(cfg.Database.Path)
	}

	logLevel := logger.Silent
	if cfg.Server.Env == "development" && cfg.Server.LogDebug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("✅ Database connected successfully", zap.String("driver", cfg.Database.Driver))

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Info("✅ Database migration completed")

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.MatchRun{},
		&models.MatchRunResume{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
