package config

import (
	"fmt"
	"log"

	"permit-portal-api/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the MySQL record store and stores it in DB.
func InitDB(cfg *Config) (*gorm.DB, error) {
	// In production, suppress SQL logs unless explicitly re-enabled via DEBUG_SQL=true.
	logLevel := logger.Info
	if cfg.IsProduction() && !cfg.Database.DebugSQL {
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		Logger: logger.New(
			log.New(LogWriter, "\r\n", log.LstdFlags),
			logger.Config{LogLevel: logLevel},
		),
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access connection pool: %w", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}

	DB = db
	return db, nil
}

// Migrate creates or updates the workflow tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Application{},
		&models.Submission{},
		&models.StatusHistoryEntry{},
		&models.Comment{},
		&models.Document{},
	)
}
