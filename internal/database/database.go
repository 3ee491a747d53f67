package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/config"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
)

// InitDB initializes the database connection and performs migrations
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Configure GORM logger
	gormLogger := logger.New(
		logrus.New(),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Error,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logrus.Info("Database connection established and schema migrated")
	return db, nil
}

// Migrate creates or updates the lifecycle tables
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Campaign{},
		&models.CampaignHistory{},
		&models.CampaignTemplate{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Sweeps look up Scheduled campaigns by start time
	err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_campaigns_state_scheduled_start
		ON campaigns (state, scheduled_start)`).Error
	if err != nil {
		return fmt.Errorf("failed to create scheduling index: %w", err)
	}

	return nil
}

// Close closes the underlying connection pool
func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.Errorf("Failed to get database connection for close: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		logrus.Errorf("Failed to close database: %v", err)
	}
}
