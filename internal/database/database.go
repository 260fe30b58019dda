package database

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/raftaar/raftaar-backend/internal/config"
	"github.com/raftaar/raftaar-backend/internal/models"
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

// postgisStatements run after AutoMigrate. The index expression must match
// the one the captain proximity query filters on.
var postgisStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_captains_location_geo ON captains
		USING GIST ((ST_SetSRID(ST_GeomFromGeoJSON(location::text), 4326)::geography))
		WHERE location IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_users_location_geo ON users
		USING GIST ((ST_SetSRID(ST_GeomFromGeoJSON(location::text), 4326)::geography))
		WHERE location IS NOT NULL`,
}

// Migrate creates or updates every table and the geospatial indexes.
func Migrate() error {
	if err := DB.Exec("CREATE EXTENSION IF NOT EXISTS postgis").Error; err != nil {
		return fmt.Errorf("failed to enable postgis: %w", err)
	}

	if err := DB.AutoMigrate(
		&models.User{},
		&models.Captain{},
		&models.RefreshToken{},
		&models.SystemLog{},
	); err != nil {
		return fmt.Errorf("failed to migrate tables: %w", err)
	}

	for _, stmt := range postgisStatements {
		if err := DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create geospatial index: %w", err)
		}
	}

	slog.Info("database migrated")
	return nil
}

func Ping() error {
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
