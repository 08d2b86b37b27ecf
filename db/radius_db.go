package db

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"radius-sync/logger"
)

// ConnectRadiusDB opens a FreeRADIUS MySQL database that is kept apart from
// the billing database.
func ConnectRadiusDB(dsn string) (*gorm.DB, error) {
	database, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Logger.WithError(err).Error("Failed to connect to Radius MySQL DB")
		return nil, errors.Wrap(err, "failed to connect to RADIUS database")
	}

	sqlDB, err := database.DB()
	if err != nil {
		logger.Logger.WithError(err).Error("Failed to get Radius DB instance")
		return nil, errors.Wrap(err, "failed to get RADIUS database instance")
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Logger.Info("Radius MySQL connected successfully")
	return database, nil
}
