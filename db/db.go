package db

import (
	"time"

	"github.com/pkg/errors"
	apmgormv2 "go.elastic.co/apm/module/apmgormv2/v2/driver/postgres"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"radius-sync/config"
	"radius-sync/logger"
	"radius-sync/models"
)

// Conn holds the billing database and the database carrying radcheck and
// radreply. Without RADIUS_DATABASE_URL both are the same handle.
type Conn struct {
	DB       *gorm.DB
	RadiusDB *gorm.DB

	downloadColumn string
	uploadColumn   string
	hasSystemLogs  bool
}

func ConnectDatabase(cfg *config.Config) (*Conn, error) {
	database, err := gorm.Open(apmgormv2.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Logger.WithError(err).Error("Failed to connect to database")
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := database.DB()
	if err != nil {
		logger.Logger.WithError(err).Error("Failed to get database instance")
		return nil, errors.Wrap(err, "failed to get database instance")
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	conn := &Conn{DB: database, RadiusDB: database}

	if cfg.RadiusDatabaseURL != "" {
		radiusDB, err := ConnectRadiusDB(cfg.RadiusDatabaseURL)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		conn.RadiusDB = radiusDB
	}

	conn.detectSchema()
	logger.Logger.Info("Database connected successfully")
	return conn, nil
}

// detectSchema picks the service_plans speed columns, which are named
// speed_download/speed_upload on older installs.
func (c *Conn) detectSchema() {
	m := c.DB.Migrator()
	c.downloadColumn, c.uploadColumn = speedColumns(m.HasColumn("service_plans", "speed_download"))
	c.hasSystemLogs = m.HasTable(&models.SystemLog{})
	logger.Logger.Debugf("Using service_plans.%s/%s for plan speeds", c.downloadColumn, c.uploadColumn)
}

func speedColumns(legacy bool) (download, upload string) {
	if legacy {
		return "speed_download", "speed_upload"
	}
	return "download_speed", "upload_speed"
}

func (c *Conn) SeparateRadius() bool {
	return c.RadiusDB != c.DB
}

func (c *Conn) Close() error {
	var err error
	handles := []*gorm.DB{c.DB}
	if c.SeparateRadius() {
		handles = append(handles, c.RadiusDB)
	}
	for _, h := range handles {
		sqlDB, e := h.DB()
		if e != nil {
			err = multierr.Append(err, e)
			continue
		}
		err = multierr.Append(err, sqlDB.Close())
	}
	return err
}
