package runner

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"go.elastic.co/apm/v2"

	"radius-sync/config"
	"radius-sync/db"
	"radius-sync/logger"
)

// Job is the body of one command.
type Job func(ctx context.Context, cfg *config.Config, conn *db.Conn) error

// Main loads configuration, connects, runs job inside an APM transaction and
// returns the process exit code.
func Main(name string, job Job) int {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Logger.WithError(err).Error("Failed to load configuration")
		return 1
	}

	if err := logger.InitLogger(cfg.LogLevel); err != nil {
		logger.Logger.WithError(err).Error("Could not initialize logger")
		return 1
	}

	configureAPM(cfg)
	tracer := apm.DefaultTracer()
	tx := tracer.StartTransaction(name, "batch")
	ctx := apm.ContextWithTransaction(context.Background(), tx)
	defer func() {
		tx.End()
		tracer.Flush(nil)
	}()

	conn, err := db.ConnectDatabase(cfg)
	if err != nil {
		apm.CaptureError(ctx, err).Send()
		tx.Result = "failure"
		logger.Logger.WithError(err).Error("Database connection failed")
		return 1
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Logger.WithError(err).Warn("Failed to close database connection")
		}
	}()

	logger.Logger.Infof("Starting %s", name)
	if err := runJob(ctx, name, job, cfg, conn); err != nil {
		apm.CaptureError(ctx, err).Send()
		tx.Result = "failure"
		logger.Logger.WithError(err).Errorf("%s failed", name)
		return 1
	}

	tx.Result = "success"
	return 0
}

// runJob turns a panic in job into an error so the process still exits 1
// after the deferred cleanup has run.
func runJob(ctx context.Context, name string, job Job, cfg *config.Config, conn *db.Conn) (err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Logger.WithField("panic", p).Errorf("%s panicked", name)
			err = errors.Errorf("%s panicked: %v", name, p)
		}
	}()
	return job(ctx, cfg, conn)
}

func configureAPM(cfg *config.Config) {
	if cfg.ElasticAPMServerURL == "" {
		os.Setenv("ELASTIC_APM_ACTIVE", "false")
		return
	}
	os.Setenv("ELASTIC_APM_SERVER_URL", cfg.ElasticAPMServerURL)
	if cfg.ElasticAPMServiceName != "" {
		os.Setenv("ELASTIC_APM_SERVICE_NAME", cfg.ElasticAPMServiceName)
	}
	if cfg.ElasticAPMEnvironment != "" {
		os.Setenv("ELASTIC_APM_ENVIRONMENT", cfg.ElasticAPMEnvironment)
	}
}
