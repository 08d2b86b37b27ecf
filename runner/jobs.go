package runner

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"radius-sync/config"
	"radius-sync/db"
	"radius-sync/logger"
	"radius-sync/providers/credentials"
	"radius-sync/providers/radius"
	"radius-sync/provisioning"
)

const banner = "============================================================"

// FilterFunc picks a command's candidate filter from the configuration.
type FilterFunc func(cfg *config.Config) (provisioning.Filter, error)

func AllActive(*config.Config) (provisioning.Filter, error) {
	return provisioning.Filter{}, nil
}

func SingleCustomer(cfg *config.Config) (provisioning.Filter, error) {
	if cfg.CustomerID == 0 {
		return provisioning.Filter{}, errors.New("PROVISION_CUSTOMER_ID is not set")
	}
	return provisioning.Filter{CustomerID: cfg.CustomerID}, nil
}

func MissingCredentials(*config.Config) (provisioning.Filter, error) {
	return provisioning.Filter{MissingCredentialsOnly: true}, nil
}

func NewReconciler(cfg *config.Config, store provisioning.Store) (*provisioning.Reconciler, error) {
	replies, err := radius.NewReplyBuilder(cfg.RadiusVendor, cfg.PPPFraming)
	if err != nil {
		return nil, err
	}
	return provisioning.NewReconciler(store, credentials.NewSimpleCredentialProvider(cfg.PasswordLength), replies, provisioning.Settings{
		DefaultLimits: radius.Limits{
			DownloadMbps: cfg.DefaultDownloadMbps,
			UploadMbps:   cfg.DefaultUploadMbps,
		},
		Fallback: provisioning.Identity{
			Username: cfg.FallbackUsername,
			Password: cfg.FallbackPassword,
		},
	}), nil
}

// Provision runs one reconciliation in a single session and prints the
// summary once it has committed.
func Provision(selectFilter FilterFunc) Job {
	return func(ctx context.Context, cfg *config.Config, conn *db.Conn) error {
		filter, err := selectFilter(cfg)
		if err != nil {
			return err
		}

		logger.Logger.Info(banner)
		logger.Logger.Info("RADIUS USER PROVISIONING")
		logger.Logger.Info(banner)

		var report *provisioning.Report
		err = conn.WithSession(ctx, func(s *db.Session) error {
			r, err := NewReconciler(cfg, s)
			if err != nil {
				return err
			}
			report, err = r.Run(ctx, filter)
			return err
		})
		if err != nil {
			return errors.Wrap(err, "provisioning rolled back")
		}

		printReport(cfg, report)
		return nil
	}
}

func printReport(cfg *config.Config, report *provisioning.Report) {
	logger.Logger.Info(banner)
	logger.Logger.Info("PROVISIONING COMPLETE")
	logger.Logger.Info(banner)
	switch report.Fallback {
	case provisioning.Created:
		logger.Logger.Infof("Test user ready: %s (rate limit %s)", cfg.FallbackUsername,
			radius.MikrotikRateLimit(radius.Limits{DownloadMbps: cfg.DefaultDownloadMbps, UploadMbps: cfg.DefaultUploadMbps}))
	case provisioning.Unchanged:
		logger.Logger.Infof("Test user %s already present, not modified", cfg.FallbackUsername)
	}
	logger.Logger.Infof("New users created: %d", report.Created)
	logger.Logger.Infof("Existing users updated: %d", report.Updated)
	logger.Logger.Infof("Credentials generated: %d", report.CredentialsGenerated)
	logger.Logger.Infof("Total users in radcheck table: %d", report.TotalChecks)
}

func Deprovision(ctx context.Context, cfg *config.Config, conn *db.Conn) error {
	var report *provisioning.DeprovisionReport
	err := conn.WithSession(ctx, func(s *db.Session) error {
		r, err := NewReconciler(cfg, s)
		if err != nil {
			return err
		}
		report, err = r.Deprovision(ctx)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "deprovisioning rolled back")
	}
	if len(report.Removed) > 0 {
		logger.Logger.Infof("Removed RADIUS users: %s", strings.Join(report.Removed, ", "))
	}
	return nil
}

func MigrateSchema(ctx context.Context, cfg *config.Config, conn *db.Conn) error {
	if err := db.MigrateSchema(ctx, conn); err != nil {
		return err
	}
	logger.Logger.Info("Database schema is up to date")
	return nil
}
