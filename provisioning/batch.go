package provisioning

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"radius-sync/logger"
	"radius-sync/models"
)

type UserResult struct {
	ServiceID  uint    `json:"service_id"`
	CustomerID uint    `json:"customer_id"`
	Username   string  `json:"username"`
	Outcome    Outcome `json:"outcome"`
	Generated  bool    `json:"credentials_generated"`
}

type Report struct {
	RunID                string       `json:"run_id"`
	Filter               Filter       `json:"filter"`
	Candidates           int          `json:"candidates"`
	Created              int          `json:"created"`
	Updated              int          `json:"updated"`
	CredentialsGenerated int          `json:"credentials_generated"`
	Fallback             Outcome      `json:"fallback,omitempty"`
	TotalChecks          int64        `json:"total_radcheck_rows"`
	Users                []UserResult `json:"users"`
}

// Run provisions every active service matching filter. On an unfiltered run
// with no candidates the fallback identity is ensured instead. Any error
// aborts the run; the caller's session rolls everything back.
func (r *Reconciler) Run(ctx context.Context, filter Filter) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Filter: filter}
	log := logger.Logger.WithField("run_id", report.RunID)

	services, err := r.store.ActiveServices(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load active services")
	}
	report.Candidates = len(services)
	log.Infof("Found %d active services to provision", len(services))

	if len(services) == 0 {
		if filter.Unfiltered() {
			log.Infof("No services found, ensuring test user %q", r.settings.Fallback.Username)
			outcome, err := r.EnsureFallback(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "failed to provision fallback user")
			}
			report.Fallback = outcome
			if outcome == Created {
				log.Infof("Created test user: %s", r.settings.Fallback.Username)
			} else {
				log.Infof("Test user %q already exists, left untouched", r.settings.Fallback.Username)
			}
		} else {
			log.Info("No active services matched, nothing to provision")
		}
	}

	for i := range services {
		svc := &services[i]
		username, password, generated, err := r.EnsureCredentials(ctx, svc)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to ensure credentials for service %d", svc.ServiceID)
		}
		outcome, err := r.ReconcileRadius(ctx, *svc, username, password)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to reconcile RADIUS entries for service %d", svc.ServiceID)
		}

		switch outcome {
		case Created:
			report.Created++
		case Updated:
			report.Updated++
		}
		if generated {
			report.CredentialsGenerated++
		}
		report.Users = append(report.Users, UserResult{
			ServiceID:  svc.ServiceID,
			CustomerID: svc.CustomerID,
			Username:   username,
			Outcome:    outcome,
			Generated:  generated,
		})

		log.WithFields(logrus.Fields{
			"service_id":  svc.ServiceID,
			"customer_id": svc.CustomerID,
		}).Infof("%s: %s (%s) - %s", statusLabel(outcome), username, svc.CustomerName(), planLabel(*svc))
	}

	total, err := r.store.TotalChecks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to count radcheck rows")
	}
	report.TotalChecks = total

	if err := r.record(ctx, "provisioning", report.summary(), report); err != nil {
		return nil, err
	}
	return report, nil
}

type DeprovisionReport struct {
	RunID   string   `json:"run_id"`
	Removed []string `json:"removed"`
}

// Deprovision removes the RADIUS rows of usernames that only non-active
// services hold. The credentials stay on the service rows so a reactivated
// service keeps its identity.
func (r *Reconciler) Deprovision(ctx context.Context) (*DeprovisionReport, error) {
	report := &DeprovisionReport{RunID: uuid.NewString()}
	log := logger.Logger.WithField("run_id", report.RunID)

	usernames, err := r.store.InactiveUsernames(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load inactive services")
	}

	for _, username := range usernames {
		if username == r.settings.Fallback.Username {
			continue
		}
		checks, err := r.store.DeleteChecks(ctx, username, "")
		if err != nil {
			return nil, errors.Wrapf(err, "failed to remove radcheck rows for %s", username)
		}
		replies, err := r.store.DeleteReplies(ctx, username)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to remove radreply rows for %s", username)
		}
		if checks+replies == 0 {
			log.Debugf("Nothing to remove for %s", username)
			continue
		}
		report.Removed = append(report.Removed, username)
		log.Infof("Deprovisioned: %s (%d radcheck, %d radreply rows)", username, checks, replies)
	}

	log.Infof("Deprovisioned %d RADIUS users", len(report.Removed))
	if err := r.record(ctx, "deprovisioning", fmt.Sprintf("Deprovisioned %d RADIUS users", len(report.Removed)), report); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Reconciler) record(ctx context.Context, category, message string, details interface{}) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return errors.Wrap(err, "failed to encode run details")
	}
	entry := models.SystemLog{
		Level:    "INFO",
		Source:   "radius_sync",
		Category: category,
		Message:  message,
		Details:  datatypes.JSON(payload),
	}
	if err := r.store.RecordRun(ctx, entry); err != nil {
		return errors.Wrap(err, "failed to record run")
	}
	return nil
}

func (rep *Report) summary() string {
	return fmt.Sprintf("Provisioned %d RADIUS users (%d created, %d updated, %d new credentials)",
		rep.Created+rep.Updated, rep.Created, rep.Updated, rep.CredentialsGenerated)
}

func statusLabel(o Outcome) string {
	switch o {
	case Created:
		return "Created"
	case Updated:
		return "Updated"
	}
	return "Unchanged"
}

func planLabel(svc models.ServiceCandidate) string {
	if svc.PlanName == nil {
		return "no plan"
	}
	return *svc.PlanName
}
