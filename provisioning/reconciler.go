package provisioning

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"radius-sync/logger"
	"radius-sync/models"
	"radius-sync/providers/credentials"
	"radius-sync/providers/radius"
)

type Outcome string

const (
	Created   Outcome = "created"
	Updated   Outcome = "updated"
	Unchanged Outcome = "unchanged"
)

const maxUsernameAttempts = 100

// Identity is a fixed RADIUS principal not backed by a subscription.
type Identity struct {
	Username string
	Password string
}

type Settings struct {
	DefaultLimits radius.Limits
	Fallback      Identity
}

type Reconciler struct {
	store    Store
	creds    credentials.CredentialProvider
	replies  *radius.ReplyBuilder
	settings Settings
}

func NewReconciler(store Store, creds credentials.CredentialProvider, replies *radius.ReplyBuilder, settings Settings) *Reconciler {
	return &Reconciler{
		store:    store,
		creds:    creds,
		replies:  replies,
		settings: settings,
	}
}

// EnsureCredentials returns the service's PPPoE username and password,
// generating and persisting whichever is missing. An existing username is
// never replaced. svc is updated in place with what was persisted.
func (r *Reconciler) EnsureCredentials(ctx context.Context, svc *models.ServiceCandidate) (username, password string, generated bool, err error) {
	if svc.PPPoEUsername != nil && strings.TrimSpace(*svc.PPPoEUsername) != "" {
		username = *svc.PPPoEUsername
	} else {
		username, err = r.freeUsername(ctx, r.creds.DeriveUsername(svc.Email, svc.CustomerID), svc.ServiceID)
		if err != nil {
			return "", "", false, err
		}
		generated = true
	}

	if svc.PPPoEPassword != nil && *svc.PPPoEPassword != "" {
		password = *svc.PPPoEPassword
	} else {
		password, err = r.creds.GeneratePassword()
		if err != nil {
			return "", "", false, err
		}
		generated = true
	}

	if !generated {
		return username, password, false, nil
	}

	if err := r.store.SaveCredentials(ctx, svc.ServiceID, username, password); err != nil {
		return "", "", false, err
	}
	svc.PPPoEUsername = &username
	svc.PPPoEPassword = &password
	return username, password, true, nil
}

// freeUsername returns base, or the first disambiguated form of it, that no
// other service holds and that has no password row in radcheck.
func (r *Reconciler) freeUsername(ctx context.Context, base string, serviceID uint) (string, error) {
	candidate := base
	for attempt := 0; attempt <= maxUsernameAttempts; attempt++ {
		free, err := r.usernameFree(ctx, candidate, serviceID)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
		candidate = credentials.Disambiguate(base, serviceID, attempt)
	}
	return "", errors.Errorf("no free username derived from %q for service %d", base, serviceID)
}

func (r *Reconciler) usernameFree(ctx context.Context, username string, serviceID uint) (bool, error) {
	if username == r.settings.Fallback.Username {
		return false, nil
	}
	taken, err := r.store.UsernameTaken(ctx, username, serviceID)
	if err != nil || taken {
		return false, err
	}
	n, err := r.store.CountChecks(ctx, username, models.AttrCleartextPassword)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// ReconcileRadius makes radcheck hold exactly one password row for username
// and replaces every radreply row of username with the current attributes.
func (r *Reconciler) ReconcileRadius(ctx context.Context, svc models.ServiceCandidate, username, password string) (Outcome, error) {
	outcome, err := r.upsertPassword(ctx, username, password)
	if err != nil {
		return "", err
	}

	attrs, ipAccepted := r.replies.Build(r.limitsFor(svc), svc.IPAddress)
	if svc.IPAddress != nil && strings.TrimSpace(*svc.IPAddress) != "" && !ipAccepted {
		logger.Logger.Warnf("Service %d has unusable IP address %q, skipping Framed-IP-Address", svc.ServiceID, *svc.IPAddress)
	}

	if _, err := r.store.DeleteReplies(ctx, username); err != nil {
		return "", err
	}
	if err := r.store.InsertReplies(ctx, replyRows(username, attrs)); err != nil {
		return "", err
	}
	return outcome, nil
}

func (r *Reconciler) upsertPassword(ctx context.Context, username, password string) (Outcome, error) {
	n, err := r.store.CountChecks(ctx, username, models.AttrCleartextPassword)
	if err != nil {
		return "", err
	}

	switch {
	case n == 0:
		if err := r.store.InsertCheck(ctx, passwordRow(username, password)); err != nil {
			return "", err
		}
		return Created, nil
	case n == 1:
		if err := r.store.UpdateCheckValue(ctx, username, models.AttrCleartextPassword, password); err != nil {
			return "", err
		}
		return Updated, nil
	default:
		logger.Logger.Warnf("Collapsing %d duplicate %s rows for %s", n, models.AttrCleartextPassword, username)
		if _, err := r.store.DeleteChecks(ctx, username, models.AttrCleartextPassword); err != nil {
			return "", err
		}
		if err := r.store.InsertCheck(ctx, passwordRow(username, password)); err != nil {
			return "", err
		}
		return Updated, nil
	}
}

// EnsureFallback makes the reserved identity present without ever touching
// rows that already exist for it.
func (r *Reconciler) EnsureFallback(ctx context.Context) (Outcome, error) {
	fb := r.settings.Fallback
	if fb.Username == "" {
		return "", errors.New("fallback username is not configured")
	}

	outcome := Unchanged
	n, err := r.store.CountChecks(ctx, fb.Username, models.AttrCleartextPassword)
	if err != nil {
		return "", err
	}
	if n == 0 {
		if err := r.store.InsertCheck(ctx, passwordRow(fb.Username, fb.Password)); err != nil {
			return "", err
		}
		outcome = Created
	}

	attrs, _ := r.replies.Build(r.settings.DefaultLimits, nil)
	var missing []radius.Attribute
	for _, attr := range attrs {
		exists, err := r.store.ReplyExists(ctx, fb.Username, attr.Name)
		if err != nil {
			return "", err
		}
		if !exists {
			missing = append(missing, attr)
		}
	}
	if len(missing) > 0 {
		if err := r.store.InsertReplies(ctx, replyRows(fb.Username, missing)); err != nil {
			return "", err
		}
	}
	return outcome, nil
}

func (r *Reconciler) limitsFor(svc models.ServiceCandidate) radius.Limits {
	limits := r.settings.DefaultLimits
	if !svc.HasPlan() {
		logger.Logger.Warnf("Service %d has no service plan, using default bandwidth %s", svc.ServiceID, radius.MikrotikRateLimit(limits))
		return limits
	}
	if svc.DownloadSpeed != nil && *svc.DownloadSpeed > 0 {
		limits.DownloadMbps = *svc.DownloadSpeed
	} else {
		logger.Logger.Warnf("Service %d plan has no download speed, using %s", svc.ServiceID, radius.Mbps(limits.DownloadMbps))
	}
	if svc.UploadSpeed != nil && *svc.UploadSpeed > 0 {
		limits.UploadMbps = *svc.UploadSpeed
	} else {
		logger.Logger.Warnf("Service %d plan has no upload speed, using %s", svc.ServiceID, radius.Mbps(limits.UploadMbps))
	}
	return limits
}

func passwordRow(username, password string) models.RadCheck {
	return models.RadCheck{
		Username:  username,
		Attribute: models.AttrCleartextPassword,
		Op:        models.OpSet,
		Value:     password,
	}
}

func replyRows(username string, attrs []radius.Attribute) []models.RadReply {
	rows := make([]models.RadReply, 0, len(attrs))
	for _, a := range attrs {
		rows = append(rows, models.RadReply{
			Username:  username,
			Attribute: a.Name,
			Op:        a.Op,
			Value:     a.Value,
		})
	}
	return rows
}
