package provisioning

import (
	"context"

	"radius-sync/models"
)

// Filter narrows the candidate set. The zero value selects every active
// service.
type Filter struct {
	CustomerID             uint
	MissingCredentialsOnly bool
}

func (f Filter) Unfiltered() bool {
	return f.CustomerID == 0 && !f.MissingCredentialsOnly
}

// Store is everything a run reads and writes. db.Session implements it on
// top of one transaction per store.
type Store interface {
	ActiveServices(ctx context.Context, filter Filter) ([]models.ServiceCandidate, error)
	UsernameTaken(ctx context.Context, username string, exceptServiceID uint) (bool, error)
	SaveCredentials(ctx context.Context, serviceID uint, username, password string) error

	CountChecks(ctx context.Context, username, attribute string) (int64, error)
	InsertCheck(ctx context.Context, entry models.RadCheck) error
	UpdateCheckValue(ctx context.Context, username, attribute, value string) error
	// DeleteChecks removes one attribute, or every row of the user when
	// attribute is empty.
	DeleteChecks(ctx context.Context, username, attribute string) (int64, error)
	TotalChecks(ctx context.Context) (int64, error)

	ReplyExists(ctx context.Context, username, attribute string) (bool, error)
	DeleteReplies(ctx context.Context, username string) (int64, error)
	InsertReplies(ctx context.Context, entries []models.RadReply) error

	// InactiveUsernames lists usernames held only by non-active services.
	InactiveUsernames(ctx context.Context) ([]string, error)

	RecordRun(ctx context.Context, entry models.SystemLog) error
}
