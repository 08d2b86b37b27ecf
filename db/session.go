package db

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"radius-sync/models"
	"radius-sync/provisioning"
)

var _ provisioning.Store = (*Session)(nil)

// Session is one run's unit of work: a transaction on the billing database
// and, when RADIUS lives elsewhere, a second one on the RADIUS database.
type Session struct {
	conn    *Conn
	billing *gorm.DB
	radius  *gorm.DB
}

func (s *Session) separate() bool {
	return s.radius != s.billing
}

// WithSession runs fn inside a fresh session. The session commits when fn
// returns nil and rolls back otherwise, including on panic.
func (c *Conn) WithSession(ctx context.Context, fn func(*Session) error) (err error) {
	billing := c.DB.WithContext(ctx).Begin()
	if billing.Error != nil {
		return errors.Wrap(billing.Error, "failed to begin transaction")
	}
	s := &Session{conn: c, billing: billing, radius: billing}

	if c.SeparateRadius() {
		radius := c.RadiusDB.WithContext(ctx).Begin()
		if radius.Error != nil {
			return multierr.Append(errors.Wrap(radius.Error, "failed to begin RADIUS transaction"), billing.Rollback().Error)
		}
		s.radius = radius
	}

	defer func() {
		if p := recover(); p != nil {
			_ = s.rollback()
			panic(p)
		}
	}()

	if err := fn(s); err != nil {
		return multierr.Append(err, s.rollback())
	}
	return s.commit()
}

func (s *Session) rollback() error {
	var err error
	if s.separate() {
		if e := s.radius.Rollback().Error; e != nil {
			err = multierr.Append(err, errors.Wrap(e, "failed to roll back RADIUS transaction"))
		}
	}
	if e := s.billing.Rollback().Error; e != nil {
		err = multierr.Append(err, errors.Wrap(e, "failed to roll back transaction"))
	}
	return err
}

// commit finishes billing first. If the RADIUS commit then fails, the
// credentials are already on the service rows and the next run writes the
// RADIUS rows under the same username.
func (s *Session) commit() error {
	if err := s.billing.Commit().Error; err != nil {
		if s.separate() {
			return multierr.Append(errors.Wrap(err, "failed to commit transaction"), s.radius.Rollback().Error)
		}
		return errors.Wrap(err, "failed to commit transaction")
	}
	if s.separate() {
		if err := s.radius.Commit().Error; err != nil {
			return errors.Wrap(err, "failed to commit RADIUS transaction")
		}
	}
	return nil
}

func (s *Session) ActiveServices(ctx context.Context, filter provisioning.Filter) ([]models.ServiceCandidate, error) {
	query := s.billing.WithContext(ctx).
		Table("customer_services AS cs").
		Select(fmt.Sprintf(`cs.id AS service_id, cs.customer_id,
			COALESCE(c.first_name, '') AS first_name, COALESCE(c.last_name, '') AS last_name, c.email,
			CAST(cs.ip_address AS TEXT) AS ip_address, cs.pppoe_username, cs.pppoe_password,
			sp.name AS plan_name, sp.%s AS download_speed, sp.%s AS upload_speed`,
			s.conn.downloadColumn, s.conn.uploadColumn)).
		Joins("JOIN customers c ON c.id = cs.customer_id").
		Joins("LEFT JOIN service_plans sp ON sp.id = cs.service_plan_id").
		Where("cs.status = ?", string(models.StatusActive))

	if filter.CustomerID != 0 {
		query = query.Where("cs.customer_id = ?", filter.CustomerID)
	}
	if filter.MissingCredentialsOnly {
		query = query.Where("(cs.pppoe_username IS NULL OR cs.pppoe_username = '' OR cs.pppoe_password IS NULL OR cs.pppoe_password = '')")
	}

	var rows []models.ServiceCandidate
	if err := query.Order("cs.id").Scan(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "failed to query active customer services")
	}
	return rows, nil
}

func (s *Session) UsernameTaken(ctx context.Context, username string, exceptServiceID uint) (bool, error) {
	var n int64
	err := s.billing.WithContext(ctx).Model(&models.CustomerService{}).
		Where("pppoe_username = ? AND id <> ?", username, exceptServiceID).
		Count(&n).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to check username")
	}
	return n > 0, nil
}

func (s *Session) SaveCredentials(ctx context.Context, serviceID uint, username, password string) error {
	result := s.billing.WithContext(ctx).Model(&models.CustomerService{}).
		Where("id = ?", serviceID).
		Updates(map[string]interface{}{
			"pppoe_username": username,
			"pppoe_password": password,
		})
	if result.Error != nil {
		return errors.Wrapf(result.Error, "failed to save credentials for service %d", serviceID)
	}
	if result.RowsAffected == 0 {
		return errors.Errorf("customer service %d not found", serviceID)
	}
	return nil
}

func (s *Session) CountChecks(ctx context.Context, username, attribute string) (int64, error) {
	var n int64
	err := s.radius.WithContext(ctx).Model(&models.RadCheck{}).
		Where("username = ? AND attribute = ?", username, attribute).
		Count(&n).Error
	if err != nil {
		return 0, errors.Wrap(err, "failed to query radcheck")
	}
	return n, nil
}

func (s *Session) InsertCheck(ctx context.Context, entry models.RadCheck) error {
	if err := s.radius.WithContext(ctx).Create(&entry).Error; err != nil {
		return errors.Wrapf(err, "failed to insert radcheck row for %s", entry.Username)
	}
	return nil
}

func (s *Session) UpdateCheckValue(ctx context.Context, username, attribute, value string) error {
	err := s.radius.WithContext(ctx).Model(&models.RadCheck{}).
		Where("username = ? AND attribute = ?", username, attribute).
		Update("value", value).Error
	if err != nil {
		return errors.Wrapf(err, "failed to update radcheck row for %s", username)
	}
	return nil
}

func (s *Session) DeleteChecks(ctx context.Context, username, attribute string) (int64, error) {
	query := s.radius.WithContext(ctx).Where("username = ?", username)
	if attribute != "" {
		query = query.Where("attribute = ?", attribute)
	}
	result := query.Delete(&models.RadCheck{})
	if result.Error != nil {
		return 0, errors.Wrapf(result.Error, "failed to delete radcheck rows for %s", username)
	}
	return result.RowsAffected, nil
}

func (s *Session) TotalChecks(ctx context.Context) (int64, error) {
	var n int64
	if err := s.radius.WithContext(ctx).Model(&models.RadCheck{}).Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "failed to count radcheck rows")
	}
	return n, nil
}

func (s *Session) ReplyExists(ctx context.Context, username, attribute string) (bool, error) {
	var n int64
	err := s.radius.WithContext(ctx).Model(&models.RadReply{}).
		Where("username = ? AND attribute = ?", username, attribute).
		Count(&n).Error
	if err != nil {
		return false, errors.Wrap(err, "failed to query radreply")
	}
	return n > 0, nil
}

func (s *Session) DeleteReplies(ctx context.Context, username string) (int64, error) {
	result := s.radius.WithContext(ctx).Where("username = ?", username).Delete(&models.RadReply{})
	if result.Error != nil {
		return 0, errors.Wrapf(result.Error, "failed to delete radreply rows for %s", username)
	}
	return result.RowsAffected, nil
}

func (s *Session) InsertReplies(ctx context.Context, entries []models.RadReply) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.radius.WithContext(ctx).Create(&entries).Error; err != nil {
		return errors.Wrapf(err, "failed to insert radreply rows for %s", entries[0].Username)
	}
	return nil
}

func (s *Session) InactiveUsernames(ctx context.Context) ([]string, error) {
	var usernames []string
	err := s.billing.WithContext(ctx).Raw(`
		SELECT DISTINCT cs.pppoe_username
		FROM customer_services cs
		WHERE COALESCE(cs.status, '') <> ?
		AND cs.pppoe_username IS NOT NULL AND cs.pppoe_username <> ''
		AND NOT EXISTS (
			SELECT 1 FROM customer_services a
			WHERE a.status = ? AND a.pppoe_username = cs.pppoe_username
		)
		ORDER BY cs.pppoe_username`,
		string(models.StatusActive), string(models.StatusActive),
	).Scan(&usernames).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to query inactive customer services")
	}
	return usernames, nil
}

// RecordRun writes the audit row when the billing database has a
// system_logs table and is a no-op otherwise.
func (s *Session) RecordRun(ctx context.Context, entry models.SystemLog) error {
	if !s.conn.hasSystemLogs {
		return nil
	}
	if err := s.billing.WithContext(ctx).Create(&entry).Error; err != nil {
		return errors.Wrap(err, "failed to write system log")
	}
	return nil
}
