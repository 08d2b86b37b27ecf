package provisioning

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"radius-sync/models"
)

type memPlan struct {
	name     string
	download *float64
	upload   *float64
}

type memService struct {
	id         uint
	customerID uint
	firstName  string
	lastName   string
	email      *string
	status     models.ServiceStatus
	ip         *string
	plan       *memPlan
	username   *string
	password   *string
}

// memStore keeps radcheck/radreply as slices so duplicate rows can exist the
// same way they can in a table without a unique index.
type memStore struct {
	services map[uint]*memService
	checks   []models.RadCheck
	replies  []models.RadReply
	logs     []models.SystemLog

	failOn string
}

func newMemStore() *memStore {
	return &memStore{services: make(map[uint]*memService)}
}

func (m *memStore) addService(s *memService) {
	if s.status == "" {
		s.status = models.StatusActive
	}
	m.services[s.id] = s
}

func (m *memStore) fail(op string) error {
	if m.failOn == op {
		return errors.Errorf("%s: connection reset", op)
	}
	return nil
}

func (m *memStore) sortedIDs() []uint {
	ids := make([]uint, 0, len(m.services))
	for id := range m.services {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func copyStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func (m *memStore) ActiveServices(ctx context.Context, filter Filter) ([]models.ServiceCandidate, error) {
	if err := m.fail("ActiveServices"); err != nil {
		return nil, err
	}
	var out []models.ServiceCandidate
	for _, id := range m.sortedIDs() {
		s := m.services[id]
		if s.status != models.StatusActive {
			continue
		}
		if filter.CustomerID != 0 && s.customerID != filter.CustomerID {
			continue
		}
		if filter.MissingCredentialsOnly && s.username != nil && *s.username != "" && s.password != nil && *s.password != "" {
			continue
		}
		c := models.ServiceCandidate{
			ServiceID:     s.id,
			CustomerID:    s.customerID,
			FirstName:     s.firstName,
			LastName:      s.lastName,
			Email:         copyStr(s.email),
			IPAddress:     copyStr(s.ip),
			PPPoEUsername: copyStr(s.username),
			PPPoEPassword: copyStr(s.password),
		}
		if s.plan != nil {
			name := s.plan.name
			c.PlanName = &name
			c.DownloadSpeed = s.plan.download
			c.UploadSpeed = s.plan.upload
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) UsernameTaken(ctx context.Context, username string, exceptServiceID uint) (bool, error) {
	for id, s := range m.services {
		if id != exceptServiceID && s.username != nil && *s.username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SaveCredentials(ctx context.Context, serviceID uint, username, password string) error {
	if err := m.fail("SaveCredentials"); err != nil {
		return err
	}
	s, ok := m.services[serviceID]
	if !ok {
		return errors.Errorf("service %d not found", serviceID)
	}
	s.username = &username
	s.password = &password
	return nil
}

func (m *memStore) CountChecks(ctx context.Context, username, attribute string) (int64, error) {
	var n int64
	for _, c := range m.checks {
		if c.Username == username && c.Attribute == attribute {
			n++
		}
	}
	return n, nil
}

func (m *memStore) InsertCheck(ctx context.Context, entry models.RadCheck) error {
	if err := m.fail("InsertCheck"); err != nil {
		return err
	}
	m.checks = append(m.checks, entry)
	return nil
}

func (m *memStore) UpdateCheckValue(ctx context.Context, username, attribute, value string) error {
	for i := range m.checks {
		if m.checks[i].Username == username && m.checks[i].Attribute == attribute {
			m.checks[i].Value = value
		}
	}
	return nil
}

func (m *memStore) DeleteChecks(ctx context.Context, username, attribute string) (int64, error) {
	kept := m.checks[:0]
	var removed int64
	for _, c := range m.checks {
		if c.Username == username && (attribute == "" || c.Attribute == attribute) {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	m.checks = kept
	return removed, nil
}

func (m *memStore) TotalChecks(ctx context.Context) (int64, error) {
	return int64(len(m.checks)), nil
}

func (m *memStore) ReplyExists(ctx context.Context, username, attribute string) (bool, error) {
	for _, r := range m.replies {
		if r.Username == username && r.Attribute == attribute {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) DeleteReplies(ctx context.Context, username string) (int64, error) {
	kept := m.replies[:0]
	var removed int64
	for _, r := range m.replies {
		if r.Username == username {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.replies = kept
	return removed, nil
}

func (m *memStore) InsertReplies(ctx context.Context, entries []models.RadReply) error {
	if err := m.fail("InsertReplies"); err != nil {
		return err
	}
	m.replies = append(m.replies, entries...)
	return nil
}

func (m *memStore) InactiveUsernames(ctx context.Context) ([]string, error) {
	active := make(map[string]bool)
	for _, s := range m.services {
		if s.status == models.StatusActive && s.username != nil {
			active[*s.username] = true
		}
	}
	seen := make(map[string]bool)
	var out []string
	for _, id := range m.sortedIDs() {
		s := m.services[id]
		if s.status == models.StatusActive || s.username == nil || *s.username == "" {
			continue
		}
		if active[*s.username] || seen[*s.username] {
			continue
		}
		seen[*s.username] = true
		out = append(out, *s.username)
	}
	return out, nil
}

func (m *memStore) RecordRun(ctx context.Context, entry models.SystemLog) error {
	m.logs = append(m.logs, entry)
	return nil
}

func (m *memStore) checksFor(username string) []models.RadCheck {
	var out []models.RadCheck
	for _, c := range m.checks {
		if c.Username == username {
			out = append(out, c)
		}
	}
	return out
}

func (m *memStore) repliesFor(username string) []models.RadReply {
	var out []models.RadReply
	for _, r := range m.replies {
		if r.Username == username {
			out = append(out, r)
		}
	}
	return out
}
