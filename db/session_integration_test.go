package db

import (
	"context"
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radius-sync/config"
	"radius-sync/models"
	"radius-sync/providers/credentials"
	"radius-sync/providers/radius"
	"radius-sync/provisioning"
)

// These tests write to the database named by TEST_DATABASE_URL and wipe the
// tables they use. Point it at a throwaway postgres instance.
func testConn(t *testing.T) *Conn {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	conn, err := ConnectDatabase(&config.Config{DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.DB.AutoMigrate(
		&models.Customer{},
		&models.ServicePlan{},
		&models.CustomerService{},
		&models.RadCheck{},
		&models.RadReply{},
	))
	conn.detectSchema()

	wipe := func() {
		for _, table := range []string{"radreply", "radcheck", "customer_services", "service_plans", "customers"} {
			require.NoError(t, conn.DB.Exec("DELETE FROM "+table).Error)
		}
	}
	wipe()
	t.Cleanup(wipe)
	return conn
}

func seedJane(t *testing.T, conn *Conn) {
	t.Helper()
	email := "jane@example.com"
	down, up := 50.0, 10.0
	planID := uint(1)
	require.NoError(t, conn.DB.Create(&models.Customer{ID: 2004, FirstName: "Jane", LastName: "Doe", Email: &email}).Error)
	require.NoError(t, conn.DB.Create(&models.ServicePlan{ID: planID, Name: "Home 50", DownloadSpeed: &down, UploadSpeed: &up}).Error)
	require.NoError(t, conn.DB.Create(&models.CustomerService{ID: 17, CustomerID: 2004, ServicePlanID: &planID, Status: models.StatusActive}).Error)
}

func newReconciler(t *testing.T, s *Session) *provisioning.Reconciler {
	replies, err := radius.NewReplyBuilder("mikrotik", false)
	require.NoError(t, err)
	return provisioning.NewReconciler(s, credentials.NewSimpleCredentialProvider(12), replies, provisioning.Settings{
		DefaultLimits: radius.Limits{DownloadMbps: 10, UploadMbps: 10},
		Fallback:      provisioning.Identity{Username: "testuser", Password: "testpass123"},
	})
}

func TestSession_ProvisionTwice(t *testing.T) {
	conn := testConn(t)
	seedJane(t, conn)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := conn.WithSession(ctx, func(s *Session) error {
			_, err := newReconciler(t, s).Run(ctx, provisioning.Filter{})
			return err
		})
		require.NoError(t, err)
	}

	var svc models.CustomerService
	require.NoError(t, conn.DB.First(&svc, 17).Error)
	require.NotNil(t, svc.PPPoEUsername)
	assert.Equal(t, "jane2004", *svc.PPPoEUsername)

	var checks []models.RadCheck
	require.NoError(t, conn.DB.Where("username = ?", "jane2004").Find(&checks).Error)
	require.Len(t, checks, 1)
	assert.Equal(t, *svc.PPPoEPassword, checks[0].Value)

	var replies []models.RadReply
	require.NoError(t, conn.DB.Where("username = ?", "jane2004").Find(&replies).Error)
	require.Len(t, replies, 1)
	assert.Equal(t, "10M/50M", replies[0].Value)
}

func TestSession_RollsBackOnError(t *testing.T) {
	conn := testConn(t)
	seedJane(t, conn)
	ctx := context.Background()

	err := conn.WithSession(ctx, func(s *Session) error {
		if _, err := newReconciler(t, s).Run(ctx, provisioning.Filter{}); err != nil {
			return err
		}
		return errors.New("operator abort")
	})
	require.Error(t, err)

	var svc models.CustomerService
	require.NoError(t, conn.DB.First(&svc, 17).Error)
	assert.Nil(t, svc.PPPoEUsername)

	var n int64
	require.NoError(t, conn.DB.Model(&models.RadCheck{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestSession_InactiveUsernames(t *testing.T) {
	conn := testConn(t)
	ctx := context.Background()

	require.NoError(t, conn.DB.Create(&models.Customer{ID: 1, FirstName: "A"}).Error)
	for _, svc := range []models.CustomerService{
		{ID: 1, CustomerID: 1, Status: models.StatusCancelled, PPPoEUsername: strPtr("gone1")},
		{ID: 2, CustomerID: 1, Status: models.StatusSuspended, PPPoEUsername: strPtr("shared1")},
		{ID: 3, CustomerID: 1, Status: models.StatusActive, PPPoEUsername: strPtr("shared1")},
	} {
		svc := svc
		require.NoError(t, conn.DB.Create(&svc).Error)
	}

	err := conn.WithSession(ctx, func(s *Session) error {
		names, err := s.InactiveUsernames(ctx)
		if err != nil {
			return err
		}
		assert.Equal(t, []string{"gone1"}, names)
		return nil
	})
	require.NoError(t, err)
}

func strPtr(s string) *string { return &s }
