package db

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"radius-sync/logger"
	"radius-sync/models"
)

const pppoeUsernameIndex = "idx_customer_services_pppoe_username"

// MigrateSchema adds the columns and tables provisioning depends on. Every
// step checks before it changes anything, so it is safe to run repeatedly.
func MigrateSchema(ctx context.Context, conn *Conn) error {
	m := conn.DB.WithContext(ctx).Migrator()

	if !m.HasTable(&models.CustomerService{}) {
		return errors.New("customer_services table does not exist")
	}

	for _, field := range []string{"PPPoEUsername", "PPPoEPassword"} {
		if err := addColumnIfMissing(m, &models.CustomerService{}, field); err != nil {
			return err
		}
	}
	if !m.HasIndex(&models.CustomerService{}, pppoeUsernameIndex) {
		if err := m.CreateIndex(&models.CustomerService{}, pppoeUsernameIndex); err != nil {
			return errors.Wrap(err, "failed to create pppoe_username index")
		}
		logger.Logger.Infof("Created index %s", pppoeUsernameIndex)
	}

	if m.HasTable(&models.PayrollRecord{}) {
		if err := addColumnIfMissing(m, &models.PayrollRecord{}, "EmployeeName"); err != nil {
			return err
		}
	} else {
		logger.Logger.Info("payroll_records table not found, skipping employee_name column")
	}

	rm := conn.RadiusDB.WithContext(ctx).Migrator()
	radiusTables := []struct {
		name  string
		model interface{}
	}{
		{models.RadCheck{}.TableName(), &models.RadCheck{}},
		{models.RadReply{}.TableName(), &models.RadReply{}},
	}
	for _, t := range radiusTables {
		if rm.HasTable(t.model) {
			continue
		}
		if err := rm.CreateTable(t.model); err != nil {
			return errors.Wrapf(err, "failed to create %s table", t.name)
		}
		logger.Logger.Infof("Created table %s", t.name)
	}

	return verifyColumns(m)
}

func addColumnIfMissing(m gorm.Migrator, model interface{}, field string) error {
	if m.HasColumn(model, field) {
		logger.Logger.Debugf("Column for %s already present", field)
		return nil
	}
	if err := m.AddColumn(model, field); err != nil {
		return errors.Wrapf(err, "failed to add column for %s", field)
	}
	logger.Logger.Infof("Added column for %s", field)
	return nil
}

func verifyColumns(m gorm.Migrator) error {
	columns, err := m.ColumnTypes(&models.CustomerService{})
	if err != nil {
		return errors.Wrap(err, "failed to read customer_services columns")
	}
	found := 0
	for _, col := range columns {
		if strings.HasPrefix(col.Name(), "pppoe_") {
			logger.Logger.Infof("Verified column customer_services.%s: %s", col.Name(), col.DatabaseTypeName())
			found++
		}
	}
	if found != 2 {
		return errors.Errorf("expected 2 pppoe columns on customer_services, found %d", found)
	}
	return nil
}
