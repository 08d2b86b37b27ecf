package models

// PayrollRecord only carries the column the schema command adds; the table
// itself belongs to the HR module.
type PayrollRecord struct {
	ID           uint    `gorm:"primaryKey"`
	EmployeeName *string `gorm:"type:varchar(255)"`
}
