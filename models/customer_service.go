package models

import "strings"

type ServiceStatus string

const (
	StatusActive    ServiceStatus = "active"
	StatusSuspended ServiceStatus = "suspended"
	StatusCancelled ServiceStatus = "cancelled"
)

type CustomerService struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	CustomerID    uint          `gorm:"index;not null" json:"customer_id"`
	ServicePlanID *uint         `json:"service_plan_id,omitempty"`
	Status        ServiceStatus `gorm:"type:varchar(20)" json:"status"`
	IPAddress     *string       `json:"ip_address,omitempty"`
	PPPoEUsername *string       `gorm:"column:pppoe_username;type:varchar(255);index:idx_customer_services_pppoe_username" json:"pppoe_username,omitempty"`
	PPPoEPassword *string       `gorm:"column:pppoe_password;type:varchar(255)" json:"pppoe_password,omitempty"`
}

// ServiceCandidate is one active subscription joined with its customer and
// (optional) plan, as read by the provisioning run.
type ServiceCandidate struct {
	ServiceID     uint     `gorm:"column:service_id"`
	CustomerID    uint     `gorm:"column:customer_id"`
	FirstName     string   `gorm:"column:first_name"`
	LastName      string   `gorm:"column:last_name"`
	Email         *string  `gorm:"column:email"`
	PlanName      *string  `gorm:"column:plan_name"`
	DownloadSpeed *float64 `gorm:"column:download_speed"`
	UploadSpeed   *float64 `gorm:"column:upload_speed"`
	IPAddress     *string  `gorm:"column:ip_address"`
	PPPoEUsername *string  `gorm:"column:pppoe_username"`
	PPPoEPassword *string  `gorm:"column:pppoe_password"`
}

func (c ServiceCandidate) CustomerName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return "unnamed customer"
	}
	return name
}

func (c ServiceCandidate) HasPlan() bool {
	return c.PlanName != nil
}
