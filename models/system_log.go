package models

import (
	"time"

	"gorm.io/datatypes"
)

type SystemLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Level      string         `gorm:"type:varchar(20)" json:"level"`
	Source     string         `json:"source"`
	Category   string         `json:"category"`
	Message    string         `json:"message"`
	Details    datatypes.JSON `json:"details,omitempty"`
	CustomerID *uint          `json:"customer_id,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}
