package models

// ServicePlan speeds are in Mbps. Older databases name the columns
// speed_download/speed_upload; db.Conn detects which pair exists.
type ServicePlan struct {
	ID            uint     `gorm:"primaryKey" json:"id"`
	Name          string   `json:"name"`
	DownloadSpeed *float64 `gorm:"column:download_speed" json:"download_speed,omitempty"`
	UploadSpeed   *float64 `gorm:"column:upload_speed" json:"upload_speed,omitempty"`
	DataLimit     *int64   `json:"data_limit,omitempty"`
}
