package models

const (
	AttrCleartextPassword = "Cleartext-Password"
	AttrMikrotikRateLimit = "Mikrotik-Rate-Limit"
	AttrFramedIPAddress   = "Framed-IP-Address"
	AttrFramedProtocol    = "Framed-Protocol"
	AttrServiceType       = "Service-Type"

	OpSet = ":="
)

type RadCheck struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"type:varchar(64);not null;default:'';uniqueIndex:radcheck_username_attribute" json:"username"`
	Attribute string `gorm:"type:varchar(64);not null;default:'';uniqueIndex:radcheck_username_attribute" json:"attribute"`
	Op        string `gorm:"type:char(2);not null;default:'=='" json:"op"`
	Value     string `gorm:"type:varchar(253);not null;default:''" json:"value"`
}

func (RadCheck) TableName() string {
	return "radcheck"
}

type RadReply struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"type:varchar(64);not null;default:'';uniqueIndex:radreply_username_attribute" json:"username"`
	Attribute string `gorm:"type:varchar(64);not null;default:'';uniqueIndex:radreply_username_attribute" json:"attribute"`
	Op        string `gorm:"type:char(2);not null;default:'='" json:"op"`
	Value     string `gorm:"type:varchar(253);not null;default:''" json:"value"`
}

func (RadReply) TableName() string {
	return "radreply"
}
