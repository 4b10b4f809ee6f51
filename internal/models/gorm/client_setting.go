package gorm

import "time"

// ClientSetting is a durable key/value pair, e.g. the stored API credential.
type ClientSetting struct {
	Key       string    `gorm:"column:key;primaryKey;size:64"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ClientSetting) TableName() string {
	return "client_settings"
}
