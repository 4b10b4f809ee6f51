package gorm

import "time"

// ActionLog owns the schema of action_logs. Reads and writes go through sqlx.
type ActionLog struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    string    `gorm:"column:user_id;index;not null"`
	Action    string    `gorm:"column:action;size:32;not null"`
	TargetID  string    `gorm:"column:target_id"`
	Outcome   string    `gorm:"column:outcome;size:32;not null"`
	Detail    string    `gorm:"column:detail"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

// TableName specifies the table name for GORM
func (ActionLog) TableName() string {
	return "action_logs"
}
