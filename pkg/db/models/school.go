package models

import (
	"time"

	"github.com/google/uuid"
)

// School is the tenancy root every user, student, and session is scoped to.
type School struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"type:text;not null"`
	TimeZone  string    `gorm:"column:time_zone;type:text;not null;default:'UTC'"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
