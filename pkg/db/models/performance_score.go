package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PerformanceScore is a single graded result feeding the rankings.
type PerformanceScore struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SchoolID   uuid.UUID       `gorm:"column:school_id;type:uuid;not null;index"`
	StudentID  uuid.UUID       `gorm:"column:student_id;type:uuid;not null;index"`
	Subject    string          `gorm:"type:text;not null"`
	Term       string          `gorm:"type:text;not null;index"`
	Score      decimal.Decimal `gorm:"column:score;type:numeric(5,2);not null"`
	MaxScore   decimal.Decimal `gorm:"column:max_score;type:numeric(5,2);not null;default:100"`
	RecordedBy uuid.UUID       `gorm:"column:recorded_by;type:uuid;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
