package models

import (
	"time"

	"github.com/classpulse/classpulse-backend/pkg/enums"
	"github.com/google/uuid"
)

// Notification stores in-app notification payloads scoped to guardians.
// EventID keeps event consumption idempotent.
type Notification struct {
	ID         uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GuardianID uuid.UUID              `gorm:"column:guardian_id;type:uuid;not null;index"`
	StudentID  uuid.UUID              `gorm:"column:student_id;type:uuid;not null"`
	Kind       enums.NotificationKind `gorm:"column:kind;type:text;not null"`
	Title      string                 `gorm:"type:text;not null"`
	Message    string                 `gorm:"type:text;not null"`
	EventID    *string                `gorm:"column:event_id;type:text;uniqueIndex:ux_notifications_event_guardian"`
	ReadAt     *time.Time             `gorm:"type:timestamptz"`
	CreatedAt  time.Time              `gorm:"type:timestamptz;default:now()"`
}
