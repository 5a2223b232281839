package models

import (
	"time"

	dbtypes "github.com/classpulse/classpulse-backend/pkg/db/types"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	"github.com/google/uuid"
)

// User represents the canonical identity entity for admins, teachers, and parents.
// PasswordHash is nil for Google-only accounts.
type User struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email         string            `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash  *string           `gorm:"column:password_hash"`
	GoogleSubject *string           `gorm:"column:google_subject;uniqueIndex"`
	FirstName     string            `gorm:"column:first_name;not null"`
	LastName      string            `gorm:"column:last_name;not null"`
	Phone         *string           `gorm:"column:phone"`
	Role          enums.UserRole    `gorm:"column:role;type:text;not null"`
	SchoolID      uuid.UUID         `gorm:"column:school_id;type:uuid;not null;index"`
	IsActive      bool              `gorm:"column:is_active;not null;default:true"`
	LastLoginAt   *time.Time        `gorm:"column:last_login_at"`
	StudentIDs    dbtypes.UUIDArray `gorm:"type:uuid[];column:student_ids;not null;default:ARRAY[]::uuid[]"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
