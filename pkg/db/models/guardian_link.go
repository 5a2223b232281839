package models

import (
	"time"

	"github.com/google/uuid"
)

// GuardianLink ties a parent user to a student. The (guardian, student) pair
// is unique; User.StudentIDs mirrors these rows for cheap reads.
type GuardianLink struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	GuardianID   uuid.UUID `gorm:"column:guardian_id;type:uuid;not null;uniqueIndex:ux_guardian_links_pair"`
	StudentID    uuid.UUID `gorm:"column:student_id;type:uuid;not null;uniqueIndex:ux_guardian_links_pair"`
	Relationship string    `gorm:"column:relationship;type:text;not null;default:'guardian'"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
