package models

import (
	"time"

	"github.com/google/uuid"
)

// Student is a school-scoped pupil record. AdmissionNo is unique per school.
type Student struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SchoolID    uuid.UUID `gorm:"column:school_id;type:uuid;not null;uniqueIndex:ux_students_school_admission"`
	AdmissionNo string    `gorm:"column:admission_no;type:text;not null;uniqueIndex:ux_students_school_admission"`
	FirstName   string    `gorm:"column:first_name;not null"`
	LastName    string    `gorm:"column:last_name;not null"`
	GradeLevel  string    `gorm:"column:grade_level;type:text;not null"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
