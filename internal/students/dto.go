package students

import (
	"time"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/google/uuid"
)

// StudentDTO is the transport shape for a student record.
type StudentDTO struct {
	ID          uuid.UUID `json:"id"`
	SchoolID    uuid.UUID `json:"school_id"`
	AdmissionNo string    `json:"admission_no"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	GradeLevel  string    `json:"grade_level"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateStudentRequest enrolls a new student in a school.
type CreateStudentRequest struct {
	AdmissionNo string `json:"admission_no" validate:"required"`
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	GradeLevel  string `json:"grade_level" validate:"required"`
}

// UpdateStudentRequest applies a partial update; nil fields are untouched.
type UpdateStudentRequest struct {
	FirstName  *string `json:"first_name,omitempty"`
	LastName   *string `json:"last_name,omitempty"`
	GradeLevel *string `json:"grade_level,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

// ListStudentsRequest filters the school-scoped listing.
type ListStudentsRequest struct {
	GradeLevel string
	Limit      int
	Cursor     string
}

// ListStudentsResponse is a cursor page of students.
type ListStudentsResponse struct {
	Students   []*StudentDTO `json:"students"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// FromModel converts the persistence model to its transport shape.
func FromModel(s *models.Student) *StudentDTO {
	if s == nil {
		return nil
	}
	return &StudentDTO{
		ID:          s.ID,
		SchoolID:    s.SchoolID,
		AdmissionNo: s.AdmissionNo,
		FirstName:   s.FirstName,
		LastName:    s.LastName,
		GradeLevel:  s.GradeLevel,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func fromModels(rows []models.Student) []*StudentDTO {
	out := make([]*StudentDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
