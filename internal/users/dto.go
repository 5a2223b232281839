package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	dbtypes "github.com/classpulse/classpulse-backend/pkg/db/types"
	"github.com/classpulse/classpulse-backend/pkg/enums"
)

// UserDTO is the transport shape that omits credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Phone       *string        `json:"phone,omitempty"`
	Role        enums.UserRole `json:"role"`
	SchoolID    uuid.UUID      `json:"school_id"`
	IsActive    bool           `json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	StudentIDs  []uuid.UUID    `json:"student_ids"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
// Exactly one of PasswordHash / GoogleSubject is expected for credentialed
// accounts; Google-only accounts carry no password hash.
type CreateUserDTO struct {
	Email         string
	PasswordHash  *string
	GoogleSubject *string
	FirstName     string
	LastName      string
	Phone         *string
	Role          enums.UserRole
	SchoolID      uuid.UUID
	StudentIDs    []uuid.UUID
	IsActive      *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		Role:        u.Role,
		SchoolID:    u.SchoolID,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		StudentIDs:  append([]uuid.UUID(nil), []uuid.UUID(u.StudentIDs)...),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	studentIDs := c.StudentIDs
	if studentIDs == nil {
		studentIDs = []uuid.UUID{}
	} else {
		studentIDs = append([]uuid.UUID(nil), studentIDs...)
	}

	return &models.User{
		Email:         c.Email,
		PasswordHash:  c.PasswordHash,
		GoogleSubject: c.GoogleSubject,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Phone:         c.Phone,
		Role:          c.Role,
		SchoolID:      c.SchoolID,
		IsActive:      isActive,
		StudentIDs:    dbtypes.UUIDArray(studentIDs),
	}
}
