package guardians

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/classpulse/classpulse-backend/pkg/db"
	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultRelationship = "guardian"

// LinkRequest ties a parent account to a student.
type LinkRequest struct {
	GuardianID   uuid.UUID `json:"guardian_id" validate:"required"`
	StudentID    uuid.UUID `json:"student_id" validate:"required"`
	Relationship string    `json:"relationship,omitempty"`
}

// LinkDTO is the transport shape for a guardian link.
type LinkDTO struct {
	ID           uuid.UUID `json:"id"`
	GuardianID   uuid.UUID `json:"guardian_id"`
	StudentID    uuid.UUID `json:"student_id"`
	Relationship string    `json:"relationship"`
}

// Service manages parent-to-student links and keeps the denormalized
// User.StudentIDs mirror in step with the link rows.
type Service interface {
	Link(ctx context.Context, schoolID uuid.UUID, req LinkRequest) (*LinkDTO, error)
	Unlink(ctx context.Context, schoolID, guardianID, studentID uuid.UUID) error
	LinkedStudentIDs(ctx context.Context, guardianID uuid.UUID) ([]uuid.UUID, error)
	GuardiansOfStudent(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type linkRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, link *models.GuardianLink) error
	DeleteTx(ctx context.Context, tx *gorm.DB, guardianID, studentID uuid.UUID) (bool, error)
	ListByGuardian(ctx context.Context, guardianID uuid.UUID) ([]models.GuardianLink, error)
	ListByGuardianTx(ctx context.Context, tx *gorm.DB, guardianID uuid.UUID) ([]models.GuardianLink, error)
	ListGuardiansByStudent(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error)
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateStudentIDsTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, studentIDs []uuid.UUID) error
}

type studentRepository interface {
	FindByID(ctx context.Context, schoolID, id uuid.UUID) (*models.Student, error)
}

type service struct {
	tx       txRunner
	links    linkRepository
	users    userRepository
	students studentRepository
}

// ServiceParams bundles the dependencies required to build a guardians service.
type ServiceParams struct {
	Tx       txRunner
	Links    linkRepository
	Users    userRepository
	Students studentRepository
}

// NewService constructs the guardians service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Links == nil {
		return nil, fmt.Errorf("link repository is required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Students == nil {
		return nil, fmt.Errorf("student repository is required")
	}
	return &service{
		tx:       params.Tx,
		links:    params.Links,
		users:    params.Users,
		students: params.Students,
	}, nil
}

func (s *service) Link(ctx context.Context, schoolID uuid.UUID, req LinkRequest) (*LinkDTO, error) {
	guardian, err := s.loadGuardian(ctx, schoolID, req.GuardianID)
	if err != nil {
		return nil, err
	}

	if _, err := s.students.FindByID(ctx, schoolID, req.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Student not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load student")
	}

	relationship := strings.TrimSpace(req.Relationship)
	if relationship == "" {
		relationship = defaultRelationship
	}

	link := &models.GuardianLink{
		GuardianID:   guardian.ID,
		StudentID:    req.StudentID,
		Relationship: relationship,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if createErr := s.links.CreateTx(ctx, tx, link); createErr != nil {
			return createErr
		}
		return s.syncMirrorTx(ctx, tx, guardian.ID)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_guardian_links_pair") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "Guardian is already linked to this student")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link guardian")
	}

	return &LinkDTO{
		ID:           link.ID,
		GuardianID:   link.GuardianID,
		StudentID:    link.StudentID,
		Relationship: link.Relationship,
	}, nil
}

func (s *service) Unlink(ctx context.Context, schoolID, guardianID, studentID uuid.UUID) error {
	guardian, err := s.loadGuardian(ctx, schoolID, guardianID)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		removed, deleteErr := s.links.DeleteTx(ctx, tx, guardian.ID, studentID)
		if deleteErr != nil {
			return deleteErr
		}
		if !removed {
			return gorm.ErrRecordNotFound
		}
		return s.syncMirrorTx(ctx, tx, guardian.ID)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "Guardian link not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unlink guardian")
	}
	return nil
}

func (s *service) LinkedStudentIDs(ctx context.Context, guardianID uuid.UUID) ([]uuid.UUID, error) {
	links, err := s.links.ListByGuardian(ctx, guardianID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list guardian links")
	}
	ids := make([]uuid.UUID, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.StudentID)
	}
	return ids, nil
}

func (s *service) GuardiansOfStudent(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.links.ListGuardiansByStudent(ctx, studentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list student guardians")
	}
	return ids, nil
}

func (s *service) loadGuardian(ctx context.Context, schoolID, guardianID uuid.UUID) (*models.User, error) {
	guardian, err := s.users.FindByID(ctx, guardianID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Guardian not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load guardian")
	}
	if guardian.SchoolID != schoolID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Guardian not found")
	}
	if guardian.Role != enums.UserRoleParent {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Only parent accounts can be linked to students")
	}
	return guardian, nil
}

// syncMirrorTx rebuilds User.StudentIDs from the link rows inside the same
// transaction that changed them.
func (s *service) syncMirrorTx(ctx context.Context, tx *gorm.DB, guardianID uuid.UUID) error {
	links, err := s.links.ListByGuardianTx(ctx, tx, guardianID)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(links))
	for _, link := range links {
		ids = append(ids, link.StudentID)
	}
	return s.users.UpdateStudentIDsTx(ctx, tx, guardianID, ids)
}
