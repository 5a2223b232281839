package students

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/classpulse/classpulse-backend/pkg/db"
	"github.com/classpulse/classpulse-backend/pkg/db/models"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service defines the behavior needed by the students controller.
type Service interface {
	Create(ctx context.Context, schoolID uuid.UUID, req CreateStudentRequest) (*StudentDTO, error)
	Get(ctx context.Context, schoolID, id uuid.UUID) (*StudentDTO, error)
	Update(ctx context.Context, schoolID, id uuid.UUID, req UpdateStudentRequest) (*StudentDTO, error)
	List(ctx context.Context, schoolID uuid.UUID, req ListStudentsRequest) (*ListStudentsResponse, error)
	ListForGuardian(ctx context.Context, studentIDs []uuid.UUID) ([]*StudentDTO, error)
}

type studentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	FindByID(ctx context.Context, schoolID, id uuid.UUID) (*models.Student, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Student, error)
	Updates(ctx context.Context, schoolID, id uuid.UUID, fields map[string]any) error
	List(ctx context.Context, schoolID uuid.UUID, gradeLevel string, cursor *pagination.Cursor, bufferedLimit int) ([]models.Student, error)
}

type service struct {
	repo studentRepository
}

// NewService constructs the students service.
func NewService(repo studentRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("student repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, schoolID uuid.UUID, req CreateStudentRequest) (*StudentDTO, error) {
	student := &models.Student{
		SchoolID:    schoolID,
		AdmissionNo: strings.TrimSpace(req.AdmissionNo),
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		GradeLevel:  strings.TrimSpace(req.GradeLevel),
		IsActive:    true,
	}
	if student.AdmissionNo == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admission number is required")
	}

	if err := s.repo.Create(ctx, student); err != nil {
		if db.IsUniqueViolation(err, "ux_students_school_admission") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("A student with admission number %q already exists", student.AdmissionNo))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create student")
	}
	return FromModel(student), nil
}

func (s *service) Get(ctx context.Context, schoolID, id uuid.UUID) (*StudentDTO, error) {
	student, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Student not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load student")
	}
	return FromModel(student), nil
}

func (s *service) Update(ctx context.Context, schoolID, id uuid.UUID, req UpdateStudentRequest) (*StudentDTO, error) {
	fields := map[string]any{}
	if req.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*req.LastName)
	}
	if req.GradeLevel != nil {
		fields["grade_level"] = strings.TrimSpace(*req.GradeLevel)
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if len(fields) == 0 {
		return s.Get(ctx, schoolID, id)
	}

	// Load first so missing rows surface as 404 instead of a silent no-op.
	if _, err := s.Get(ctx, schoolID, id); err != nil {
		return nil, err
	}
	if err := s.repo.Updates(ctx, schoolID, id, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update student")
	}
	return s.Get(ctx, schoolID, id)
}

func (s *service) List(ctx context.Context, schoolID uuid.UUID, req ListStudentsRequest) (*ListStudentsResponse, error) {
	cursor, err := pagination.ParseCursor(req.Cursor)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, schoolID, strings.TrimSpace(req.GradeLevel), cursor, pagination.LimitWithBuffer(req.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list students")
	}

	trimmed, hasMore := pagination.Trim(rows, req.Limit)
	resp := &ListStudentsResponse{Students: fromModels(trimmed)}
	if hasMore {
		last := trimmed[len(trimmed)-1]
		resp.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return resp, nil
}

func (s *service) ListForGuardian(ctx context.Context, studentIDs []uuid.UUID) ([]*StudentDTO, error) {
	rows, err := s.repo.FindByIDs(ctx, studentIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list linked students")
	}
	return fromModels(rows), nil
}
