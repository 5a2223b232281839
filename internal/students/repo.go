package students

import (
	"context"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes student persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a students repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new student row.
func (r *Repository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

// FindByID loads a student scoped to a school.
func (r *Repository) FindByID(ctx context.Context, schoolID, id uuid.UUID) (*models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		First(&student, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// FindByIDs loads students by primary key without school scoping. Used by
// services that already hold an authorization decision (guardian links).
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Student
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("last_name ASC, first_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Updates applies the provided column map to the student row.
func (r *Repository) Updates(ctx context.Context, schoolID, id uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("school_id = ? AND id = ?", schoolID, id).
		Updates(fields).Error
}

// List returns a buffered page of students ordered by (created_at, id) descending.
func (r *Repository) List(ctx context.Context, schoolID uuid.UUID, gradeLevel string, cursor *pagination.Cursor, bufferedLimit int) ([]models.Student, error) {
	q := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("created_at DESC, id DESC").
		Limit(bufferedLimit)
	if gradeLevel != "" {
		q = q.Where("grade_level = ?", gradeLevel)
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Student
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountActiveBySchool returns the number of active students in a school.
func (r *Repository) CountActiveBySchool(ctx context.Context, schoolID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Where("school_id = ? AND is_active = true", schoolID).
		Count(&count).Error
	return count, err
}

// ListActiveByGrade returns active students of a grade level in a school,
// used when seeding a session roster.
func (r *Repository) ListActiveByGrade(ctx context.Context, schoolID uuid.UUID, gradeLevel string) ([]models.Student, error) {
	var rows []models.Student
	err := r.db.WithContext(ctx).
		Where("school_id = ? AND grade_level = ? AND is_active = true", schoolID, gradeLevel).
		Order("last_name ASC, first_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
