package guardians

import (
	"context"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes guardian-link persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a guardians repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx inserts a link inside the caller's transaction.
func (r *Repository) CreateTx(ctx context.Context, tx *gorm.DB, link *models.GuardianLink) error {
	return tx.WithContext(ctx).Create(link).Error
}

// DeleteTx removes the (guardian, student) pair inside the caller's
// transaction and reports whether a row existed.
func (r *Repository) DeleteTx(ctx context.Context, tx *gorm.DB, guardianID, studentID uuid.UUID) (bool, error) {
	result := tx.WithContext(ctx).
		Where("guardian_id = ? AND student_id = ?", guardianID, studentID).
		Delete(&models.GuardianLink{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByGuardian returns all links for a guardian.
func (r *Repository) ListByGuardian(ctx context.Context, guardianID uuid.UUID) ([]models.GuardianLink, error) {
	var rows []models.GuardianLink
	err := r.db.WithContext(ctx).
		Where("guardian_id = ?", guardianID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByGuardianTx is ListByGuardian inside the caller's transaction, used to
// rebuild the denormalized student_ids array atomically with link changes.
func (r *Repository) ListByGuardianTx(ctx context.Context, tx *gorm.DB, guardianID uuid.UUID) ([]models.GuardianLink, error) {
	var rows []models.GuardianLink
	err := tx.WithContext(ctx).
		Where("guardian_id = ?", guardianID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListGuardiansByStudent returns the guardian user IDs linked to a student.
func (r *Repository) ListGuardiansByStudent(ctx context.Context, studentID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.GuardianLink{}).
		Where("student_id = ?", studentID).
		Pluck("guardian_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
