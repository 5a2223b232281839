package users

import (
	"context"
	"time"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	dbtypes "github.com/classpulse/classpulse-backend/pkg/db/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes user-related persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user and returns the persisted model.
func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateTx inserts a new user inside the caller's transaction.
func (r *Repository) CreateTx(ctx context.Context, tx *gorm.DB, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := tx.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// FindByEmail retrieves the user matching the provided email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByGoogleSubject retrieves the user bound to a Google account.
func (r *Repository) FindByGoogleSubject(ctx context.Context, subject string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("google_subject = ?", subject).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads a user by their UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateLastLogin refreshes the user's last_login_at timestamp.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// LinkGoogleSubject binds a Google account to an existing user.
func (r *Repository) LinkGoogleSubject(ctx context.Context, id uuid.UUID, subject string) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("google_subject", subject).Error
}

// UpdateStudentIDs overwrites the guardian's denormalized student_ids array.
func (r *Repository) UpdateStudentIDs(ctx context.Context, id uuid.UUID, studentIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("student_ids", dbtypes.UUIDArray(studentIDs)).Error
}

// UpdateStudentIDsTx is UpdateStudentIDs inside the caller's transaction so
// the mirror commits atomically with guardian link changes.
func (r *Repository) UpdateStudentIDsTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, studentIDs []uuid.UUID) error {
	return tx.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("student_ids", dbtypes.UUIDArray(studentIDs)).Error
}

// ListBySchool returns all active users of a role within a school.
func (r *Repository) ListBySchool(ctx context.Context, schoolID uuid.UUID, role string) ([]models.User, error) {
	var rows []models.User
	q := r.db.WithContext(ctx).Where("school_id = ?", schoolID)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
