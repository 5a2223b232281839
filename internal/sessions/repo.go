package sessions

import (
	"context"
	"time"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	"github.com/classpulse/classpulse-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes class-session persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a sessions repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new session row.
func (r *Repository) Create(ctx context.Context, session *models.ClassSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindByID loads a session scoped to a school.
func (r *Repository) FindByID(ctx context.Context, schoolID, id uuid.UUID) (*models.ClassSession, error) {
	var session models.ClassSession
	err := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByIDTx loads a session inside the caller's transaction.
func (r *Repository) FindByIDTx(ctx context.Context, tx *gorm.DB, schoolID, id uuid.UUID) (*models.ClassSession, error) {
	var session models.ClassSession
	err := tx.WithContext(ctx).
		Where("school_id = ?", schoolID).
		First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// TransitionTx flips the session status with an optimistic status guard and
// reports whether a row moved. The fields map carries opened_at/closed_at.
func (r *Repository) TransitionTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, from, to enums.SessionStatus, fields map[string]any) (bool, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["status"] = to
	result := tx.WithContext(ctx).
		Model(&models.ClassSession{}).
		Where("id = ? AND status = ?", id, from).
		Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByTeacher returns a buffered page of a teacher's sessions ordered by
// (created_at, id) descending, optionally filtered to one calendar day.
func (r *Repository) ListByTeacher(ctx context.Context, schoolID, teacherID uuid.UUID, day *time.Time, status enums.SessionStatus, cursor *pagination.Cursor, bufferedLimit int) ([]models.ClassSession, error) {
	q := r.db.WithContext(ctx).
		Where("school_id = ? AND teacher_id = ?", schoolID, teacherID).
		Order("created_at DESC, id DESC").
		Limit(bufferedLimit)
	if day != nil {
		start := day.Truncate(24 * time.Hour)
		q = q.Where("scheduled_start >= ? AND scheduled_start < ?", start, start.Add(24*time.Hour))
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.ClassSession
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListOverdueOpen returns open sessions whose scheduled end passed before the
// cutoff. The cron auto-close job walks these in bounded batches.
func (r *Repository) ListOverdueOpen(ctx context.Context, cutoff time.Time, limit int) ([]models.ClassSession, error) {
	var rows []models.ClassSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_end < ?", enums.SessionOpen, cutoff).
		Order("scheduled_end ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountMarkedTx counts attendance rows recorded for a session inside the
// caller's transaction.
func (r *Repository) CountMarkedTx(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}
