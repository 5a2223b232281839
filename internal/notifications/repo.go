package notifications

import (
	"context"
	"time"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes notification persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a notifications repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InsertIgnoreDuplicate stores the notification and swallows replays. The
// (event_id, guardian_id) unique index makes event consumption idempotent at
// the database even when the Redis guard misses.
func (r *Repository) InsertIgnoreDuplicate(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(notification).Error
}

// ListByGuardian returns a buffered page ordered by (created_at, id) descending.
func (r *Repository) ListByGuardian(ctx context.Context, guardianID uuid.UUID, unreadOnly bool, cursor *pagination.Cursor, bufferedLimit int) ([]models.Notification, error) {
	q := r.db.WithContext(ctx).
		Where("guardian_id = ?", guardianID).
		Order("created_at DESC, id DESC").
		Limit(bufferedLimit)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	if cursor != nil {
		q = q.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Notification
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountUnread returns the guardian's unread notification count.
func (r *Repository) CountUnread(ctx context.Context, guardianID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("guardian_id = ? AND read_at IS NULL", guardianID).
		Count(&count).Error
	return count, err
}

// MarkRead stamps read_at on an unread notification owned by the guardian and
// reports whether a row changed.
func (r *Repository) MarkRead(ctx context.Context, guardianID, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND guardian_id = ? AND read_at IS NULL", id, guardianID).
		UpdateColumn("read_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteOlderThan prunes notifications created before the cutoff and returns
// how many rows were removed.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
