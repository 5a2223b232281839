package attendance

import (
	"context"
	"time"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/classpulse/classpulse-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes attendance persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an attendance repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UpsertTx writes one attendance record inside the caller's transaction.
// Re-marking the same (session, student) pair overwrites the previous row.
func (r *Repository) UpsertTx(ctx context.Context, tx *gorm.DB, record *models.AttendanceRecord) error {
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "note", "marked_by", "marked_at", "updated_at",
			}),
		}).
		Create(record).Error
}

// ListBySession returns all records for a session ordered by marking time.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.AttendanceRecord, error) {
	var rows []models.AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("marked_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// statusCount is the scan target for the grouped summary query.
type statusCount struct {
	Status enums.AttendanceStatus
	Count  int64
}

// CountByStatus groups a student's records by status over a marked_at range.
func (r *Repository) CountByStatus(ctx context.Context, studentID uuid.UUID, from, to time.Time) (map[enums.AttendanceStatus]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Select("status, COUNT(*) AS count").
		Where("student_id = ? AND marked_at >= ? AND marked_at < ?", studentID, from, to).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[enums.AttendanceStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
