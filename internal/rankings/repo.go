package rankings

import (
	"context"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StudentAverage is the aggregate scan target for ranking computation.
type StudentAverage struct {
	StudentID uuid.UUID
	Average   decimal.Decimal
	Scores    int64
}

// Repository exposes performance-score persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a rankings repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InsertScore stores one graded result.
func (r *Repository) InsertScore(ctx context.Context, score *models.PerformanceScore) error {
	return r.db.WithContext(ctx).Create(score).Error
}

// ListScoresByStudent returns a student's scores for one term.
func (r *Repository) ListScoresByStudent(ctx context.Context, schoolID, studentID uuid.UUID, term string) ([]models.PerformanceScore, error) {
	var rows []models.PerformanceScore
	err := r.db.WithContext(ctx).
		Where("school_id = ? AND student_id = ? AND term = ?", schoolID, studentID, term).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// AveragesBySchoolTerm computes per-student percentage averages for a school
// and term, highest first. Percentages keep different max_score scales
// comparable; two decimal places match the column precision.
func (r *Repository) AveragesBySchoolTerm(ctx context.Context, schoolID uuid.UUID, term string) ([]StudentAverage, error) {
	var rows []StudentAverage
	err := r.db.WithContext(ctx).
		Model(&models.PerformanceScore{}).
		Select("student_id, ROUND(AVG(score / max_score * 100), 2) AS average, COUNT(*) AS scores").
		Where("school_id = ? AND term = ? AND max_score > 0", schoolID, term).
		Group("student_id").
		Order("average DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DistinctTerms lists the terms a school has scores for, newest first.
func (r *Repository) DistinctTerms(ctx context.Context, schoolID uuid.UUID) ([]string, error) {
	var terms []string
	err := r.db.WithContext(ctx).
		Model(&models.PerformanceScore{}).
		Where("school_id = ?", schoolID).
		Distinct("term").
		Order("term DESC").
		Pluck("term", &terms).Error
	if err != nil {
		return nil, err
	}
	return terms, nil
}

// SchoolsWithScores lists school IDs that have any scores recorded. The cron
// refresh walks these.
func (r *Repository) SchoolsWithScores(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.PerformanceScore{}).
		Distinct("school_id").
		Pluck("school_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
