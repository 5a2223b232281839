package rankings

import (
	"time"

	"github.com/classpulse/classpulse-backend/pkg/db/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordScoreRequest stores one graded result.
type RecordScoreRequest struct {
	StudentID uuid.UUID       `json:"student_id" validate:"required"`
	Subject   string          `json:"subject" validate:"required"`
	Term      string          `json:"term" validate:"required"`
	Score     decimal.Decimal `json:"score"`
	MaxScore  decimal.Decimal `json:"max_score"`
}

// ScoreDTO is the transport shape of a stored performance score.
type ScoreDTO struct {
	ID         uuid.UUID       `json:"id"`
	SchoolID   uuid.UUID       `json:"school_id"`
	StudentID  uuid.UUID       `json:"student_id"`
	Subject    string          `json:"subject"`
	Term       string          `json:"term"`
	Score      decimal.Decimal `json:"score"`
	MaxScore   decimal.Decimal `json:"max_score"`
	RecordedBy uuid.UUID       `json:"recorded_by"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Entry is one student's position in a ranking.
type Entry struct {
	Rank      int             `json:"rank"`
	StudentID uuid.UUID       `json:"student_id"`
	Average   decimal.Decimal `json:"average"`
	Scores    int64           `json:"scores"`
}

// Ranking is the ordered standing for one school and term.
type Ranking struct {
	SchoolID   uuid.UUID `json:"school_id"`
	Term       string    `json:"term"`
	Entries    []Entry   `json:"entries"`
	ComputedAt time.Time `json:"computed_at"`
}

// FromModel converts the persistence model to its transport shape.
func FromModel(s *models.PerformanceScore) *ScoreDTO {
	if s == nil {
		return nil
	}
	return &ScoreDTO{
		ID:         s.ID,
		SchoolID:   s.SchoolID,
		StudentID:  s.StudentID,
		Subject:    s.Subject,
		Term:       s.Term,
		Score:      s.Score,
		MaxScore:   s.MaxScore,
		RecordedBy: s.RecordedBy,
		CreatedAt:  s.CreatedAt,
	}
}
