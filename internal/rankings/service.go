package rankings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/classpulse/classpulse-backend/pkg/config"
	"github.com/classpulse/classpulse-backend/pkg/db/models"
	pkgerrors "github.com/classpulse/classpulse-backend/pkg/errors"
	"github.com/classpulse/classpulse-backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Service defines the behavior needed by the rankings controller and the
// cache-refresh cron job.
type Service interface {
	RecordScore(ctx context.Context, schoolID, recordedBy uuid.UUID, req RecordScoreRequest) (*ScoreDTO, error)
	GetRanking(ctx context.Context, schoolID uuid.UUID, term string) (*Ranking, error)
	RefreshAll(ctx context.Context) (int, error)
}

type scoreRepository interface {
	InsertScore(ctx context.Context, score *models.PerformanceScore) error
	AveragesBySchoolTerm(ctx context.Context, schoolID uuid.UUID, term string) ([]StudentAverage, error)
	DistinctTerms(ctx context.Context, schoolID uuid.UUID) ([]string, error)
	SchoolsWithScores(ctx context.Context) ([]uuid.UUID, error)
}

type rankingCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	RankingKey(schoolID, term, period string) string
}

type service struct {
	repo  scoreRepository
	cache rankingCache
	cfg   config.RankingsConfig
	logg  *logger.Logger
	now   func() time.Time
}

// ServiceParams bundles the dependencies required to build a rankings service.
type ServiceParams struct {
	Repo   scoreRepository
	Cache  rankingCache
	Config config.RankingsConfig
	Logger *logger.Logger
	Now    func() time.Time
}

// NewService constructs the rankings service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("score repository is required")
	}
	if params.Cache == nil {
		return nil, fmt.Errorf("ranking cache is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &service{
		repo:  params.Repo,
		cache: params.Cache,
		cfg:   params.Config,
		logg:  params.Logger,
		now:   params.Now,
	}, nil
}

func (s *service) RecordScore(ctx context.Context, schoolID, recordedBy uuid.UUID, req RecordScoreRequest) (*ScoreDTO, error) {
	maxScore := req.MaxScore
	if maxScore.IsZero() {
		maxScore = decimal.NewFromInt(100)
	}
	if maxScore.IsNegative() || req.Score.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scores cannot be negative")
	}
	if req.Score.GreaterThan(maxScore) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "score cannot exceed max_score")
	}
	term := strings.TrimSpace(req.Term)
	if term == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "term is required")
	}

	score := &models.PerformanceScore{
		SchoolID:   schoolID,
		StudentID:  req.StudentID,
		Subject:    strings.TrimSpace(req.Subject),
		Term:       term,
		Score:      req.Score,
		MaxScore:   maxScore,
		RecordedBy: recordedBy,
	}
	if err := s.repo.InsertScore(ctx, score); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record score")
	}
	return FromModel(score), nil
}

// GetRanking serves the cached standing when present and recomputes it
// otherwise. Cache read failures fall through to the database.
func (s *service) GetRanking(ctx context.Context, schoolID uuid.UUID, term string) (*Ranking, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "term is required")
	}

	key := s.cache.RankingKey(schoolID.String(), term, "term")
	cached, err := s.cache.Get(ctx, key)
	if err == nil && cached != "" {
		var ranking Ranking
		if unmarshalErr := json.Unmarshal([]byte(cached), &ranking); unmarshalErr == nil {
			return &ranking, nil
		}
	} else if err != nil && !errors.Is(err, redis.Nil) && s.logg != nil {
		s.logg.Error(ctx, "ranking cache read failed", err)
	}

	return s.computeAndCache(ctx, schoolID, term)
}

// RefreshAll recomputes the cache for every school and term with scores.
// Returns how many rankings were refreshed.
func (s *service) RefreshAll(ctx context.Context) (int, error) {
	schoolIDs, err := s.repo.SchoolsWithScores(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list schools with scores")
	}

	refreshed := 0
	for _, schoolID := range schoolIDs {
		terms, err := s.repo.DistinctTerms(ctx, schoolID)
		if err != nil {
			return refreshed, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list terms")
		}
		for _, term := range terms {
			if _, err := s.computeAndCache(ctx, schoolID, term); err != nil {
				return refreshed, err
			}
			refreshed++
		}
	}
	return refreshed, nil
}

// computeAndCache builds the dense-ranked standing from Postgres and caches
// it as JSON. Students with equal averages share a rank and the next distinct
// average takes rank+1.
func (s *service) computeAndCache(ctx context.Context, schoolID uuid.UUID, term string) (*Ranking, error) {
	averages, err := s.repo.AveragesBySchoolTerm(ctx, schoolID, term)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "compute ranking")
	}

	ranking := &Ranking{
		SchoolID:   schoolID,
		Term:       term,
		Entries:    denseRank(averages),
		ComputedAt: s.now().UTC(),
	}

	payload, err := json.Marshal(ranking)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode ranking")
	}
	key := s.cache.RankingKey(schoolID.String(), term, "term")
	if setErr := s.cache.Set(ctx, key, string(payload), s.cfg.CacheTTL); setErr != nil && s.logg != nil {
		s.logg.Error(ctx, "ranking cache write failed", setErr)
	}
	return ranking, nil
}

func denseRank(averages []StudentAverage) []Entry {
	entries := make([]Entry, 0, len(averages))
	rank := 0
	var prev *decimal.Decimal
	for _, row := range averages {
		if prev == nil || !row.Average.Equal(*prev) {
			rank++
			avg := row.Average
			prev = &avg
		}
		entries = append(entries, Entry{
			Rank:      rank,
			StudentID: row.StudentID,
			Average:   row.Average,
			Scores:    row.Scores,
		})
	}
	return entries
}
