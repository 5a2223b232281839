package cron

import (
	"context"
	"fmt"
	"time"
)

// Job names double as lock keys and metric labels.
const (
	JobSessionAutoclose    = "session_autoclose"
	JobRankingRefresh      = "ranking_refresh"
	JobNotificationCleanup = "notification_cleanup"
	JobOutboxRetention     = "outbox_retention"
)

type sessionCloser interface {
	AutoCloseOverdue(ctx context.Context, now time.Time) (int, error)
}

// SessionAutocloseJob closes open sessions whose scheduled end has passed.
type SessionAutocloseJob struct {
	sessions sessionCloser
	interval time.Duration
	now      func() time.Time
}

// NewSessionAutocloseJob builds the auto-close job.
func NewSessionAutocloseJob(sessions sessionCloser, interval time.Duration) *SessionAutocloseJob {
	return &SessionAutocloseJob{sessions: sessions, interval: interval, now: time.Now}
}

func (j *SessionAutocloseJob) Name() string            { return JobSessionAutoclose }
func (j *SessionAutocloseJob) Interval() time.Duration { return j.interval }

func (j *SessionAutocloseJob) Run(ctx context.Context) (string, error) {
	closed, err := j.sessions.AutoCloseOverdue(ctx, j.now())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("closed %d overdue sessions", closed), nil
}

type rankingRefresher interface {
	RefreshAll(ctx context.Context) (int, error)
}

// RankingRefreshJob rebuilds every school's cached standings.
type RankingRefreshJob struct {
	rankings rankingRefresher
	interval time.Duration
}

// NewRankingRefreshJob builds the ranking cache refresh job.
func NewRankingRefreshJob(rankings rankingRefresher, interval time.Duration) *RankingRefreshJob {
	return &RankingRefreshJob{rankings: rankings, interval: interval}
}

func (j *RankingRefreshJob) Name() string            { return JobRankingRefresh }
func (j *RankingRefreshJob) Interval() time.Duration { return j.interval }

func (j *RankingRefreshJob) Run(ctx context.Context) (string, error) {
	refreshed, err := j.rankings.RefreshAll(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("refreshed %d rankings", refreshed), nil
}

type notificationPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationCleanupJob prunes notifications past the retention window.
type NotificationCleanupJob struct {
	notifications notificationPruner
	retention     time.Duration
	interval      time.Duration
	now           func() time.Time
}

// NewNotificationCleanupJob builds the notification retention job.
func NewNotificationCleanupJob(notifications notificationPruner, retention, interval time.Duration) *NotificationCleanupJob {
	return &NotificationCleanupJob{
		notifications: notifications,
		retention:     retention,
		interval:      interval,
		now:           time.Now,
	}
}

func (j *NotificationCleanupJob) Name() string            { return JobNotificationCleanup }
func (j *NotificationCleanupJob) Interval() time.Duration { return j.interval }

func (j *NotificationCleanupJob) Run(ctx context.Context) (string, error) {
	removed, err := j.notifications.DeleteOlderThan(ctx, j.now().Add(-j.retention))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("removed %d notifications", removed), nil
}

type outboxPruner interface {
	DeletePublishedBefore(cutoff time.Time) (int64, error)
}

// OutboxRetentionJob prunes published outbox rows past the retention window.
type OutboxRetentionJob struct {
	outbox    outboxPruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

// NewOutboxRetentionJob builds the outbox retention job.
func NewOutboxRetentionJob(outbox outboxPruner, retention, interval time.Duration) *OutboxRetentionJob {
	return &OutboxRetentionJob{
		outbox:    outbox,
		retention: retention,
		interval:  interval,
		now:       time.Now,
	}
}

func (j *OutboxRetentionJob) Name() string            { return JobOutboxRetention }
func (j *OutboxRetentionJob) Interval() time.Duration { return j.interval }

func (j *OutboxRetentionJob) Run(_ context.Context) (string, error) {
	removed, err := j.outbox.DeletePublishedBefore(j.now().Add(-j.retention))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("removed %d published outbox rows", removed), nil
}
