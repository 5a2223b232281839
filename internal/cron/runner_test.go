package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/classpulse/classpulse-backend/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

type stubLocks struct {
	held     map[string]bool
	denyAll  bool
	acquired []string
	released []string
}

func newStubLocks() *stubLocks {
	return &stubLocks{held: map[string]bool{}}
}

func (l *stubLocks) Acquire(_ context.Context, name string, _ time.Duration) (bool, error) {
	if l.denyAll || l.held[name] {
		return false, nil
	}
	l.held[name] = true
	l.acquired = append(l.acquired, name)
	return true, nil
}

func (l *stubLocks) Release(_ context.Context, name string) error {
	delete(l.held, name)
	l.released = append(l.released, name)
	return nil
}

type fakeJob struct {
	name    string
	runs    int
	err     error
	outcome string
}

func (j *fakeJob) Name() string            { return j.name }
func (j *fakeJob) Interval() time.Duration { return time.Minute }
func (j *fakeJob) Run(_ context.Context) (string, error) {
	j.runs++
	return j.outcome, j.err
}

func buildRunner(t *testing.T, locks lockManager, reg prometheus.Registerer) *Runner {
	t.Helper()
	runner, err := NewRunner(RunnerParams{
		Locks:   locks,
		Metrics: metrics.NewJobMetrics(reg),
		LockTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("build runner: %v", err)
	}
	return runner
}

func TestRunJobAcquiresAndReleasesLock(t *testing.T) {
	locks := newStubLocks()
	runner := buildRunner(t, locks, nil)
	job := &fakeJob{name: "demo", outcome: "done"}
	if err := runner.Register(job); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := runner.RunJob(context.Background(), "demo"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected one run, got %d", job.runs)
	}
	if len(locks.acquired) != 1 || len(locks.released) != 1 {
		t.Fatalf("expected lock acquire+release, got %v / %v", locks.acquired, locks.released)
	}
}

func TestRunJobSkipsWhenLockHeld(t *testing.T) {
	locks := newStubLocks()
	locks.denyAll = true
	runner := buildRunner(t, locks, nil)
	job := &fakeJob{name: "demo"}
	if err := runner.Register(job); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := runner.RunJob(context.Background(), "demo"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if job.runs != 0 {
		t.Fatal("job must not run when another worker holds the lock")
	}
}

func TestRunJobReleasesLockOnFailure(t *testing.T) {
	locks := newStubLocks()
	runner := buildRunner(t, locks, nil)
	job := &fakeJob{name: "demo", err: errors.New("boom")}
	if err := runner.Register(job); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := runner.RunJob(context.Background(), "demo"); err == nil {
		t.Fatal("expected job failure to surface")
	}
	if len(locks.released) != 1 {
		t.Fatal("lock must be released after a failed run")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	runner := buildRunner(t, newStubLocks(), nil)
	if err := runner.Register(&fakeJob{name: "demo"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := runner.Register(&fakeJob{name: "demo"}); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestRunAllCollectsFailures(t *testing.T) {
	runner := buildRunner(t, newStubLocks(), nil)
	good := &fakeJob{name: "good"}
	bad := &fakeJob{name: "bad", err: errors.New("boom")}
	if err := runner.Register(good); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := runner.Register(bad); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := runner.RunAll(context.Background())
	if err == nil {
		t.Fatal("expected aggregated failure")
	}
	if good.runs != 1 || bad.runs != 1 {
		t.Fatalf("both jobs must run, got %d / %d", good.runs, bad.runs)
	}
}

func TestJobOutcomeStrings(t *testing.T) {
	closer := &stubSessionCloser{closed: 3}
	job := NewSessionAutocloseJob(closer, time.Minute)
	outcome, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome != "closed 3 overdue sessions" {
		t.Fatalf("unexpected outcome %q", outcome)
	}

	pruner := &stubPruner{removed: 7}
	cleanup := NewNotificationCleanupJob(pruner, 30*24*time.Hour, time.Hour)
	outcome, err = cleanup.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome != "removed 7 notifications" {
		t.Fatalf("unexpected outcome %q", outcome)
	}
	if time.Since(pruner.cutoff) < 29*24*time.Hour {
		t.Fatalf("cutoff must respect retention, got %v", pruner.cutoff)
	}
}

type stubSessionCloser struct {
	closed int
}

func (s *stubSessionCloser) AutoCloseOverdue(_ context.Context, _ time.Time) (int, error) {
	return s.closed, nil
}

type stubPruner struct {
	removed int64
	cutoff  time.Time
}

func (s *stubPruner) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.removed, nil
}
