package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countJob struct {
	runs atomic.Int64
	err  error
	ctx  context.Context
}

func (j *countJob) Name() string { return "count" }

func (j *countJob) Run(ctx context.Context) error {
	j.ctx = ctx
	j.runs.Add(1)
	return j.err
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(context.Background(), zerolog.Nop())
	if err := s.AddJob("not a cron spec", &countJob{}); err == nil {
		t.Fatal("AddJob accepted a malformed schedule")
	}
}

func TestRunNowPropagatesError(t *testing.T) {
	s := New(context.Background(), zerolog.Nop())

	job := &countJob{err: errors.New("boom")}
	if err := s.RunNow(job); err == nil || err.Error() != "boom" {
		t.Fatalf("RunNow error = %v, want boom", err)
	}
	if got := job.runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}
}

func TestScheduledJobRuns(t *testing.T) {
	s := New(context.Background(), zerolog.Nop())

	job := &countJob{}
	if err := s.AddJob("@every 10ms", job); err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for job.runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("job never ran")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestJobsSeeSchedulerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, zerolog.Nop())

	job := &countJob{}
	if err := s.RunNow(job); err != nil {
		t.Fatalf("RunNow: %v", err)
	}

	cancel()
	select {
	case <-job.ctx.Done():
	default:
		t.Fatal("job context not cancelled with scheduler context")
	}
}
