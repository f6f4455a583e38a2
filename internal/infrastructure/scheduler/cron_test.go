package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestCronSchedulerRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler("not a cron", nil, nil)
	if err := s.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatalf("expected error for invalid expression")
	}
}

func TestCronSchedulerRunsJob(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		loc = time.UTC
	}

	fired := make(chan time.Time, 4)
	s := NewCronScheduler("@every 1s", loc, nil)
	if err := s.Start(context.Background(), func(at time.Time) { fired <- at }); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer s.Stop(context.Background())

	select {
	case at := <-fired:
		if at.Location() != loc {
			t.Fatalf("job time should be in scheduler location, got %s", at.Location())
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not run")
	}
}

func TestCronSchedulerStopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewCronScheduler("0 7 * * 1-5", time.UTC, nil)
	if err := s.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		stopped := s.cron == nil
		s.mu.Unlock()
		if stopped {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("scheduler should stop when its context is cancelled")
}
