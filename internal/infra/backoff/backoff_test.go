package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestImageSchedule(t *testing.T) {
	tests := []struct {
		pass uint
		want time.Duration
	}{
		{1, 300 * time.Millisecond},
		{3, 300 * time.Millisecond},
		{4, 500 * time.Millisecond},
		{8, 500 * time.Millisecond},
		{9, 600 * time.Millisecond},
		{11, 1200 * time.Millisecond},
		{12, 1500 * time.Millisecond},
		{40, 1500 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := ImageSchedule(tt.pass); got != tt.want {
			t.Errorf("ImageSchedule(%d): expected %v, got %v", tt.pass, tt.want, got)
		}
	}
}

func TestPoll_SucceedsAfterPasses(t *testing.T) {
	calls := 0
	policy := Policy{
		Schedule: func(uint) time.Duration { return 5 * time.Millisecond },
		MaxWait:  time.Second,
	}

	err := Poll(context.Background(), policy, func(ctx context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 probe calls, got %d", calls)
	}
}

func TestPoll_ExhaustsWithinBound(t *testing.T) {
	policy := Policy{
		Schedule: func(uint) time.Duration { return 20 * time.Millisecond },
		MaxWait:  150 * time.Millisecond,
	}

	start := time.Now()
	err := Poll(context.Background(), policy, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	elapsed := time.Since(start)

	if !errors.Is(err, ErrExhausted) {
		t.Errorf("Expected ErrExhausted, got %v", err)
	}
	if elapsed > time.Second {
		t.Errorf("Expected Poll to stop near its bound, took %v", elapsed)
	}
}

func TestPoll_ProbeErrorStops(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	policy := Policy{
		Schedule: func(uint) time.Duration { return time.Millisecond },
		MaxWait:  time.Second,
	}

	err := Poll(context.Background(), policy, func(ctx context.Context) (bool, error) {
		calls++
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected probe error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected a single call, got %d", calls)
	}
}

func TestPoll_OnRetryReportsPasses(t *testing.T) {
	var seen []uint
	policy := Policy{
		Schedule:    func(uint) time.Duration { return time.Millisecond },
		MaxAttempts: 3,
		OnRetry:     func(pass uint) { seen = append(seen, pass) },
	}

	err := Poll(context.Background(), policy, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("Expected ErrExhausted, got %v", err)
	}
	if len(seen) == 0 || seen[0] != 1 {
		t.Errorf("Expected retry hooks starting at pass 1, got %v", seen)
	}
}

func TestDo_StopsOnUnrecoverable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), nil, "test", func() error {
		calls++
		return Unrecoverable(errors.New("permanent"))
	})
	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestReconnect_RunsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := 0
	err := Reconnect(ctx, nil, "test", func(ctx context.Context) error {
		sessions++
		if sessions == 2 {
			cancel()
			return nil
		}
		return errors.New("dial refused")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if sessions != 2 {
		t.Errorf("Expected 2 sessions, got %d", sessions)
	}
}
