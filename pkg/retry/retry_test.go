package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Tight(5), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("always fails")
	attempts := 0
	err := Do(context.Background(), Tight(4), func() error {
		attempts++
		return sentinel
	})
	if err == nil {
		t.Fatal("Do succeeded, want error")
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("error %v does not wrap sentinel", err)
	}
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}
}

func TestDoNonRetryableStopsImmediately(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), Tight(10), func() error {
		attempts++
		return NonRetryable(errors.New("bad input"))
	})
	if err == nil {
		t.Fatal("Do succeeded, want error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := Config{
		MaxAttempts:  5,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
	}
	err := Do(ctx, cfg, func() error {
		return errors.New("fail")
	})
	if err == nil {
		t.Fatal("Do succeeded, want cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error %v does not wrap context.Canceled", err)
	}
}

func TestDoWithResult(t *testing.T) {
	got, err := DoWithResult(context.Background(), Tight(3), func() (int, error) {
		return 42, nil
	})
	if err != nil {
		t.Fatalf("DoWithResult: %v", err)
	}
	if got != 42 {
		t.Errorf("result = %d, want 42", got)
	}
}

func TestBackoffGrowthCapsAtMaxDelay(t *testing.T) {
	cfg, err := Config{
		MaxAttempts:  8,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     40 * time.Millisecond,
		Multiplier:   2.0,
	}.normalized()
	if err != nil {
		t.Fatalf("normalized: %v", err)
	}

	d := cfg.InitialDelay
	want := []time.Duration{20, 40, 40, 40}
	for i, w := range want {
		d = cfg.next(d)
		if d != w*time.Millisecond {
			t.Errorf("step %d = %v, want %v", i, d, w*time.Millisecond)
		}
	}
}

func TestNormalizedFillsDefaults(t *testing.T) {
	cfg, err := Config{}.normalized()
	if err != nil {
		t.Fatalf("normalized: %v", err)
	}
	def := DefaultConfig()
	if cfg.MaxAttempts != 1 {
		t.Errorf("MaxAttempts = %d, want 1", cfg.MaxAttempts)
	}
	if cfg.InitialDelay != def.InitialDelay || cfg.MaxDelay != def.MaxDelay || cfg.Multiplier != def.Multiplier {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestDoInvalidConfig(t *testing.T) {
	cfg := Config{
		MaxAttempts:  2,
		InitialDelay: time.Second,
		MaxDelay:     time.Millisecond,
		Multiplier:   2.0,
	}
	if err := Do(context.Background(), cfg, func() error { return nil }); err == nil {
		t.Fatal("Do with MaxDelay < InitialDelay succeeded, want error")
	}
}
