package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSleep_Elapses(t *testing.T) {
	start := time.Now()
	if err := Sleep(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Sleep() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Sleep returned after %v, want >= 20ms", elapsed)
	}
}

func TestSleep_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Sleep(ctx, time.Hour)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly on cancelled context")
	}
}

func TestSleep_ZeroDuration(t *testing.T) {
	if err := Sleep(context.Background(), 0); err != nil {
		t.Errorf("Sleep(0) error = %v", err)
	}
}

func TestPacer_Wait(t *testing.T) {
	tests := []struct {
		name      string
		delay     time.Duration
		wantCalls int
	}{
		{name: "default delay", delay: DefaultRequestDelay, wantCalls: 1},
		{name: "zero delay skips sleep", delay: 0, wantCalls: 0},
		{name: "negative delay treated as zero", delay: -time.Second, wantCalls: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var slept []time.Duration
			p := NewPacer(tt.delay, zerolog.Nop())
			p.SetSleep(func(_ context.Context, d time.Duration) error {
				slept = append(slept, d)
				return nil
			})

			if err := p.Wait(context.Background()); err != nil {
				t.Fatalf("Wait() error = %v", err)
			}
			if len(slept) != tt.wantCalls {
				t.Fatalf("sleep called %d times, want %d", len(slept), tt.wantCalls)
			}
			if tt.wantCalls > 0 && slept[0] != tt.delay {
				t.Errorf("slept %v, want %v", slept[0], tt.delay)
			}
		})
	}
}

func TestPacer_WaitPropagatesSleepError(t *testing.T) {
	p := NewPacer(time.Second, zerolog.Nop())
	p.SetSleep(func(context.Context, time.Duration) error {
		return context.DeadlineExceeded
	})

	if err := p.Wait(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}
