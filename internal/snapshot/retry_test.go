package snapshot

import (
	"context"
	"math/rand"
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		name    string
		backoff Backoff
		attempt int
		want    time.Duration
	}{
		{name: "zero value retries immediately", attempt: 3, want: 0},
		{name: "first attempt", backoff: Backoff{InitialDelay: 10 * time.Millisecond, Multiplier: 2}, attempt: 1, want: 10 * time.Millisecond},
		{name: "exponential", backoff: Backoff{InitialDelay: 10 * time.Millisecond, Multiplier: 2}, attempt: 3, want: 40 * time.Millisecond},
		{name: "multiplier below one is linear", backoff: Backoff{InitialDelay: 10 * time.Millisecond, Multiplier: 0.5}, attempt: 4, want: 10 * time.Millisecond},
		{name: "capped", backoff: Backoff{InitialDelay: 10 * time.Millisecond, Multiplier: 10, MaxDelay: 50 * time.Millisecond}, attempt: 3, want: 50 * time.Millisecond},
		{name: "jitter without rng halves", backoff: Backoff{InitialDelay: 10 * time.Millisecond, Jitter: true}, attempt: 1, want: 5 * time.Millisecond},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.backoff.Delay(tc.attempt, nil); got != tc.want {
				t.Fatalf("got %s want %s", got, tc.want)
			}
		})
	}
}

func TestBackoffJitterStaysInRange(t *testing.T) {
	b := Backoff{InitialDelay: 100 * time.Millisecond, Jitter: true}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		got := b.Delay(1, rng)
		if got < 50*time.Millisecond || got >= 150*time.Millisecond {
			t.Fatalf("jittered delay out of range: %s", got)
		}
	}
}

func TestSleepWithContext(t *testing.T) {
	if !sleepWithContext(context.Background(), 0) {
		t.Fatalf("zero sleep on live context must succeed")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepWithContext(ctx, time.Hour) {
		t.Fatalf("sleep on cancelled context must fail")
	}
}
