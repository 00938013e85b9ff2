package ingest

import (
	"testing"
	"time"
)

func TestBackoffPolicy_Delay(t *testing.T) {
	policy := BackoffPolicy{Base: 1 * time.Second, Max: 30 * time.Second}

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first failure", 1, 1 * time.Second},
		{"second failure", 2, 2 * time.Second},
		{"third failure", 3, 4 * time.Second},
		{"fourth failure", 4, 8 * time.Second},
		{"fifth failure", 5, 16 * time.Second},
		{"sixth failure hits cap", 6, 30 * time.Second},
		{"far past cap", 20, 30 * time.Second},
		{"zero attempt treated as first", 0, 1 * time.Second},
		{"negative attempt treated as first", -3, 1 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.Delay(tt.attempt); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestBackoffPolicy_CapBetweenSteps(t *testing.T) {
	// A cap that is not a doubling of the base must still clamp exactly.
	policy := BackoffPolicy{Base: 1 * time.Second, Max: 5 * time.Second}

	if got := policy.Delay(3); got != 4*time.Second {
		t.Errorf("Delay(3) = %v, want 4s", got)
	}
	if got := policy.Delay(4); got != 5*time.Second {
		t.Errorf("Delay(4) = %v, want 5s", got)
	}
	if got := policy.Delay(100); got != 5*time.Second {
		t.Errorf("Delay(100) = %v, want 5s", got)
	}
}

func TestBackoffPolicy_BaseAboveCap(t *testing.T) {
	policy := BackoffPolicy{Base: 10 * time.Second, Max: 3 * time.Second}

	if got := policy.Delay(1); got != 3*time.Second {
		t.Errorf("Delay(1) = %v, want 3s", got)
	}
}

func TestBackoffPolicy_JitterBounds(t *testing.T) {
	policy := BackoffPolicy{Base: 10 * time.Second, Max: 30 * time.Second, Jitter: true}

	lo := 9 * time.Second
	hi := 11 * time.Second
	for i := 0; i < 200; i++ {
		got := policy.Delay(1)
		if got < lo || got > hi {
			t.Fatalf("Delay(1) = %v, want within [%v, %v]", got, lo, hi)
		}
	}
}

func TestBackoffPolicy_JitterStaysNearCap(t *testing.T) {
	policy := BackoffPolicy{Base: 1 * time.Second, Max: 8 * time.Second, Jitter: true}

	lo := 7200 * time.Millisecond
	hi := 8800 * time.Millisecond
	for i := 0; i < 200; i++ {
		got := policy.Delay(10)
		if got < lo || got > hi {
			t.Fatalf("Delay(10) = %v, want within [%v, %v]", got, lo, hi)
		}
	}
}
