package okx

import (
	"testing"
	"time"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
	b := newBackoff()
	expected := initialBackoff
	for i := 0; i < maxReconnects; i++ {
		delay, ok := b.next()
		if !ok {
			t.Fatalf("attempt %d should be within budget", i)
		}
		// Jitter is at most 10% either way of the pre-growth value.
		lo := time.Duration(float64(expected) * (1 - jitterFactor))
		hi := time.Duration(float64(expected) * (1 + jitterFactor))
		if delay < lo || delay > hi {
			t.Fatalf("attempt %d delay %v outside [%v, %v]", i, delay, lo, hi)
		}
		expected = time.Duration(float64(expected) * backoffFactor)
		if expected > maxBackoff {
			expected = maxBackoff
		}
	}
}

func TestBackoffExhausts(t *testing.T) {
	b := newBackoff()
	for i := 0; i < maxReconnects; i++ {
		if _, ok := b.next(); !ok {
			t.Fatalf("budget spent early at attempt %d", i)
		}
	}
	if _, ok := b.next(); ok {
		t.Fatalf("expected exhaustion after %d attempts", maxReconnects)
	}
}

func TestBackoffReset(t *testing.T) {
	b := newBackoff()
	for i := 0; i < maxReconnects; i++ {
		b.next()
	}
	b.reset()
	delay, ok := b.next()
	if !ok {
		t.Fatalf("reset must restore the attempt budget")
	}
	if delay > 2*initialBackoff {
		t.Fatalf("reset must restore the initial delay, got %v", delay)
	}
}
