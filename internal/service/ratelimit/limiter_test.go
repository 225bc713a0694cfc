package ratelimit

import "testing"

func TestAllowDrainsBucket(t *testing.T) {
	l := New()
	for i := 0; i < 5; i++ {
		if !l.Allow("k", 5, 0) {
			t.Fatalf("request %d should pass within capacity", i)
		}
	}
	if l.Allow("k", 5, 0) {
		t.Fatalf("bucket must be empty after capacity requests")
	}
}

func TestAllowIsolatesKeys(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		l.Allow("a", 3, 0)
	}
	if l.Allow("a", 3, 0) {
		t.Fatalf("key a must be drained")
	}
	if !l.Allow("b", 3, 0) {
		t.Fatalf("key b must have its own bucket")
	}
}
