package ratelimit

import (
	"testing"
	"time"
)

func TestAllowWithinBurst(t *testing.T) {
	l := New(Config{RequestsPerMinute: 60, BurstSize: 3, CleanupInterval: time.Minute})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("client") {
			t.Fatalf("request %d should be allowed within burst", i)
		}
	}
	if l.Allow("client") {
		t.Fatal("request beyond burst should be denied")
	}
}

func TestAllowRefills(t *testing.T) {
	l := New(Config{RequestsPerMinute: 6000, BurstSize: 1, CleanupInterval: time.Minute})
	defer l.Stop()

	if !l.Allow("client") {
		t.Fatal("first request should pass")
	}
	if l.Allow("client") {
		t.Fatal("bucket should be empty")
	}

	// 100 tokens/sec refill; 50ms is plenty for one token.
	time.Sleep(50 * time.Millisecond)
	if !l.Allow("client") {
		t.Fatal("bucket should have refilled")
	}
}

func TestAllowIsolatesClients(t *testing.T) {
	l := New(Config{RequestsPerMinute: 60, BurstSize: 1, CleanupInterval: time.Minute})
	defer l.Stop()

	if !l.Allow("a") {
		t.Fatal("client a should pass")
	}
	if !l.Allow("b") {
		t.Fatal("client b should pass independently")
	}
	if l.Allow("a") {
		t.Fatal("client a should be exhausted")
	}
}
