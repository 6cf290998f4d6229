package ratelimit

import (
	"testing"
	"time"
)

func TestRateLimit_AllowWithinLimit(t *testing.T) {
	rl := New(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !rl.Allow("client") {
			t.Fatalf("request %d denied within limit", i+1)
		}
	}

	if rl.Allow("client") {
		t.Error("request above limit allowed")
	}
}

func TestRateLimit_SeparateKeys(t *testing.T) {
	rl := New(1, time.Minute)

	if !rl.Allow("a") {
		t.Fatal("first request for key a denied")
	}
	if !rl.Allow("b") {
		t.Error("first request for key b denied; keys must not share buckets")
	}
	if rl.Allow("a") {
		t.Error("second request for key a allowed above limit")
	}
}

func TestRateLimit_WindowReset(t *testing.T) {
	rl := New(1, 30*time.Millisecond)

	if !rl.Allow("client") {
		t.Fatal("first request denied")
	}
	if rl.Allow("client") {
		t.Fatal("second request allowed within window")
	}

	time.Sleep(50 * time.Millisecond)

	if !rl.Allow("client") {
		t.Error("request denied after window reset")
	}
}

func TestRateLimit_Defaults(t *testing.T) {
	rl := New(0, 0)

	if rl.limit != defaultLimit {
		t.Errorf("limit = %d; want default %d", rl.limit, defaultLimit)
	}
	if rl.window != defaultWindow {
		t.Errorf("window = %s; want default %s", rl.window, defaultWindow)
	}
}

func TestRateLimit_StopIsIdempotent(t *testing.T) {
	rl := New(1, time.Minute)

	if err := rl.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := rl.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := rl.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}
