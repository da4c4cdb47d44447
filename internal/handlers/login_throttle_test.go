package handlers

import (
	"testing"
	"time"
)

func TestLoginThrottleWindowRollover(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	throttle := newLoginThrottle(1, time.Minute, func() time.Time { return now })

	if !throttle.Allow("10.0.0.1") {
		t.Fatalf("first request should pass")
	}
	if throttle.Allow("10.0.0.1") {
		t.Fatalf("second request inside the window should be rejected")
	}
	if !throttle.Allow("10.0.0.2") {
		t.Fatalf("different client should have its own budget")
	}

	now = now.Add(61 * time.Second)
	if !throttle.Allow("10.0.0.1") {
		t.Fatalf("request after window rollover should pass")
	}
}

func TestLoginThrottleDisabled(t *testing.T) {
	if throttle := newLoginThrottle(0, time.Minute, nil); throttle != nil {
		t.Fatalf("zero limit should disable throttling")
	}
	if throttle := newLoginThrottle(5, 0, nil); throttle != nil {
		t.Fatalf("zero window should disable throttling")
	}
}
