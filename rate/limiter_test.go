package rate

import (
	"testing"
	"time"
)

func TestLimiter(t *testing.T) {
	interval := 10 * time.Millisecond
	l := NewLimiter(Every(interval), 1, time.Minute)

	const client = "10.0.0.1"

	if !l.Check(client) {
		t.Fatal("first request should pass")
	}
	if l.Check(client) {
		t.Fatal("immediate second request should be rejected")
	}

	time.Sleep(2 * interval)
	if !l.Check(client) {
		t.Fatal("request after the refill interval should pass")
	}
}

func TestLimiterBurst(t *testing.T) {
	const burst = 10
	l := NewLimiter(Every(100*time.Millisecond), burst, time.Minute)

	const client = "10.0.0.2"

	for i := 0; i < burst; i++ {
		if !l.Check(client) {
			t.Fatalf("request %d within the burst should pass", i)
		}
	}
	if l.Check(client) {
		t.Fatal("request beyond the burst should be rejected")
	}
}

func TestLimiterIsolatesClients(t *testing.T) {
	l := NewLimiter(Every(time.Second), 1, time.Minute)

	if !l.Check("10.0.0.3") {
		t.Fatal("first client should pass")
	}
	if l.Check("10.0.0.3") {
		t.Fatal("first client should be exhausted")
	}
	if !l.Check("10.0.0.4") {
		t.Fatal("second client has its own bucket and should pass")
	}
}
