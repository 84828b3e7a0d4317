package gateway

import (
	"testing"
	"time"
)

func TestQueryLimiterEnforcesFloor(t *testing.T) {
	l := NewQueryLimiter(50 * time.Millisecond)
	l.Wait()
	start := time.Now()
	l.Wait()
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("second wait returned after %v, floor not enforced", elapsed)
	}
}

func TestQueryLimiterIdleNoDelay(t *testing.T) {
	l := NewQueryLimiter(50 * time.Millisecond)
	l.Wait()
	time.Sleep(60 * time.Millisecond)
	start := time.Now()
	l.Wait()
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Fatalf("idle wait blocked %v", elapsed)
	}
}

func TestQueryLimiterDefaultFloor(t *testing.T) {
	l := NewQueryLimiter(0)
	if l.floor != time.Second {
		t.Fatalf("expected 1s default floor, got %v", l.floor)
	}
}
