package sched

import (
	"context"
	"errors"
	"testing"
	"time"

	"ctp-gateway-go/infrastructure/logger"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04", value)
	if err != nil {
		t.Fatalf("parse %s: %v", value, err)
	}
	return ts
}

func TestInTradingWindow(t *testing.T) {
	r := &Runner{}
	cases := []struct {
		when string
		want bool
	}{
		{"2026-08-24 10:30", true},  // 周一日盘
		{"2026-08-24 15:30", false}, // 收盘后
		{"2026-08-24 21:00", true},  // 夜盘
		{"2026-08-25 01:30", true},  // 夜盘跨日
		{"2026-08-24 03:00", false}, // 夜盘结束后
		{"2026-08-23 10:30", false}, // 周日
	}
	for _, tc := range cases {
		if got := r.inTradingWindow(at(t, tc.when)); got != tc.want {
			t.Fatalf("inTradingWindow(%s) = %v, want %v", tc.when, got, tc.want)
		}
	}
}

func TestStartupLoginInsideWindow(t *testing.T) {
	logins := make(chan struct{}, 1)
	r := &Runner{
		Login: func() error { logins <- struct{}{}; return nil },
		now:   func() time.Time { return at(t, "2026-08-24 10:30") },
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = r.Start(ctx) }()
	defer cancel()

	select {
	case <-logins:
	case <-time.After(time.Second):
		t.Fatal("no startup login inside trading window")
	}
}

func TestNoStartupLoginOutsideWindow(t *testing.T) {
	logins := make(chan struct{}, 1)
	r := &Runner{
		Login: func() error { logins <- struct{}{}; return nil },
		now:   func() time.Time { return at(t, "2026-08-24 16:30") },
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = r.Start(ctx) }()
	defer cancel()

	select {
	case <-logins:
		t.Fatal("unexpected login outside trading window")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFireHandlesNilAndError(t *testing.T) {
	r := &Runner{Logger: logger.Nop()}
	r.fire("login", nil)
	r.fire("login", func() error { return errors.New("boom") })
}

func TestContains(t *testing.T) {
	times := []string{"08:40", "20:40"}
	if !contains(times, "08:40") || contains(times, "09:00") {
		t.Fatal("contains misbehaves")
	}
}
