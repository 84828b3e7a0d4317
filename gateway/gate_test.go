package gateway

import (
	"testing"
	"time"
)

func TestGateCompleteUnblocksWait(t *testing.T) {
	g := newGate()
	go func() {
		time.Sleep(10 * time.Millisecond)
		g.complete()
	}()
	if err := g.wait("op", time.Second); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestGateFailReturnsRejected(t *testing.T) {
	g := newGate()
	go g.fail("柜台拒绝")
	err := g.wait("op", time.Second)
	re, ok := err.(*RejectedError)
	if !ok {
		t.Fatalf("expected *RejectedError, got %T", err)
	}
	if re.Msg != "柜台拒绝" {
		t.Fatalf("unexpected msg: %s", re.Msg)
	}
}

func TestGateTimeout(t *testing.T) {
	g := newGate()
	start := time.Now()
	err := g.wait("op", 20*time.Millisecond)
	if _, ok := err.(*TimeoutError); !ok {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("wait returned before timeout elapsed")
	}
}

func TestGateRewaitSameCycle(t *testing.T) {
	g := newGate()
	go g.complete()
	if err := g.wait("op", time.Second); err != nil {
		t.Fatalf("first wait: %v", err)
	}
	// 合约查询的分段等待会在同一周期内再次 wait
	if err := g.wait("op", time.Second); err != nil {
		t.Fatalf("second wait: %v", err)
	}
}

func TestGateResetClearsFailure(t *testing.T) {
	g := newGate()
	go g.fail("err")
	if err := g.wait("op", time.Second); err == nil {
		t.Fatal("expected rejection")
	}
	g.reset()
	go g.complete()
	if err := g.wait("op", time.Second); err != nil {
		t.Fatalf("after reset: %v", err)
	}
}

func TestGateDoubleResolvePanics(t *testing.T) {
	g := newGate()
	g.complete()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on second resolve")
		}
	}()
	g.fail("again")
}
