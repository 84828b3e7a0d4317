package gateway

import (
	"testing"
	"time"
)

func TestCorrelatorAccept(t *testing.T) {
	c := newCorrelator()
	c.begin("op", reqIDQryAccount)
	if !c.accept(reqIDQryAccount, reqIDQryAccount) {
		t.Fatal("reply of the awaited kind should be accepted")
	}
}

func TestCorrelatorMismatchPanics(t *testing.T) {
	c := newCorrelator()
	c.begin("op", reqIDQryOrder)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on request id mismatch")
		}
	}()
	c.accept(reqIDQryPosition, reqIDQryOrder)
}

func TestCorrelatorRejectsLateReply(t *testing.T) {
	c := newCorrelator()
	c.begin("获取所有报单", reqIDQryOrder)
	// 上一次超时调用的迟到应答：回显 ID 合法，但种类不是当前等待的
	if c.accept(reqIDQryAccount, reqIDQryAccount) {
		t.Fatal("reply of a non-awaited kind must be dropped")
	}
}

func TestCorrelatorRejectsSettledCycle(t *testing.T) {
	c := newCorrelator()
	c.begin("op", reqIDQryAccount)
	c.gate.complete()
	if c.accept(reqIDQryAccount, reqIDQryAccount) {
		t.Fatal("duplicate reply after resolution must be dropped")
	}
}

func TestCorrelatorAdvanceKeepsCycle(t *testing.T) {
	c := newCorrelator()
	c.begin("认证", reqIDAuthenticate)
	// 握手的多段应答共用一次 wait：advance 不得重置 gate
	c.advance("登录", reqIDLogin)
	if !c.accept(reqIDLogin, reqIDLogin) {
		t.Fatal("reply of the advanced kind should be accepted")
	}
	go c.gate.complete()
	if err := c.gate.wait("登录", time.Second); err != nil {
		t.Fatalf("wait after advance: %v", err)
	}
}

func TestCorrelatorBeginResetsGate(t *testing.T) {
	c := newCorrelator()
	c.begin("a", 1)
	c.gate.complete()
	c.begin("b", 2)
	if err := c.gate.wait("b", 10*time.Millisecond); err == nil {
		t.Fatal("begin should open a fresh cycle")
	}
}
