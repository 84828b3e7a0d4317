package gateway

import (
	"sync"
	"time"
)

// completionGate 单槽同步原语：把一串异步回调折叠成一次阻塞调用。
// 每个会话只有一个，调用方约定同一时刻至多一笔在途调用。
// 一个 reset 周期内只允许解除一次，重复解除视为分发逻辑缺陷。
type completionGate struct {
	mu       sync.Mutex
	done     chan struct{}
	resolved bool
	failed   bool
	msg      string
}

func newGate() *completionGate {
	g := &completionGate{}
	g.reset()
	return g
}

// reset 清除上一周期的结果，开启新的等待周期。
func (g *completionGate) reset() {
	g.mu.Lock()
	g.done = make(chan struct{})
	g.resolved = false
	g.failed = false
	g.msg = ""
	g.mu.Unlock()
}

// wait 阻塞至本周期被解除或超时。超时返回 *TimeoutError，
// 错误解除返回 *RejectedError。同一周期内可以再次 wait（合约查询的
// 分段等待依赖这一点）。
func (g *completionGate) wait(op string, timeout time.Duration) error {
	g.mu.Lock()
	done := g.done
	g.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		return &TimeoutError{Op: op}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failed {
		return &RejectedError{Op: op, Msg: g.msg}
	}
	return nil
}

// settled 报告本周期是否已被解除。
func (g *completionGate) settled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resolved
}

// complete 以成功结果解除本周期。
func (g *completionGate) complete() {
	g.resolve(false, "")
}

// fail 以网关给出的错误信息解除本周期。
func (g *completionGate) fail(msg string) {
	g.resolve(true, msg)
}

func (g *completionGate) resolve(failed bool, msg string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.resolved {
		panic("completion gate resolved twice in one cycle")
	}
	g.resolved = true
	g.failed = failed
	g.msg = msg
	close(g.done)
}
