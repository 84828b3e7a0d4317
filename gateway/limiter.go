package gateway

import (
	"sync"
	"time"
)

// RateLimiter 控制请求速率，避免触发柜台流控。
type RateLimiter interface {
	Wait()
}

// QueryLimiter 在查询类请求之间强制一个最小间隔。
// 柜台按秒限制查询频率，连续两次查询至少间隔 floor。
type QueryLimiter struct {
	mu    sync.Mutex
	floor time.Duration
	last  time.Time
}

func NewQueryLimiter(floor time.Duration) *QueryLimiter {
	if floor <= 0 {
		floor = time.Second
	}
	return &QueryLimiter{floor: floor}
}

// Wait 距上次放行不足 floor 时阻塞补足差额。只阻塞发起方本身，
// 不占用 completionGate。
func (l *QueryLimiter) Wait() {
	l.mu.Lock()
	delta := time.Since(l.last)
	if delta < l.floor {
		l.mu.Unlock()
		time.Sleep(l.floor - delta)
		l.mu.Lock()
	}
	l.last = time.Now()
	l.mu.Unlock()
}
