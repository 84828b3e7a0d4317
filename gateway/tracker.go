package gateway

import "sync"

// orderTracker 维护交易会话上唯一的在途报单动作。
// 报单/撤单发出后装入一个匹配函数，此后每条报单回报都先交给它，
// 直到匹配函数报告"已消费"为止。
type orderTracker struct {
	mu    sync.Mutex
	match func(*OrderField) bool
}

// arm 装入新的匹配函数。调用方串行化保证装入时槽位必然为空。
func (t *orderTracker) arm(match func(*OrderField) bool) {
	t.mu.Lock()
	t.match = match
	t.mu.Unlock()
}

// disarm 清空槽位（提交即失败时回收）。
func (t *orderTracker) disarm() {
	t.mu.Lock()
	t.match = nil
	t.mu.Unlock()
}

// offer 把一条报单回报交给在途动作；返回值表示该回报是否被消费。
// 消费后槽位自动清空。
func (t *orderTracker) offer(o *OrderField) bool {
	t.mu.Lock()
	match := t.match
	t.mu.Unlock()
	if match == nil {
		return false
	}
	if !match(o) {
		return false
	}
	t.disarm()
	return true
}
