package gateway

import (
	"fmt"
	"sync"
)

// 每类请求固定占用一个 requestID，柜台在应答中原样回显。
// 会话上的调用本就被单一 completionGate 串行化，按种类保留常量 ID
// 即可让分发路径直接断言回显值，无需维护动态映射表。
const (
	reqIDQuoteLogin = 0

	reqIDAuthenticate      = 0
	reqIDLogin             = 1
	reqIDSettlementConfirm = 2
	reqIDQryInstrument     = 3
	reqIDQryOrder          = 4
	reqIDQryPosition       = 5
	reqIDOrderInsert       = 6
	reqIDOrderAction       = 7
	reqIDQryAccount        = 8
)

// correlator 把一次逻辑调用绑定到会话唯一的 completionGate 上，
// 并按回调种类校验应答。回显 ID 必须等于该种类的保留常量，不等
// 说明协议不变量被破坏；种类与当前等待的调用不符，则是上一次
// 超时调用的迟到应答，丢弃即可，不能动 gate。
type correlator struct {
	gate *completionGate

	mu     sync.Mutex
	kind   string
	expect int
}

func newCorrelator() *correlator {
	return &correlator{gate: newGate(), expect: -1}
}

// begin 开启一次逻辑调用：记录其种类与保留 ID，并重置 gate。
// 握手过程中分发路径自身也会调用它推进期待的 ID。
func (c *correlator) begin(kind string, requestID int) {
	c.mu.Lock()
	c.kind = kind
	c.expect = requestID
	c.mu.Unlock()
	c.gate.reset()
}

// advance 在一次等待周期内切换期待的 ID（握手的多段应答共用一次 wait）。
func (c *correlator) advance(kind string, requestID int) {
	c.mu.Lock()
	c.kind = kind
	c.expect = requestID
	c.mu.Unlock()
}

// accept 判断回显 ID 为 echoed 的某类应答能否交给当前调用。
// echoed 与该种类的保留 ID reserved 不符直接视为致命缺陷；
// 种类不是当前等待的，或本周期已解除，则为迟到/重复应答，返回 false。
func (c *correlator) accept(reserved, echoed int) bool {
	if echoed != reserved {
		panic(fmt.Sprintf("request id mismatch: got %d, reserved %d", echoed, reserved))
	}
	c.mu.Lock()
	expect := c.expect
	c.mu.Unlock()
	return expect == reserved && !c.gate.settled()
}

// current 返回当前等待的调用种类，仅用于日志。
func (c *correlator) current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kind
}
