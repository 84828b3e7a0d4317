package gateway

import (
	"sync"
	"testing"
	"time"
)

type mockQuote struct {
	queue chan Event
	once  sync.Once

	loginInfo *RspInfo // 非空时登录应答携带错误
	subInfo   *RspInfo

	subscribed   [][]string
	unsubscribed [][]string
}

func (m *mockQuote) Open(sink EventSink) error {
	m.queue = make(chan Event, 64)
	go func() {
		for ev := range m.queue {
			sink(ev)
		}
	}()
	m.queue <- Event{Kind: EvConnected}
	return nil
}

func (m *mockQuote) Close() error {
	m.once.Do(func() { close(m.queue) })
	return nil
}

func (m *mockQuote) ReqUserLogin(req LoginRequest, id int) int {
	m.queue <- Event{Kind: EvRspUserLogin, RequestID: id, Info: m.loginInfo}
	return 0
}

func (m *mockQuote) Subscribe(codes []string) int {
	m.subscribed = append(m.subscribed, codes)
	for i, code := range codes {
		m.queue <- Event{Kind: EvRspSubscribe, Info: m.subInfo,
			Specific: &SpecificField{InstrumentID: code}, IsLast: i == len(codes)-1}
	}
	return 0
}

func (m *mockQuote) Unsubscribe(codes []string) int {
	m.unsubscribed = append(m.unsubscribed, codes)
	for i, code := range codes {
		m.queue <- Event{Kind: EvRspUnsubscribe,
			Specific: &SpecificField{InstrumentID: code}, IsLast: i == len(codes)-1}
	}
	return 0
}

func (m *mockQuote) pushTick(tick *TickField) {
	m.queue <- Event{Kind: EvTick, Tick: tick}
}

func openQuote(t *testing.T, m *mockQuote) *QuoteSession {
	t.Helper()
	s, err := OpenQuoteSession(m, QuoteOptions{Timeout: time.Second})
	if err != nil {
		t.Fatalf("open quote session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestQuoteSessionLogin(t *testing.T) {
	openQuote(t, &mockQuote{})
}

func TestQuoteSessionLoginRejected(t *testing.T) {
	m := &mockQuote{loginInfo: &RspInfo{ErrorID: 3, ErrorMsg: "不合法的登录"}}
	_, err := OpenQuoteSession(m, QuoteOptions{Timeout: time.Second})
	re, ok := err.(*RejectedError)
	if !ok {
		t.Fatalf("expected *RejectedError, got %v", err)
	}
	if re.Msg != "不合法的登录" {
		t.Fatalf("unexpected msg: %s", re.Msg)
	}
}

func TestQuoteSubscribeWaitsAllResponses(t *testing.T) {
	m := &mockQuote{}
	s := openQuote(t, m)
	if err := s.Subscribe([]string{"au2512", "IF2509"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(m.subscribed) != 1 || len(m.subscribed[0]) != 2 {
		t.Fatalf("unexpected subscribe calls: %v", m.subscribed)
	}
	if err := s.Unsubscribe([]string{"au2512"}); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
}

func TestQuoteSubscribeRejected(t *testing.T) {
	m := &mockQuote{subInfo: &RspInfo{ErrorID: 4, ErrorMsg: "合约不存在"}}
	s := openQuote(t, m)
	if err := s.Subscribe([]string{"zz9999"}); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestQuoteTickReceiver(t *testing.T) {
	m := &mockQuote{}
	s := openQuote(t, m)

	got := make(chan *TickField, 1)
	if old := s.SetReceiver(func(tick *TickField) { got <- tick }); old != nil {
		t.Fatal("expected nil previous receiver")
	}

	price := 802.5
	m.pushTick(&TickField{Code: "au2512", Price: &price, Volume: 120})
	select {
	case tick := <-got:
		if tick.Code != "au2512" || *tick.Price != 802.5 {
			t.Fatalf("unexpected tick: %+v", tick)
		}
	case <-time.After(time.Second):
		t.Fatal("tick not delivered")
	}

	// 替换接收函数返回旧函数
	if old := s.SetReceiver(nil); old == nil {
		t.Fatal("expected previous receiver")
	}
}
