package gateway

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"ctp-gateway-go/infrastructure/logger"
)

// Bridge 经本地 websocket 连接 CTP 桥接进程。桥接进程封装厂商 C++ API，
// 把回调翻译成 JSON 帧逐条推过来；本端的读循环 goroutine 即协议要求的
// "单一回调线程"。请求方向为 JSON 帧，回显 requestID 由桥接透传。
// 同一实现可同时充当交易与行情传输。
type Bridge struct {
	URL    string
	Dialer *websocket.Dialer
	Logger *logger.Logger

	mu     sync.Mutex // 串行化写帧
	conn   *websocket.Conn
	sink   EventSink
	closed atomic.Bool
}

// NewBridge 创建指向桥接进程的传输。
func NewBridge(url string, log *logger.Logger) *Bridge {
	if log == nil {
		log = logger.Nop()
	}
	return &Bridge{
		URL:    url,
		Dialer: websocket.DefaultDialer,
		Logger: log,
	}
}

// requestFrame 出向帧。
type requestFrame struct {
	Op        string      `json:"op"`
	RequestID int         `json:"req_id"`
	Body      interface{} `json:"body,omitempty"`
	Codes     []string    `json:"codes,omitempty"`
}

// eventFrame 入向帧，Event 字段标明回调名。
type eventFrame struct {
	Event      string           `json:"event"`
	RequestID  int              `json:"req_id"`
	IsLast     bool             `json:"is_last"`
	Reason     int              `json:"reason"`
	Info       *RspInfo         `json:"info"`
	Login      *LoginField      `json:"login"`
	Specific   *SpecificField   `json:"specific"`
	Instrument *InstrumentField `json:"instrument"`
	Account    *AccountField    `json:"account"`
	Position   *PositionField   `json:"position"`
	Order      *OrderField      `json:"order"`
	Tick       *TickField       `json:"tick"`
}

var eventKinds = map[string]EventKind{
	"OnFrontConnected":           EvConnected,
	"OnFrontDisconnected":        EvDisconnected,
	"OnHeartBeatWarning":         EvHeartbeatWarning,
	"OnRspError":                 EvRspError,
	"OnRspAuthenticate":          EvRspAuthenticate,
	"OnRspUserLogin":             EvRspUserLogin,
	"OnRspSettlementInfoConfirm": EvRspSettlementConfirm,
	"OnRspSubMarketData":         EvRspSubscribe,
	"OnRspUnSubMarketData":       EvRspUnsubscribe,
	"OnRtnDepthMarketData":       EvTick,
	"OnRspQryInstrument":         EvRspInstrument,
	"OnRspQryTradingAccount":     EvRspAccount,
	"OnRspQryOrder":              EvRspOrder,
	"OnRspQryInvestorPosition":   EvRspPosition,
	"OnRspOrderInsert":           EvRspOrderInsert,
	"OnErrRtnOrderInsert":        EvErrOrderInsert,
	"OnRspOrderAction":           EvRspOrderAction,
	"OnErrRtnOrderAction":        EvErrOrderAction,
	"OnRtnOrder":                 EvOrderUpdate,
}

// Open 建连并启动读循环。桥接进程在底层前置机连上后会推送
// OnFrontConnected，状态机从那里开始推进。
func (b *Bridge) Open(sink EventSink) error {
	conn, _, err := b.Dialer.Dial(b.URL, nil)
	if err != nil {
		return fmt.Errorf("dial bridge %s: %w", b.URL, err)
	}
	b.mu.Lock()
	b.conn = conn
	b.sink = sink
	b.mu.Unlock()
	go b.readLoop(conn, sink)
	return nil
}

func (b *Bridge) readLoop(conn *websocket.Conn, sink EventSink) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !b.closed.Load() {
				b.Logger.Warn("桥接连接中断", zap.Error(err))
				sink(Event{Kind: EvDisconnected, Reason: -1})
			}
			return
		}
		var frame eventFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			b.Logger.Error("桥接帧解析失败", zap.Error(err), zap.ByteString("frame", message))
			continue
		}
		kind, ok := eventKinds[frame.Event]
		if !ok {
			b.Logger.Warn("未知桥接事件", zap.String("event", frame.Event))
			continue
		}
		sink(Event{
			Kind:       kind,
			RequestID:  frame.RequestID,
			IsLast:     frame.IsLast,
			Reason:     frame.Reason,
			Info:       frame.Info,
			Login:      frame.Login,
			Specific:   frame.Specific,
			Instrument: frame.Instrument,
			Account:    frame.Account,
			Position:   frame.Position,
			Order:      frame.Order,
			Tick:       frame.Tick,
		})
	}
}

// send 写一帧请求。写失败等价于网络断开（受理码 -1）。
func (b *Bridge) send(op string, requestID int, body interface{}, codes []string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil || b.closed.Load() {
		return -1
	}
	frame := requestFrame{Op: op, RequestID: requestID, Body: body, Codes: codes}
	if err := b.conn.WriteJSON(frame); err != nil {
		b.Logger.Error("桥接写帧失败", zap.String("op", op), zap.Error(err))
		return -1
	}
	return 0
}

// Close 关闭连接；读循环退出且不再上报断开事件。
func (b *Bridge) Close() error {
	b.closed.Store(true)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

// TradeTransport 实现。

func (b *Bridge) ReqAuthenticate(req AuthRequest, requestID int) int {
	return b.send("ReqAuthenticate", requestID, req, nil)
}

func (b *Bridge) ReqUserLogin(req LoginRequest, requestID int) int {
	return b.send("ReqUserLogin", requestID, req, nil)
}

func (b *Bridge) ReqSettlementConfirm(req SettlementConfirmRequest, requestID int) int {
	return b.send("ReqSettlementInfoConfirm", requestID, req, nil)
}

func (b *Bridge) ReqQryInstrument(req InstrumentQuery, requestID int) int {
	return b.send("ReqQryInstrument", requestID, req, nil)
}

func (b *Bridge) ReqQryAccount(req AccountQuery, requestID int) int {
	return b.send("ReqQryTradingAccount", requestID, req, nil)
}

func (b *Bridge) ReqQryOrders(req OrderQuery, requestID int) int {
	return b.send("ReqQryOrder", requestID, req, nil)
}

func (b *Bridge) ReqQryPositions(req PositionQuery, requestID int) int {
	return b.send("ReqQryInvestorPosition", requestID, req, nil)
}

func (b *Bridge) ReqOrderInsert(req OrderInsert, requestID int) int {
	return b.send("ReqOrderInsert", requestID, req, nil)
}

func (b *Bridge) ReqOrderAction(req OrderAction, requestID int) int {
	return b.send("ReqOrderAction", requestID, req, nil)
}

// QuoteTransport 实现。

func (b *Bridge) Subscribe(codes []string) int {
	return b.send("SubscribeMarketData", -1, nil, codes)
}

func (b *Bridge) Unsubscribe(codes []string) int {
	return b.send("UnSubscribeMarketData", -1, nil, codes)
}

// BridgeFactory 按配置的两个桥接地址构造传输对。
type BridgeFactory struct {
	TradeURL string
	QuoteURL string
	Logger   *logger.Logger
}

func (f BridgeFactory) NewTradeTransport() TradeTransport {
	return NewBridge(f.TradeURL, f.Logger)
}

func (f BridgeFactory) NewQuoteTransport() QuoteTransport {
	return NewBridge(f.QuoteURL, f.Logger)
}
