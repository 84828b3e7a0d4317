package gateway

// EventSink 接收底层连接交付的回调事件。实现方必须在单一 goroutine
// 上按柜台顺序逐条调用，等价于厂商 API 的回调线程。
type EventSink func(Event)

// 各类请求的提交载荷。字段与柜台结构一一对应，线格式由底层桥接决定。

type AuthRequest struct {
	BrokerID string `json:"broker_id"`
	UserID   string `json:"user_id"`
	AppID    string `json:"app_id"`
	AuthCode string `json:"auth_code"`
}

type LoginRequest struct {
	BrokerID string `json:"broker_id,omitempty"`
	UserID   string `json:"user_id,omitempty"`
	Password string `json:"password,omitempty"`
}

type SettlementConfirmRequest struct {
	BrokerID   string `json:"broker_id"`
	InvestorID string `json:"investor_id"`
}

type AccountQuery struct {
	BrokerID   string `json:"broker_id"`
	InvestorID string `json:"investor_id"`
	CurrencyID string `json:"currency_id"`
	BizType    string `json:"biz_type"`
}

type OrderQuery struct {
	BrokerID   string `json:"broker_id"`
	InvestorID string `json:"investor_id"`
}

type PositionQuery struct {
	BrokerID   string `json:"broker_id"`
	InvestorID string `json:"investor_id"`
}

type InstrumentQuery struct{}

type OrderInsert struct {
	BrokerID            string  `json:"broker_id"`
	InvestorID          string  `json:"investor_id"`
	ExchangeID          string  `json:"exchange_id"`
	InstrumentID        string  `json:"instrument_id"`
	Direction           string  `json:"direction"`
	CombOffsetFlag      string  `json:"comb_offset_flag"`
	TimeCondition       string  `json:"time_condition"`
	VolumeCondition     string  `json:"volume_condition"`
	OrderPriceType      string  `json:"order_price_type"`
	LimitPrice          float64 `json:"limit_price"`
	VolumeTotalOriginal int     `json:"volume_total_original"`
	MinVolume           int     `json:"min_volume"`
	CombHedgeFlag       string  `json:"comb_hedge_flag"`
	ContingentCondition string  `json:"contingent_condition"`
	ForceCloseReason    string  `json:"force_close_reason"`
	OrderRef            string  `json:"order_ref"`
}

type OrderAction struct {
	BrokerID     string `json:"broker_id"`
	InvestorID   string `json:"investor_id"`
	UserID       string `json:"user_id"`
	ActionFlag   string `json:"action_flag"`
	ExchangeID   string `json:"exchange_id"`
	InstrumentID string `json:"instrument_id"`
	OrderSysID   string `json:"order_sys_id"`
}

// TradeTransport 交易连接。提交方法立即返回受理码：0 已受理，
// 负值见 SubmissionError；结果经 sink 异步交付。
type TradeTransport interface {
	// Open 建立连接并开始交付事件；连接建立后 sink 会收到 EvConnected。
	Open(sink EventSink) error
	ReqAuthenticate(req AuthRequest, requestID int) int
	ReqUserLogin(req LoginRequest, requestID int) int
	ReqSettlementConfirm(req SettlementConfirmRequest, requestID int) int
	ReqQryInstrument(req InstrumentQuery, requestID int) int
	ReqQryAccount(req AccountQuery, requestID int) int
	ReqQryOrders(req OrderQuery, requestID int) int
	ReqQryPositions(req PositionQuery, requestID int) int
	ReqOrderInsert(req OrderInsert, requestID int) int
	ReqOrderAction(req OrderAction, requestID int) int
	Close() error
}

// QuoteTransport 行情连接。订阅类请求不回显 requestID。
type QuoteTransport interface {
	Open(sink EventSink) error
	ReqUserLogin(req LoginRequest, requestID int) int
	Subscribe(codes []string) int
	Unsubscribe(codes []string) int
	Close() error
}
