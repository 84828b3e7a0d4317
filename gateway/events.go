// Package gateway 实现对 CTP 柜台的阻塞式封装。
//
// 厂商接口只以异步回调交付结果：连接事件、登录应答、以"最后一条"标记
// 结尾的查询应答流、以及主动推送的报单回报。本包把这条多路复用的事件流
// 转换成一组串行、有超时、可传播错误的同步操作。
package gateway

import "math"

// EventKind 标记一条回调事件的种类，分发时按它路由。
type EventKind int

const (
	EvConnected EventKind = iota
	EvDisconnected
	EvHeartbeatWarning
	EvRspError
	EvRspAuthenticate
	EvRspUserLogin
	EvRspSettlementConfirm
	EvRspSubscribe
	EvRspUnsubscribe
	EvTick
	EvRspInstrument
	EvRspAccount
	EvRspOrder
	EvRspPosition
	EvRspOrderInsert
	EvErrOrderInsert
	EvRspOrderAction
	EvErrOrderAction
	EvOrderUpdate
)

// CTP 单字符枚举值。线格式由柜台固定，这里只透传。
const (
	DirBuy  = "0"
	DirSell = "1"

	OffsetOpen  = "0"
	OffsetClose = "1"

	PriceTypeAny       = "1"
	PriceTypeLimit     = "2"
	PriceTypeFiveLevel = "G"

	TimeIOC = "1"
	TimeGFD = "3"

	VolumeAny = "1"
	VolumeMin = "2"

	HedgeSpeculation    = "1"
	ContingentImmediate = "1"
	ForceCloseNot       = "0"
	ActionDelete        = "0"

	StatusAllTraded = "0"
	StatusCanceled  = "5"
	StatusUnknown   = "a"

	SubmitAccepted       = "3"
	SubmitInsertRejected = "4"
	SubmitCancelRejected = "5"

	PosiLong  = "2"
	PosiShort = "3"

	OptionCall = "1"
	OptionPut  = "2"
)

// RspInfo 网关应答附带的错误信息，ErrorID 为 0 表示成功。
type RspInfo struct {
	ErrorID  int    `json:"error_id"`
	ErrorMsg string `json:"error_msg"`
}

// LoginField 登录应答，交易会话据此获得 (frontID, sessionID) 身份。
type LoginField struct {
	FrontID   int `json:"front_id"`
	SessionID int `json:"session_id"`
}

// SpecificField 订阅/退订应答中回显的合约号。
type SpecificField struct {
	InstrumentID string `json:"instrument_id"`
}

// InstrumentField 合约查询应答中的单条记录。
type InstrumentField struct {
	InstrumentID     string  `json:"instrument_id"`
	InstrumentName   string  `json:"instrument_name"`
	ExchangeID       string  `json:"exchange_id"`
	VolumeMultiple   int     `json:"volume_multiple"`
	PriceTick        float64 `json:"price_tick"`
	ExpireDate       string  `json:"expire_date"`
	LongMarginRatio  float64 `json:"long_margin_ratio"`
	ShortMarginRatio float64 `json:"short_margin_ratio"`
	OptionsType      string  `json:"options_type"`
	StrikePrice      float64 `json:"strike_price"`
	IsTrading        int     `json:"is_trading"`
}

// AccountField 资金账户查询应答。
type AccountField struct {
	Balance    float64 `json:"balance"`
	CurrMargin float64 `json:"curr_margin"`
	Available  float64 `json:"available"`
}

// PositionField 持仓查询应答中的单条记录。
type PositionField struct {
	InstrumentID  string  `json:"instrument_id"`
	PosiDirection string  `json:"posi_direction"`
	Position      int     `json:"position"`
	UseMargin     float64 `json:"use_margin"`
	OpenCost      float64 `json:"open_cost"`
}

// OrderField 报单回报与报单查询共用的字段集。
// 回报阶段以 (FrontID, SessionID, OrderRef) 定位本地报单；
// 柜台受理后以 (OrderSysID, InstrumentID) 定位。
type OrderField struct {
	InstrumentID        string  `json:"instrument_id"`
	ExchangeID          string  `json:"exchange_id"`
	OrderRef            string  `json:"order_ref"`
	FrontID             int     `json:"front_id"`
	SessionID           int     `json:"session_id"`
	OrderSysID          string  `json:"order_sys_id"`
	Direction           string  `json:"direction"`
	CombOffsetFlag      string  `json:"comb_offset_flag"`
	LimitPrice          float64 `json:"limit_price"`
	VolumeTotalOriginal int     `json:"volume_total_original"`
	VolumeTraded        int     `json:"volume_traded"`
	TimeCondition       string  `json:"time_condition"`
	OrderStatus         string  `json:"order_status"`
	OrderSubmitStatus   string  `json:"order_submit_status"`
	StatusMsg           string  `json:"status_msg"`
}

// PriceLevel 盘口一档报价。
type PriceLevel struct {
	Price  *float64 `json:"price"`
	Volume int      `json:"volume"`
}

// TickField 深度行情推送。
type TickField struct {
	TradeTime       string     `json:"trade_time"`
	UpdateSec       int        `json:"update_sec"`
	Code            string     `json:"code"`
	Price           *float64   `json:"price"`
	Open            *float64   `json:"open"`
	Close           *float64   `json:"close"`
	Highest         *float64   `json:"highest"`
	Lowest          *float64   `json:"lowest"`
	UpperLimit      *float64   `json:"upper_limit"`
	LowerLimit      *float64   `json:"lower_limit"`
	Settlement      *float64   `json:"settlement"`
	Volume          int        `json:"volume"`
	Turnover        float64    `json:"turnover"`
	OpenInterest    int        `json:"open_interest"`
	PreClose        *float64   `json:"pre_close"`
	PreSettlement   *float64   `json:"pre_settlement"`
	PreOpenInterest int        `json:"pre_open_interest"`
	Ask1            PriceLevel `json:"ask1"`
	Bid1            PriceLevel `json:"bid1"`
	Ask2            PriceLevel `json:"ask2"`
	Bid2            PriceLevel `json:"bid2"`
	Ask3            PriceLevel `json:"ask3"`
	Bid3            PriceLevel `json:"bid3"`
	Ask4            PriceLevel `json:"ask4"`
	Bid4            PriceLevel `json:"bid4"`
	Ask5            PriceLevel `json:"ask5"`
	Bid5            PriceLevel `json:"bid5"`
}

// Event 一条回调事件。Kind 决定哪些字段有效。
type Event struct {
	Kind       EventKind
	RequestID  int
	IsLast     bool
	Reason     int
	Info       *RspInfo
	Login      *LoginField
	Specific   *SpecificField
	Instrument *InstrumentField
	Account    *AccountField
	Position   *PositionField
	Order      *OrderField
	Tick       *TickField
}

// filterPrice 过滤柜台用 DBL_MAX 表示的缺失价格。
func filterPrice(v float64) *float64 {
	if v >= math.MaxFloat64 {
		return nil
	}
	return &v
}
