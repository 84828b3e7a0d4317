package gateway

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ctp-gateway-go/infrastructure/logger"
	"ctp-gateway-go/infrastructure/monitor"
	"ctp-gateway-go/instrument"
)

// TradeConfig 交易会话的柜台身份信息。
type TradeConfig struct {
	BrokerID   string
	InvestorID string
	Password   string
	AppID      string
	AuthCode   string
}

// TradeOptions 交易会话构造参数。
type TradeOptions struct {
	Timeout    time.Duration
	QueryFloor time.Duration
	Cache      *instrument.Store
	Logger     *logger.Logger
	Monitor    *monitor.Monitor
}

// TradeSession 交易会话：连接 → 认证 → 登录 → 确认结算单 → 就绪。
// 所有操作串行阻塞；回调由传输层的读循环 goroutine 经 dispatch 交付。
// 流式查询的累积器只由分发方写入，调用方在 gate 解除后才读取。
type TradeSession struct {
	transport TradeTransport
	corr      *correlator
	limiter   *QueryLimiter
	tracker   orderTracker
	log       *logger.Logger
	mon       *monitor.Monitor
	timeout   time.Duration

	catalog *instrument.Catalog
	cache   *instrument.Store

	brokerID   string
	investorID string
	password   string
	appID      string
	authCode   string

	frontID   int
	sessionID int
	orderRef  int

	// 在途调用的累积器与结果槽。
	account      Account
	orders       map[string]Order
	positions    []Position
	pendingInsts map[string]instrument.Instrument
	instCount    atomic.Int64
	tradedVolume int
	orderID      string
}

// OpenTradeSession 建立交易连接，阻塞到握手完成并装载当日合约表。
func OpenTradeSession(cfg TradeConfig, transport TradeTransport, opts TradeOptions) (*TradeSession, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	s := &TradeSession{
		transport:  transport,
		corr:       newCorrelator(),
		limiter:    NewQueryLimiter(opts.QueryFloor),
		log:        opts.Logger,
		mon:        opts.Monitor,
		timeout:    opts.Timeout,
		catalog:    instrument.NewCatalog(),
		cache:      opts.Cache,
		brokerID:   cfg.BrokerID,
		investorID: cfg.InvestorID,
		password:   cfg.Password,
		appID:      cfg.AppID,
		authCode:   cfg.AuthCode,
	}
	const op = "登录交易会话"
	s.corr.begin(op, reqIDAuthenticate)
	if err := transport.Open(s.dispatch); err != nil {
		return nil, err
	}
	if err := s.corr.gate.wait(op, s.timeout); err != nil {
		_ = transport.Close()
		return nil, err
	}
	// 握手完成后就不再需要敏感凭据。
	s.password, s.appID, s.authCode = "", "", ""
	s.mon.RecordLogin()

	if err := s.loadInstruments(); err != nil {
		_ = transport.Close()
		return nil, err
	}
	return s, nil
}

// Close 登出并断开交易连接。
func (s *TradeSession) Close() error {
	err := s.transport.Close()
	s.log.Info("已登出交易服务器...")
	return err
}

// Catalog 返回当日合约表。
func (s *TradeSession) Catalog() *instrument.Catalog {
	return s.catalog
}

// Identity 返回登录后柜台分配的 (frontID, sessionID)。
func (s *TradeSession) Identity() (frontID, sessionID int) {
	return s.frontID, s.sessionID
}

// QueryAccount 查询资金账户。
func (s *TradeSession) QueryAccount() (Account, error) {
	const op = "获取资金账户"
	s.corr.begin(op, reqIDQryAccount)
	s.limiter.Wait()
	req := AccountQuery{
		BrokerID:   s.brokerID,
		InvestorID: s.investorID,
		CurrencyID: "CNY",
		BizType:    "1", // 期货
	}
	if err := checkSubmit(s.transport.ReqQryAccount(req, reqIDQryAccount)); err != nil {
		return Account{}, err
	}
	if err := s.waitOp(op); err != nil {
		return Account{}, err
	}
	return s.account, nil
}

// QueryOrders 查询当日全部报单，键为 "单号@合约号"。
// 未到达交易所的报单（无 OrderSysID）不计入。
func (s *TradeSession) QueryOrders() (map[string]Order, error) {
	const op = "获取所有报单"
	s.orders = make(map[string]Order)
	s.corr.begin(op, reqIDQryOrder)
	s.limiter.Wait()
	req := OrderQuery{BrokerID: s.brokerID, InvestorID: s.investorID}
	if err := checkSubmit(s.transport.ReqQryOrders(req, reqIDQryOrder)); err != nil {
		return nil, err
	}
	if err := s.waitOp(op); err != nil {
		return nil, err
	}
	return s.orders, nil
}

// QueryPositions 查询持仓，净持仓为零的合约不计入。
func (s *TradeSession) QueryPositions() ([]Position, error) {
	const op = "获取所有持仓"
	s.positions = nil
	s.corr.begin(op, reqIDQryPosition)
	s.limiter.Wait()
	req := PositionQuery{BrokerID: s.brokerID, InvestorID: s.investorID}
	if err := checkSubmit(s.transport.ReqQryPositions(req, reqIDQryPosition)); err != nil {
		return nil, err
	}
	if err := s.waitOp(op); err != nil {
		return nil, err
	}
	return s.positions, nil
}

// PlaceMarket 市价单：以对手价立即成交，未成交部分撤销，返回成交量。
func (s *TradeSession) PlaceMarket(code, direction string, volume int) (int, error) {
	if err := s.placeOrder(code, direction, volume, 0, 0); err != nil {
		return 0, err
	}
	return s.tradedVolume, nil
}

// PlaceFAK FAK限价单：立即成交不少于 minVolume 的数量，剩余撤销，
// 返回成交量。minVolume 为 0 时按 1 处理。
func (s *TradeSession) PlaceFAK(code, direction string, volume int, price float64, minVolume int) (int, error) {
	if price <= 0 {
		return 0, validationf("FAK单价格<%v>必须为正数", price)
	}
	if minVolume == 0 {
		minVolume = 1
	}
	if err := s.placeOrder(code, direction, volume, price, minVolume); err != nil {
		return 0, err
	}
	return s.tradedVolume, nil
}

// PlaceFOK FOK限价单：要么全部立即成交，要么全部撤销。
func (s *TradeSession) PlaceFOK(code, direction string, volume int, price float64) (int, error) {
	return s.PlaceFAK(code, direction, volume, price, volume)
}

// PlaceLimit 限价单（当日有效），返回 "单号@合约号" 形式的订单号。
func (s *TradeSession) PlaceLimit(code, direction string, volume int, price float64) (string, error) {
	if price <= 0 {
		return "", validationf("限价单价格<%v>必须为正数", price)
	}
	if err := s.placeOrder(code, direction, volume, price, 0); err != nil {
		return "", err
	}
	return s.orderID, nil
}

// placeOrder 构造并发出一笔报单，阻塞到其被跟踪器解除。
// 报单要素推导见下；volume 为带符号数量，负数表示平仓（方向翻转）。
func (s *TradeSession) placeOrder(code, direction string, volume int, price float64, minVolume int) error {
	inst, ok := s.catalog.Get(code)
	if !ok {
		return validationf("合约<%s>不存在", code)
	}
	var dir int
	switch direction {
	case DirectionLong:
		dir = 0
	case DirectionShort:
		dir = 1
	default:
		return validationf("错误的买卖方向<%s>", direction)
	}
	if volume == 0 {
		return validationf("交易数量必须是非零整数")
	}
	offset := OffsetOpen
	if volume < 0 {
		offset = OffsetClose
		volume = -volume
		dir = 1 - dir
	}

	var priceType, timeCond, volumeCond string
	switch {
	case price == 0:
		// 市价单。中金所不支持任意价，退为五档价。
		if inst.Exchange == "CFFEX" {
			priceType = PriceTypeFiveLevel
		} else {
			priceType = PriceTypeAny
		}
		timeCond, volumeCond = TimeIOC, VolumeAny
	case minVolume == 0:
		// 限价单，当日有效。
		priceType, timeCond, volumeCond = PriceTypeLimit, TimeGFD, VolumeAny
	default:
		// FAK限价单，要求最小成交量。
		if minVolume < 0 {
			minVolume = -minVolume
		}
		if minVolume > volume {
			return validationf("最小成交量<%d>不能超过交易数量<%d>", minVolume, volume)
		}
		priceType, timeCond, volumeCond = PriceTypeLimit, TimeIOC, VolumeMin
	}

	s.orderRef++
	ref := s.orderRef
	s.tracker.arm(s.insertMatcher(ref, timeCond))

	const op = "录入报单"
	s.corr.begin(op, reqIDOrderInsert)
	req := OrderInsert{
		BrokerID:            s.brokerID,
		InvestorID:          s.investorID,
		ExchangeID:          inst.Exchange,
		InstrumentID:        code,
		Direction:           strconv.Itoa(dir),
		CombOffsetFlag:      offset,
		TimeCondition:       timeCond,
		VolumeCondition:     volumeCond,
		OrderPriceType:      priceType,
		LimitPrice:          price,
		VolumeTotalOriginal: volume,
		MinVolume:           minVolume,
		CombHedgeFlag:       HedgeSpeculation,
		ContingentCondition: ContingentImmediate,
		ForceCloseReason:    ForceCloseNot,
		OrderRef:            fmt.Sprintf("%12d", ref),
	}
	if err := checkSubmit(s.transport.ReqOrderInsert(req, reqIDOrderInsert)); err != nil {
		s.tracker.disarm()
		return err
	}
	if err := s.waitOp(op); err != nil {
		// 撤下匹配器，迟到的回报不能撞进下一次调用的周期。
		s.tracker.disarm()
		return err
	}
	s.mon.RecordOrderInserted()
	return nil
}

// insertMatcher 构造新报单的回报匹配函数。受理前报单只能以
// (frontID, sessionID, orderRef) 本地三元组定位。
func (s *TradeSession) insertMatcher(ref int, timeCond string) func(*OrderField) bool {
	return func(o *OrderField) bool {
		oref := -1
		if trimmed := strings.TrimSpace(o.OrderRef); trimmed != "" {
			if n, err := strconv.Atoi(trimmed); err == nil {
				oref = n
			}
		}
		if o.FrontID != s.frontID || o.SessionID != s.sessionID || oref != ref {
			return false
		}
		if o.OrderStatus == StatusUnknown {
			// 柜台尚未处理完，继续等后续回报。
			return false
		}
		if o.OrderSubmitStatus == SubmitInsertRejected {
			s.corr.gate.fail(o.StatusMsg)
			return true
		}
		if timeCond == TimeIOC {
			if o.OrderStatus == StatusAllTraded || o.OrderStatus == StatusCanceled {
				s.tradedVolume = o.VolumeTraded
				s.mon.RecordTradedVolume(o.VolumeTraded)
				s.log.Info("已执行IOC单", zap.Int("traded", o.VolumeTraded))
				s.corr.gate.complete()
				return true
			}
			return false
		}
		// 当日有效单：受理即返回，此后报单以柜台分配的单号定位。
		if o.OrderSubmitStatus == SubmitAccepted {
			if o.OrderSysID == "" {
				panic("accepted order carries no OrderSysID")
			}
			s.orderID = o.OrderSysID + "@" + o.InstrumentID
			s.log.Info("已提交限价单", zap.String("order_id", s.orderID))
			s.corr.gate.complete()
			return true
		}
		return false
	}
}

// CancelOrder 撤销限价单。orderID 为 PlaceLimit 返回的 "单号@合约号"。
func (s *TradeSession) CancelOrder(orderID string) error {
	items := strings.Split(orderID, "@")
	if len(items) != 2 {
		return validationf("订单号<%s>格式错误", orderID)
	}
	sysID, code := items[0], items[1]
	inst, ok := s.catalog.Get(code)
	if !ok {
		return validationf("订单号<%s>中的合约号<%s>不存在", orderID, code)
	}
	s.tracker.arm(s.cancelMatcher(orderID))

	const op = "撤销报单"
	s.corr.begin(op, reqIDOrderAction)
	req := OrderAction{
		BrokerID:     s.brokerID,
		InvestorID:   s.investorID,
		UserID:       s.investorID,
		ActionFlag:   ActionDelete,
		ExchangeID:   inst.Exchange,
		InstrumentID: code,
		OrderSysID:   sysID,
	}
	if err := checkSubmit(s.transport.ReqOrderAction(req, reqIDOrderAction)); err != nil {
		s.tracker.disarm()
		return err
	}
	if err := s.waitOp(op); err != nil {
		s.tracker.disarm()
		return err
	}
	s.mon.RecordOrderCanceled()
	return nil
}

// cancelMatcher 构造撤单回报的匹配函数，只认 (单号, 合约号) 二元组。
func (s *TradeSession) cancelMatcher(orderID string) func(*OrderField) bool {
	return func(o *OrderField) bool {
		if o.OrderSysID+"@"+o.InstrumentID != orderID {
			return false
		}
		if o.OrderSubmitStatus == SubmitCancelRejected {
			s.corr.gate.fail(o.StatusMsg)
			return true
		}
		if o.OrderStatus == StatusAllTraded || o.OrderStatus == StatusCanceled {
			s.log.Info("已撤销限价单", zap.String("order_id", orderID))
			s.corr.gate.complete()
			return true
		}
		return false
	}
}

// waitOp 等待 gate 解除并记录指标。
func (s *TradeSession) waitOp(op string) error {
	s.mon.RecordRequest(op)
	start := time.Now()
	err := s.corr.gate.wait(op, s.timeout)
	s.mon.ObserveLatency(op, time.Since(start).Seconds())
	switch err.(type) {
	case *TimeoutError:
		s.mon.RecordTimeout(op)
	case *RejectedError:
		s.mon.RecordReject(op)
	}
	return err
}

// rspOK 检查应答错误信息，出错时以错误解除 gate。
func (s *TradeSession) rspOK(info *RspInfo) bool {
	if info == nil || info.ErrorID == 0 {
		return true
	}
	s.corr.gate.fail(info.ErrorMsg)
	return false
}

// dispatch 由传输层在其读循环 goroutine 上调用。
// 请求类应答经 correlator 校验回显 ID，报单回报交给 tracker。
func (s *TradeSession) dispatch(ev Event) {
	switch ev.Kind {
	case EvConnected:
		s.log.Info("已连接交易服务器...")
		req := AuthRequest{
			BrokerID: s.brokerID,
			UserID:   s.investorID,
			AppID:    s.appID,
			AuthCode: s.authCode,
		}
		if code := s.transport.ReqAuthenticate(req, reqIDAuthenticate); code != 0 {
			s.corr.gate.fail(submitErrorMsg(code))
		}
	case EvDisconnected:
		// 不解除在途 gate：调用方以超时感知连接中断。
		s.log.Warn("已断开交易服务器", zap.Int("reason", ev.Reason))
		s.mon.RecordDisconnect()
	case EvHeartbeatWarning:
		s.log.Warn("交易连接心跳超时", zap.Int("lapse", ev.Reason))
	case EvRspAuthenticate:
		if !s.accept(reqIDAuthenticate, ev.RequestID) {
			return
		}
		if !s.rspOK(ev.Info) {
			return
		}
		s.log.Info("已通过交易终端认证...")
		s.corr.advance("登录交易会话", reqIDLogin)
		req := LoginRequest{BrokerID: s.brokerID, UserID: s.investorID, Password: s.password}
		if code := s.transport.ReqUserLogin(req, reqIDLogin); code != 0 {
			s.corr.gate.fail(submitErrorMsg(code))
		}
	case EvRspUserLogin:
		if !s.accept(reqIDLogin, ev.RequestID) {
			return
		}
		if !s.rspOK(ev.Info) {
			return
		}
		if ev.Login != nil {
			s.frontID = ev.Login.FrontID
			s.sessionID = ev.Login.SessionID
		}
		s.log.Info("已登录交易会话...",
			zap.Int("front_id", s.frontID), zap.Int("session_id", s.sessionID))
		s.corr.advance("确认结算单", reqIDSettlementConfirm)
		req := SettlementConfirmRequest{BrokerID: s.brokerID, InvestorID: s.investorID}
		if code := s.transport.ReqSettlementConfirm(req, reqIDSettlementConfirm); code != 0 {
			s.corr.gate.fail(submitErrorMsg(code))
		}
	case EvRspSettlementConfirm:
		if !s.accept(reqIDSettlementConfirm, ev.RequestID) {
			return
		}
		if !s.rspOK(ev.Info) {
			return
		}
		s.log.Info("已确认结算单...")
		s.corr.gate.complete()
	case EvRspInstrument:
		if !s.accept(reqIDQryInstrument, ev.RequestID) {
			return
		}
		if !s.rspOK(ev.Info) {
			return
		}
		if ev.Instrument != nil {
			s.pendingInsts[ev.Instrument.InstrumentID] = convertInstrument(ev.Instrument)
			s.instCount.Store(int64(len(s.pendingInsts)))
		}
		if ev.IsLast {
			s.log.Info("已获取全部合约", zap.Int("count", len(s.pendingInsts)))
			s.corr.gate.complete()
		}
	case EvRspAccount:
		if !s.accept(reqIDQryAccount, ev.RequestID) {
			return
		}
		if !s.rspOK(ev.Info) {
			return
		}
		if ev.Account != nil {
			s.account = Account{
				Balance:   ev.Account.Balance,
				Margin:    ev.Account.CurrMargin,
				Available: ev.Account.Available,
			}
		}
		s.log.Info("已获取资金账户...")
		s.corr.gate.complete()
	case EvRspOrder:
		if !s.accept(reqIDQryOrder, ev.RequestID) {
			return
		}
		if !s.rspOK(ev.Info) {
			return
		}
		if ev.Order != nil {
			s.gotOrder(ev.Order)
		}
		if ev.IsLast {
			s.log.Info("已获取所有报单...")
			s.corr.gate.complete()
		}
	case EvRspPosition:
		if !s.accept(reqIDQryPosition, ev.RequestID) {
			return
		}
		if !s.rspOK(ev.Info) {
			return
		}
		if ev.Position != nil {
			s.gotPosition(ev.Position)
		}
		if ev.IsLast {
			s.log.Info("已获取所有持仓...")
			s.corr.gate.complete()
		}
	case EvRspOrderInsert:
		if !s.accept(reqIDOrderInsert, ev.RequestID) {
			return
		}
		s.failFromRsp(ev.Info)
	case EvErrOrderInsert:
		s.failFromRsp(ev.Info)
	case EvRspOrderAction:
		if !s.accept(reqIDOrderAction, ev.RequestID) {
			return
		}
		s.failFromRsp(ev.Info)
	case EvErrOrderAction:
		s.failFromRsp(ev.Info)
	case EvOrderUpdate:
		if ev.Order != nil {
			s.tracker.offer(ev.Order)
		}
	case EvRspError:
		s.log.Error("交易会话收到错误应答",
			zap.Int("request_id", ev.RequestID), zap.Any("info", ev.Info))
	}
}

// accept 校验应答属于当前等待的调用。超时后才到的迟到应答丢弃并记录，
// 不能让它解除后续调用的 gate。
func (s *TradeSession) accept(reserved, echoed int) bool {
	if s.corr.accept(reserved, echoed) {
		return true
	}
	s.log.Warn("丢弃迟到应答",
		zap.Int("request_id", echoed), zap.String("awaiting", s.corr.current()))
	return false
}

// failFromRsp 处理只在出错时回调的应答（报单录入/撤销被柜台拒绝）。
// 柜台可能对同一笔拒绝同时回调两条错误应答，本周期已解除时跳过。
func (s *TradeSession) failFromRsp(info *RspInfo) {
	if info == nil || info.ErrorID == 0 {
		panic("error-only callback delivered without error info")
	}
	if s.corr.gate.settled() {
		return
	}
	s.corr.gate.fail(info.ErrorMsg)
}

// gotOrder 归并一条报单查询应答。柜台数据再脏也不能打断查询流：
// 方向无法识别的记录跳过，重复单号以后到的为准。
func (s *TradeSession) gotOrder(o *OrderField) {
	if o.OrderSysID == "" {
		return
	}
	oid := o.OrderSysID + "@" + o.InstrumentID
	dir, err := strconv.Atoi(o.Direction)
	if err != nil || (dir != 0 && dir != 1) {
		s.log.Warn("跳过方向无法识别的报单记录",
			zap.String("order_id", oid), zap.String("direction", o.Direction))
		return
	}
	volume := o.VolumeTotalOriginal
	if o.CombOffsetFlag == OffsetClose {
		dir = 1 - dir
		volume = -volume
	}
	direction := DirectionLong
	if dir == 1 {
		direction = DirectionShort
	}
	if _, dup := s.orders[oid]; dup {
		s.log.Warn("报单查询流中出现重复单号", zap.String("order_id", oid))
	}
	s.orders[oid] = Order{
		Code:         o.InstrumentID,
		Direction:    direction,
		Price:        o.LimitPrice,
		Volume:       volume,
		VolumeTraded: o.VolumeTraded,
		IsActive:     o.OrderStatus != StatusAllTraded && o.OrderStatus != StatusCanceled,
	}
}

// gotPosition 归并一条持仓查询应答。
func (s *TradeSession) gotPosition(p *PositionField) {
	var direction string
	switch p.PosiDirection {
	case PosiLong:
		direction = DirectionLong
	case PosiShort:
		direction = DirectionShort
	default:
		return
	}
	if p.Position == 0 {
		return
	}
	s.positions = append(s.positions, Position{
		Code:      p.InstrumentID,
		Direction: direction,
		Volume:    p.Position,
		Margin:    p.UseMargin,
		Cost:      p.OpenCost,
	})
}
