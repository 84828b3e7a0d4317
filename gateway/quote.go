package gateway

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"ctp-gateway-go/infrastructure/logger"
	"ctp-gateway-go/infrastructure/monitor"
)

// TickReceiver 行情推送的接收函数，在分发 goroutine 上被调用。
type TickReceiver func(*TickField)

// QuoteSession 行情会话：连接 → 登录 → 就绪。
// 构造调用阻塞到登录完成，订阅/退订为同步操作。
type QuoteSession struct {
	transport QuoteTransport
	corr      *correlator
	log       *logger.Logger
	mon       *monitor.Monitor
	timeout   time.Duration

	mu       sync.Mutex
	receiver TickReceiver
}

// QuoteOptions 行情会话构造参数。
type QuoteOptions struct {
	Timeout time.Duration
	Logger  *logger.Logger
	Monitor *monitor.Monitor
}

// OpenQuoteSession 建立行情连接并阻塞到登录完成。
func OpenQuoteSession(transport QuoteTransport, opts QuoteOptions) (*QuoteSession, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	s := &QuoteSession{
		transport: transport,
		corr:      newCorrelator(),
		log:       opts.Logger,
		mon:       opts.Monitor,
		timeout:   opts.Timeout,
	}
	const op = "登录行情会话"
	s.corr.begin(op, reqIDQuoteLogin)
	if err := transport.Open(s.dispatch); err != nil {
		return nil, err
	}
	if err := s.corr.gate.wait(op, s.timeout); err != nil {
		_ = transport.Close()
		return nil, err
	}
	s.mon.RecordLogin()
	return s, nil
}

// Close 登出并断开行情连接。
func (s *QuoteSession) Close() error {
	err := s.transport.Close()
	s.log.Info("已登出行情服务器...")
	return err
}

// SetReceiver 替换行情接收函数并返回旧函数。
func (s *QuoteSession) SetReceiver(fn TickReceiver) TickReceiver {
	s.mu.Lock()
	old := s.receiver
	s.receiver = fn
	s.mu.Unlock()
	return old
}

// Subscribe 订阅行情，阻塞到全部订阅应答到达。
func (s *QuoteSession) Subscribe(codes []string) error {
	const op = "订阅行情"
	s.corr.begin(op, -1)
	if err := checkSubmit(s.transport.Subscribe(codes)); err != nil {
		return err
	}
	return s.wait(op)
}

// Unsubscribe 取消订阅。
func (s *QuoteSession) Unsubscribe(codes []string) error {
	const op = "取消订阅行情"
	s.corr.begin(op, -1)
	if err := checkSubmit(s.transport.Unsubscribe(codes)); err != nil {
		return err
	}
	return s.wait(op)
}

func (s *QuoteSession) wait(op string) error {
	s.mon.RecordRequest(op)
	start := time.Now()
	err := s.corr.gate.wait(op, s.timeout)
	s.mon.ObserveLatency(op, time.Since(start).Seconds())
	if err != nil {
		s.recordFailure(op, err)
	}
	return err
}

func (s *QuoteSession) recordFailure(op string, err error) {
	switch err.(type) {
	case *TimeoutError:
		s.mon.RecordTimeout(op)
	case *RejectedError:
		s.mon.RecordReject(op)
	}
}

// rspOK 检查应答错误信息，出错时以错误解除 gate。
func (s *QuoteSession) rspOK(info *RspInfo) bool {
	if info == nil || info.ErrorID == 0 {
		return true
	}
	s.corr.gate.fail(info.ErrorMsg)
	return false
}

// dispatch 由传输层在其读循环 goroutine 上调用，按事件种类路由。
func (s *QuoteSession) dispatch(ev Event) {
	switch ev.Kind {
	case EvConnected:
		s.log.Info("已连接行情服务器...")
		if code := s.transport.ReqUserLogin(LoginRequest{}, reqIDQuoteLogin); code != 0 {
			s.corr.gate.fail(submitErrorMsg(code))
		}
	case EvDisconnected:
		// 在途调用会以超时收场，这一层不做自动重连。
		s.log.Warn("已断开行情服务器", zap.Int("reason", ev.Reason))
		s.mon.RecordDisconnect()
	case EvHeartbeatWarning:
		s.log.Warn("行情连接心跳超时", zap.Int("lapse", ev.Reason))
	case EvRspUserLogin:
		if !s.corr.accept(reqIDQuoteLogin, ev.RequestID) {
			s.log.Warn("丢弃迟到的登录应答", zap.Int("request_id", ev.RequestID))
			return
		}
		if !s.rspOK(ev.Info) {
			return
		}
		s.log.Info("已登录行情会话...")
		s.corr.gate.complete()
	case EvRspSubscribe:
		if !s.rspOK(ev.Info) {
			return
		}
		if ev.Specific != nil {
			s.log.Info("已订阅行情", zap.String("code", ev.Specific.InstrumentID))
		}
		if ev.IsLast {
			s.corr.gate.complete()
		}
	case EvRspUnsubscribe:
		if !s.rspOK(ev.Info) {
			return
		}
		if ev.Specific != nil {
			s.log.Info("已取消订阅行情", zap.String("code", ev.Specific.InstrumentID))
		}
		if ev.IsLast {
			s.corr.gate.complete()
		}
	case EvTick:
		s.mon.RecordTick()
		s.mu.Lock()
		receiver := s.receiver
		s.mu.Unlock()
		if receiver != nil && ev.Tick != nil {
			receiver(ev.Tick)
		}
	case EvRspError:
		s.log.Error("行情会话收到错误应答",
			zap.Int("request_id", ev.RequestID), zap.Any("info", ev.Info))
	}
}
