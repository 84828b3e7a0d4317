package gateway

import (
	"errors"
	"sync"

	"ctp-gateway-go/infrastructure/logger"
	"ctp-gateway-go/instrument"
)

// TransportFactory 构造一对新的底层连接。每次登录都重新建连。
type TransportFactory interface {
	NewTradeTransport() TradeTransport
	NewQuoteTransport() QuoteTransport
}

// Client 同时持有行情与交易两个会话的门面。生命周期显式：
// Login 建立两个会话，Logout 释放。两个会话相互独立，可并发使用，
// 但单个会话上的操作必须串行。
type Client struct {
	cfg     TradeConfig
	opts    TradeOptions
	factory TransportFactory

	mu    sync.Mutex
	trade *TradeSession
	quote *QuoteSession
}

// ErrNotLoggedIn 在未登录时调用会话操作返回。
var ErrNotLoggedIn = errors.New("尚未登录")

// NewClient 创建门面；此时不建立任何连接。
func NewClient(cfg TradeConfig, factory TransportFactory, opts TradeOptions) *Client {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Client{
		cfg:     cfg,
		opts:    opts,
		factory: factory,
	}
}

// Login 先建交易会话（其间装载合约表），再建行情会话。
func (c *Client) Login() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.trade != nil {
		return nil
	}
	trade, err := OpenTradeSession(c.cfg, c.factory.NewTradeTransport(), c.opts)
	if err != nil {
		return err
	}
	quote, err := OpenQuoteSession(c.factory.NewQuoteTransport(), QuoteOptions{
		Timeout: c.opts.Timeout,
		Logger:  c.opts.Logger,
		Monitor: c.opts.Monitor,
	})
	if err != nil {
		_ = trade.Close()
		return err
	}
	c.trade, c.quote = trade, quote
	return nil
}

// Logout 关闭两个会话。
func (c *Client) Logout() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.quote != nil {
		err = errors.Join(err, c.quote.Close())
		c.quote = nil
	}
	if c.trade != nil {
		err = errors.Join(err, c.trade.Close())
		c.trade = nil
	}
	return err
}

// LoggedIn 报告当前是否持有活动会话。
func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trade != nil
}

func (c *Client) sessions() (*TradeSession, *QuoteSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.trade == nil || c.quote == nil {
		return nil, nil, ErrNotLoggedIn
	}
	return c.trade, c.quote, nil
}

// Subscribe 订阅行情，合约代码先经当日目录校验。
func (c *Client) Subscribe(codes []string) error {
	trade, quote, err := c.sessions()
	if err != nil {
		return err
	}
	for _, code := range codes {
		if !trade.Catalog().Has(code) {
			return validationf("合约<%s>不存在", code)
		}
	}
	return quote.Subscribe(codes)
}

// Unsubscribe 取消订阅行情。
func (c *Client) Unsubscribe(codes []string) error {
	_, quote, err := c.sessions()
	if err != nil {
		return err
	}
	return quote.Unsubscribe(codes)
}

// SetReceiver 设置行情接收函数并返回旧函数。
func (c *Client) SetReceiver(fn TickReceiver) (TickReceiver, error) {
	_, quote, err := c.sessions()
	if err != nil {
		return nil, err
	}
	return quote.SetReceiver(fn), nil
}

// Instrument 返回指定合约详情的副本。
func (c *Client) Instrument(code string) (instrument.Instrument, error) {
	trade, _, err := c.sessions()
	if err != nil {
		return instrument.Instrument{}, err
	}
	inst, ok := trade.Catalog().Get(code)
	if !ok {
		return instrument.Instrument{}, validationf("合约<%s>不存在", code)
	}
	return inst, nil
}

// OptionInstruments 返回期权索引；root 非空时限定标的。
func (c *Client) OptionInstruments(root string) (map[string][]instrument.Instrument, error) {
	trade, _, err := c.sessions()
	if err != nil {
		return nil, err
	}
	return trade.Catalog().Options(root), nil
}

// FutureInstruments 返回期货索引；exchange 非空时限定交易所。
func (c *Client) FutureInstruments(exchange string) (map[string][]instrument.Instrument, error) {
	trade, _, err := c.sessions()
	if err != nil {
		return nil, err
	}
	return trade.Catalog().Futures(exchange), nil
}

// Account 查询资金账户。
func (c *Client) Account() (Account, error) {
	trade, _, err := c.sessions()
	if err != nil {
		return Account{}, err
	}
	return trade.QueryAccount()
}

// Orders 查询当日报单。
func (c *Client) Orders() (map[string]Order, error) {
	trade, _, err := c.sessions()
	if err != nil {
		return nil, err
	}
	return trade.QueryOrders()
}

// Positions 查询持仓。
func (c *Client) Positions() ([]Position, error) {
	trade, _, err := c.sessions()
	if err != nil {
		return nil, err
	}
	return trade.QueryPositions()
}

// PlaceMarket 市价下单，返回成交量。
func (c *Client) PlaceMarket(code, direction string, volume int) (int, error) {
	trade, _, err := c.sessions()
	if err != nil {
		return 0, err
	}
	return trade.PlaceMarket(code, direction, volume)
}

// PlaceFAK FAK下单，返回成交量。
func (c *Client) PlaceFAK(code, direction string, volume int, price float64, minVolume int) (int, error) {
	trade, _, err := c.sessions()
	if err != nil {
		return 0, err
	}
	return trade.PlaceFAK(code, direction, volume, price, minVolume)
}

// PlaceFOK FOK下单，返回成交量。
func (c *Client) PlaceFOK(code, direction string, volume int, price float64) (int, error) {
	trade, _, err := c.sessions()
	if err != nil {
		return 0, err
	}
	return trade.PlaceFOK(code, direction, volume, price)
}

// PlaceLimit 限价下单，返回订单号。
func (c *Client) PlaceLimit(code, direction string, volume int, price float64) (string, error) {
	trade, _, err := c.sessions()
	if err != nil {
		return "", err
	}
	return trade.PlaceLimit(code, direction, volume, price)
}

// CancelOrder 撤销限价单。
func (c *Client) CancelOrder(orderID string) error {
	trade, _, err := c.sessions()
	if err != nil {
		return err
	}
	return trade.CancelOrder(orderID)
}
