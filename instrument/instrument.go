// Package instrument 维护交易日内只读的合约静态信息及其派生索引。
package instrument

import (
	"regexp"
	"sync"
)

// Instrument 单个合约的静态信息，按日加载后只读。
type Instrument struct {
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	Exchange         string   `json:"exchange"`
	Multiple         int      `json:"multiple"`
	PriceTick        float64  `json:"price_tick"`
	ExpireDate       *string  `json:"expire_date"`
	LongMarginRatio  *float64 `json:"long_margin_ratio"`
	ShortMarginRatio *float64 `json:"short_margin_ratio"`
	OptionType       *string  `json:"option_type"`
	StrikePrice      *float64 `json:"strike_price"`
	IsTrading        bool     `json:"is_trading"`
}

// 期权合约代码内嵌被数字或边界包围的 C/P 标记，如 m2405-C-3000、SR405C6000。
var (
	optionPattern = regexp.MustCompile(`[\d\-][CP][\d\-]`)
	rootPattern   = regexp.MustCompile(`[A-Za-z]{2,}\d{2,}`)
	rootFallback  = regexp.MustCompile(`^[A-Za-z]\d+`)
)

// IsOption 判断合约代码是否为期权。
func IsOption(symbol string) bool {
	return optionPattern.MatchString(symbol)
}

// OptionRoot 从期权代码中提取标的期货代码。优先匹配多字母品种，
// 退回单字母品种；两者都不匹配时返回 false，由调用方决定去向。
func OptionRoot(symbol string) (string, bool) {
	if root := rootPattern.FindString(symbol); root != "" {
		return root, true
	}
	if root := rootFallback.FindString(symbol); root != "" {
		return root, true
	}
	return "", false
}

// Catalog 保存一个交易日的全部合约，并按交易所/标的建立派生索引。
// 加载期单写，此后只读。
type Catalog struct {
	mu                sync.RWMutex
	items             map[string]Instrument
	optionsByRoot     map[string][]Instrument
	futuresByExchange map[string][]Instrument
	unclassified      []string
}

func NewCatalog() *Catalog {
	c := &Catalog{}
	c.Replace(nil)
	return c
}

// Replace 整体替换合约表并重建索引。
func (c *Catalog) Replace(items map[string]Instrument) {
	options := make(map[string][]Instrument)
	futures := make(map[string][]Instrument)
	var unclassified []string
	for symbol, inst := range items {
		inst.Symbol = symbol
		if IsOption(symbol) {
			root, ok := OptionRoot(symbol)
			if !ok {
				unclassified = append(unclassified, symbol)
				continue
			}
			options[root] = append(options[root], inst)
		} else {
			futures[inst.Exchange] = append(futures[inst.Exchange], inst)
		}
	}
	if items == nil {
		items = map[string]Instrument{}
	}
	c.mu.Lock()
	c.items = items
	c.optionsByRoot = options
	c.futuresByExchange = futures
	c.unclassified = unclassified
	c.mu.Unlock()
}

// Get 按代码取合约，返回副本。
func (c *Catalog) Get(symbol string) (Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inst, ok := c.items[symbol]
	if ok {
		inst.Symbol = symbol
	}
	return inst, ok
}

// Has 判断合约是否存在。
func (c *Catalog) Has(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.items[symbol]
	return ok
}

// Len 当前合约条数。
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Options 返回全部期权索引；root 非空时只返回该标的的期权。
func (c *Catalog) Options(root string) map[string][]Instrument {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if root != "" {
		if list, ok := c.optionsByRoot[root]; ok {
			return map[string][]Instrument{root: append([]Instrument(nil), list...)}
		}
		return map[string][]Instrument{}
	}
	out := make(map[string][]Instrument, len(c.optionsByRoot))
	for k, v := range c.optionsByRoot {
		out[k] = append([]Instrument(nil), v...)
	}
	return out
}

// Futures 返回全部期货索引；exchange 非空时只返回该交易所的期货。
func (c *Catalog) Futures(exchange string) map[string][]Instrument {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if exchange != "" {
		if list, ok := c.futuresByExchange[exchange]; ok {
			return map[string][]Instrument{exchange: append([]Instrument(nil), list...)}
		}
		return map[string][]Instrument{}
	}
	out := make(map[string][]Instrument, len(c.futuresByExchange))
	for k, v := range c.futuresByExchange {
		out[k] = append([]Instrument(nil), v...)
	}
	return out
}

// Unclassified 返回两个提取模式都不匹配的期权代码，仅用于日志与排查。
func (c *Catalog) Unclassified() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.unclassified...)
}
