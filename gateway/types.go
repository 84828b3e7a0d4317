package gateway

// 调用方可见的方向取值。
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// Account 资金账户快照，每次查询重新获取，不缓存。
type Account struct {
	Balance   float64 `json:"balance"`
	Margin    float64 `json:"margin"`
	Available float64 `json:"available"`
}

// Order 当日报单快照中的一条，键为 "单号@合约号"。
// Volume 为带符号原始数量：正数开仓、负数平仓（方向已按平仓翻转）。
type Order struct {
	Code         string  `json:"code"`
	Direction    string  `json:"direction"`
	Price        float64 `json:"price"`
	Volume       int     `json:"volume"`
	VolumeTraded int     `json:"volume_traded"`
	IsActive     bool    `json:"is_active"`
}

// Position 持仓快照中的一条。
type Position struct {
	Code      string  `json:"code"`
	Direction string  `json:"direction"`
	Volume    int     `json:"volume"`
	Margin    float64 `json:"margin"`
	Cost      float64 `json:"cost"`
}
