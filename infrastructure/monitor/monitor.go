package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Monitor Prometheus监控指标收集器
type Monitor struct {
	registry *prometheus.Registry

	// 会话指标
	logins      prometheus.Counter
	disconnects prometheus.Counter

	// 请求指标
	requests       *prometheus.CounterVec
	timeouts       *prometheus.CounterVec
	rejects        *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec

	// 报单指标
	ordersInserted prometheus.Counter
	ordersCanceled prometheus.Counter
	tradedVolume   prometheus.Counter

	// 行情/合约指标
	ticks       prometheus.Counter
	catalogSize prometheus.Gauge
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "ctp",
		Subsystem: "gateway",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Monitor{
		registry: reg,

		logins: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "logins_total",
			Help:      "会话登录总数",
		}),
		disconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "disconnects_total",
			Help:      "连接断开总数",
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "requests_total",
			Help:      "按种类统计的请求总数",
		}, []string{"kind"}),
		timeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "timeouts_total",
			Help:      "按种类统计的等待超时总数",
		}, []string{"kind"}),
		rejects: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "rejects_total",
			Help:      "按种类统计的柜台拒绝总数",
		}, []string{"kind"}),
		requestLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "request_latency_seconds",
			Help:      "请求从发出到解除的延迟分布（秒）",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"kind"}),
		ordersInserted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "orders_inserted_total",
			Help:      "报单录入总数",
		}),
		ordersCanceled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "orders_canceled_total",
			Help:      "报单撤销总数",
		}),
		tradedVolume: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "traded_volume_total",
			Help:      "累计成交量",
		}),
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "ticks_total",
			Help:      "行情推送总数",
		}),
		catalogSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "catalog_size",
			Help:      "当前合约表条目数",
		}),
	}
}

// Handler 返回/metrics的HTTP处理器
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// 以下记录方法均可在nil接收者上调用，便于测试中省略监控。

func (m *Monitor) RecordLogin() {
	if m != nil {
		m.logins.Inc()
	}
}

func (m *Monitor) RecordDisconnect() {
	if m != nil {
		m.disconnects.Inc()
	}
}

func (m *Monitor) RecordRequest(kind string) {
	if m != nil {
		m.requests.WithLabelValues(kind).Inc()
	}
}

func (m *Monitor) RecordTimeout(kind string) {
	if m != nil {
		m.timeouts.WithLabelValues(kind).Inc()
	}
}

func (m *Monitor) RecordReject(kind string) {
	if m != nil {
		m.rejects.WithLabelValues(kind).Inc()
	}
}

func (m *Monitor) ObserveLatency(kind string, seconds float64) {
	if m != nil {
		m.requestLatency.WithLabelValues(kind).Observe(seconds)
	}
}

func (m *Monitor) RecordOrderInserted() {
	if m != nil {
		m.ordersInserted.Inc()
	}
}

func (m *Monitor) RecordOrderCanceled() {
	if m != nil {
		m.ordersCanceled.Inc()
	}
}

func (m *Monitor) RecordTradedVolume(v int) {
	if m != nil {
		m.tradedVolume.Add(float64(v))
	}
}

func (m *Monitor) RecordTick() {
	if m != nil {
		m.ticks.Inc()
	}
}

func (m *Monitor) SetCatalogSize(n int) {
	if m != nil {
		m.catalogSize.Set(float64(n))
	}
}
