// Package api 把 HTTP 查询参数翻译为网关操作并序列化结果。
// 纯粹的胶水层：任何操作错误都以 {"error": ...} 载荷返回而不是故障。
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"ctp-gateway-go/gateway"
	"ctp-gateway-go/infrastructure/logger"
)

// Server 注册全部交易/行情端点。
type Server struct {
	client *gateway.Client
	log    *logger.Logger
}

func NewServer(client *gateway.Client, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{client: client, log: log}
}

// Routes 返回挂载全部端点的处理器。
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/trade/ctp/login", s.handleLogin)
	mux.HandleFunc("/trade/ctp/logout", s.handleLogout)
	mux.HandleFunc("/trade/ctp/get_account", s.handleAccount)
	mux.HandleFunc("/trade/ctp/get_position", s.handlePositions)
	mux.HandleFunc("/trade/ctp/get_orders", s.handleOrders)
	mux.HandleFunc("/trade/ctp/order_limit", s.handleOrderLimit)
	mux.HandleFunc("/trade/ctp/order_market", s.handleOrderMarket)
	mux.HandleFunc("/trade/ctp/order_delete", s.handleOrderDelete)
	mux.HandleFunc("/trade/ctp/get_instruments_future", s.handleFutures)
	mux.HandleFunc("/trade/ctp/get_instruments_option", s.handleOptions)
	mux.HandleFunc("/trade/ctp/get_instruments_detail", s.handleInstrumentDetail)
	mux.HandleFunc("/trade/ctp/subscribe", s.handleSubscribe)
	mux.HandleFunc("/trade/ctp/unsubscribe", s.handleUnsubscribe)
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeError 错误统一为 200 + error 载荷，调用方按内容判断。
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, map[string]string{"error": err.Error()})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := s.client.Login(); err != nil {
		s.log.Error("登录失败", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"time": time.Now().Format("2006-01-02 15:04:05")})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.client.Logout(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"time": time.Now().Format("2006-01-02 15:04:05")})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	account, err := s.client.Account()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, account)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.client.Positions()
	if err != nil {
		writeError(w, err)
		return
	}
	if positions == nil {
		positions = []gateway.Position{}
	}
	writeJSON(w, positions)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.client.Orders()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, orders)
}

func (s *Server) handleOrderLimit(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	direction := queryDefault(r, "direction", gateway.DirectionLong)
	volume, err := strconv.Atoi(queryDefault(r, "volume", "1"))
	if err != nil {
		writeError(w, &gateway.ValidationError{Msg: "volume必须是整数"})
		return
	}
	price, err := strconv.ParseFloat(queryDefault(r, "price", "0"), 64)
	if err != nil {
		writeError(w, &gateway.ValidationError{Msg: "price必须是数字"})
		return
	}
	orderID, err := s.client.PlaceLimit(code, direction, volume, price)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, orderID)
}

func (s *Server) handleOrderMarket(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	direction := queryDefault(r, "direction", gateway.DirectionLong)
	volume, err := strconv.Atoi(queryDefault(r, "volume", "1"))
	if err != nil {
		writeError(w, &gateway.ValidationError{Msg: "volume必须是整数"})
		return
	}
	traded, err := s.client.PlaceMarket(code, direction, volume)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, traded)
}

func (s *Server) handleOrderDelete(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if err := s.client.CancelOrder(orderID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"order_id": orderID})
}

func (s *Server) handleFutures(w http.ResponseWriter, r *http.Request) {
	futures, err := s.client.FutureInstruments(r.URL.Query().Get("exchange"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, futures)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	options, err := s.client.OptionInstruments(r.URL.Query().Get("future"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, options)
}

func (s *Server) handleInstrumentDetail(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, map[string]string{})
		return
	}
	inst, err := s.client.Instrument(code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, inst)
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	codes := splitCodes(r.URL.Query().Get("codes"))
	if len(codes) == 0 {
		writeJSON(w, map[string]string{})
		return
	}
	if err := s.client.Subscribe(codes); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string][]string{"subscribed": codes})
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	codes := splitCodes(r.URL.Query().Get("codes"))
	if len(codes) == 0 {
		writeJSON(w, map[string]string{})
		return
	}
	if err := s.client.Unsubscribe(codes); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string][]string{"unsubscribed": codes})
}

func queryDefault(r *http.Request, key, fallback string) string {
	if v := r.URL.Query().Get(key); v != "" {
		return v
	}
	return fallback
}

func splitCodes(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	codes := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			codes = append(codes, p)
		}
	}
	return codes
}
