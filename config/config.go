package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ctp-gateway-go/infrastructure/logger"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	BrokerID     string        `yaml:"broker_id"`
	InvestorID   string        `yaml:"investor_id"`
	Password     string        `yaml:"password"`
	AppID        string        `yaml:"app_id"`
	AuthCode     string        `yaml:"auth_code"`
	TraderServer string        `yaml:"trader_server"` // 交易桥接的 ws 地址
	QuoteServer  string        `yaml:"md_server"`     // 行情桥接的 ws 地址
	DataDir      string        `yaml:"data_dir"`      // 合约缓存目录
	TimeoutSec   int           `yaml:"timeout_sec"`   // 单次阻塞等待上限
	QueryFloorMs int           `yaml:"query_floor_ms"`
	Listen       string        `yaml:"listen"`
	MetricsAddr  string        `yaml:"metrics_addr"`
	Log          logger.Config `yaml:"log"`
	Schedule     Schedule      `yaml:"schedule"`
}

// Schedule 交易日历上的自动登录/登出时刻（HH:MM，本地时间）。
type Schedule struct {
	Enabled     bool     `yaml:"enabled"`
	LoginTimes  []string `yaml:"login_times"`
	LogoutTimes []string `yaml:"logout_times"`
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	cfg, err := load(path)
	if err != nil {
		return cfg, err
	}
	return cfg, Validate(cfg)
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env
// vars if present. The overrides apply before validation, so credentials may
// come entirely from the environment.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("CTP_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("CTP_AUTH_CODE"); v != "" {
		cfg.AuthCode = v
	}
	return cfg, Validate(cfg)
}

func load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.DataDir == "" {
		cfg.DataDir = "ctp_client_data"
	}
	if cfg.TimeoutSec == 0 {
		cfg.TimeoutSec = 10
	}
	if cfg.QueryFloorMs == 0 {
		cfg.QueryFloorMs = 1000
	}
	if cfg.Listen == "" {
		cfg.Listen = ":7000"
	}
	if cfg.Log.Level == "" {
		cfg.Log = logger.DefaultConfig()
	}
	if cfg.Schedule.Enabled && len(cfg.Schedule.LoginTimes) == 0 {
		cfg.Schedule.LoginTimes = []string{"08:40", "20:40"}
		cfg.Schedule.LogoutTimes = []string{"15:40", "02:40"}
	}
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.BrokerID == "" {
		return errors.New("broker_id is required")
	}
	if cfg.InvestorID == "" {
		return errors.New("investor_id is required")
	}
	if cfg.Password == "" {
		return errors.New("password is required (or CTP_PASSWORD)")
	}
	if cfg.AppID == "" || cfg.AuthCode == "" {
		return errors.New("app_id/auth_code is required (or CTP_AUTH_CODE)")
	}
	if cfg.TraderServer == "" {
		return errors.New("trader_server is required")
	}
	if cfg.QuoteServer == "" {
		return errors.New("md_server is required")
	}
	if cfg.TimeoutSec < 0 {
		return errors.New("timeout_sec must be >= 0")
	}
	if cfg.QueryFloorMs < 0 {
		return errors.New("query_floor_ms must be >= 0")
	}
	for _, ts := range append(append([]string{}, cfg.Schedule.LoginTimes...), cfg.Schedule.LogoutTimes...) {
		if !validClock(ts) {
			return fmt.Errorf("schedule time %q must be HH:MM", ts)
		}
	}
	return nil
}

func validClock(ts string) bool {
	if len(ts) != 5 || ts[2] != ':' {
		return false
	}
	hh := (int(ts[0]-'0'))*10 + int(ts[1]-'0')
	mm := (int(ts[3]-'0'))*10 + int(ts[4]-'0')
	for _, c := range []byte{ts[0], ts[1], ts[3], ts[4]} {
		if c < '0' || c > '9' {
			return false
		}
	}
	return hh < 24 && mm < 60
}
