package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"ctp-gateway-go/config"
	"ctp-gateway-go/gateway"
	"ctp-gateway-go/infrastructure/logger"
	"ctp-gateway-go/infrastructure/monitor"
	"ctp-gateway-go/instrument"
	"ctp-gateway-go/internal/api"
	"ctp-gateway-go/internal/sched"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	listen := flag.String("listen", "", "HTTP 监听地址，覆盖配置")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer lg.Close()

	mon := monitor.New(monitor.DefaultConfig())
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, mon, lg)
	}

	client := gateway.NewClient(
		gateway.TradeConfig{
			BrokerID:   cfg.BrokerID,
			InvestorID: cfg.InvestorID,
			Password:   cfg.Password,
			AppID:      cfg.AppID,
			AuthCode:   cfg.AuthCode,
		},
		gateway.BridgeFactory{
			TradeURL: cfg.TraderServer,
			QuoteURL: cfg.QuoteServer,
			Logger:   lg.Named("bridge"),
		},
		gateway.TradeOptions{
			Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
			QueryFloor: time.Duration(cfg.QueryFloorMs) * time.Millisecond,
			Cache:      &instrument.Store{Dir: cfg.DataDir},
			Logger:     lg.Named("gateway"),
			Monitor:    mon,
		},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Schedule.Enabled {
		runner := &sched.Runner{
			LoginTimes:  cfg.Schedule.LoginTimes,
			LogoutTimes: cfg.Schedule.LogoutTimes,
			Login:       client.Login,
			Logout:      client.Logout,
			Logger:      lg.Named("sched"),
		}
		go func() {
			if err := runner.Start(ctx); err != nil && err != context.Canceled {
				lg.Error("调度器退出", zap.Error(err))
			}
		}()
	}

	watcher := config.Watcher{Path: *cfgPath, Cooldown: time.Second}
	go func() {
		err := watcher.Start(ctx, func(next config.AppConfig) {
			lg.Info("配置已重载，凭据与地址下次登录生效",
				zap.String("path", *cfgPath),
				zap.String("broker_id", next.BrokerID))
		})
		if err != nil && err != context.Canceled {
			lg.Warn("配置监听退出", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: api.NewServer(client, lg.Named("api")).Routes(),
	}
	go func() {
		lg.Info("HTTP 服务启动", zap.String("addr", cfg.Listen))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Error("HTTP 服务退出", zap.Error(err))
			cancel()
		}
	}()

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	go watchdog(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		lg.Info("收到退出信号", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	if client.LoggedIn() {
		if err := client.Logout(); err != nil {
			lg.Error("登出失败", zap.Error(err))
		}
	}
}

// watchdog 周期性喂 systemd 看门狗；未启用时直接返回。
func watchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}

func serveMetrics(addr string, mon *monitor.Monitor, lg *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", mon.Handler())
	lg.Info("metrics 服务启动", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		lg.Error("metrics 服务退出", zap.Error(err))
	}
}
