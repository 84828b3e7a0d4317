// Package sched 按交易日历定时触发登录/登出。
// 正确性与核心无关：错过的触发由下一个时刻补上。
package sched

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ctp-gateway-go/infrastructure/logger"
)

// Runner 每分钟对表一次；工作日命中登录时刻则登录，命中登出时刻则登出。
// 启动时若已处于交易时段内（日盘或夜盘），立即补一次登录。
type Runner struct {
	LoginTimes  []string // HH:MM，工作日一至五生效
	LogoutTimes []string // HH:MM，工作日一至六生效（夜盘跨日）
	Login       func() error
	Logout      func() error
	Logger      *logger.Logger

	now func() time.Time
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// Start 阻塞运行直到 ctx 结束。
func (r *Runner) Start(ctx context.Context) error {
	if r.Logger == nil {
		r.Logger = logger.Nop()
	}
	if r.inTradingWindow(r.clock()) {
		r.fire("login", r.Login)
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	fired := ""
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := r.clock()
			stamp := now.Format("2006-01-02 15:04")
			if stamp == fired {
				continue
			}
			clock := now.Format("15:04")
			if weekday(now) >= time.Monday && weekday(now) <= time.Friday && contains(r.LoginTimes, clock) {
				fired = stamp
				r.fire("login", r.Login)
			}
			if weekday(now) >= time.Monday && weekday(now) <= time.Saturday && contains(r.LogoutTimes, clock) {
				fired = stamp
				r.fire("logout", r.Logout)
			}
		}
	}
}

func (r *Runner) fire(name string, fn func() error) {
	if fn == nil {
		return
	}
	if err := fn(); err != nil {
		r.Logger.Error("定时任务失败", zap.String("task", name), zap.Error(err))
		return
	}
	r.Logger.Info("定时任务完成", zap.String("task", name))
}

// inTradingWindow 判断当前是否处于日盘（08:40–14:55）或
// 夜盘（20:40–次日02:25）时段内。
func (r *Runner) inTradingWindow(now time.Time) bool {
	if weekday(now) == time.Sunday {
		return false
	}
	clock := now.Format("15:04")
	day := clock > "08:40" && clock < "14:55"
	night := clock > "20:40" || clock < "02:25"
	return day || night
}

func weekday(t time.Time) time.Weekday {
	return t.Weekday()
}

func contains(times []string, clock string) bool {
	for _, ts := range times {
		if ts == clock {
			return true
		}
	}
	return false
}
