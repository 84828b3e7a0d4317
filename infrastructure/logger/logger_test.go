package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")
	lg, err := New(Config{Level: "info", Outputs: []string{"file"}, OutputFile: path, Format: "json"})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	lg.Info("已登录交易会话")
	_ = lg.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), "已登录交易会话") {
		t.Fatalf("log file missing entry: %s", raw)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(Config{Level: "verbose"}); err == nil {
		t.Fatal("expected error on bad level")
	}
}

func TestNopAndNamed(t *testing.T) {
	lg := Nop()
	lg.Named("gateway").Info("discarded")
}
