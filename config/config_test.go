package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()
	if cfg.InstID != "XRP-USDT-SWAP" {
		t.Errorf("Expected XRP-USDT-SWAP, got %s", cfg.InstID)
	}
	if cfg.MaxTradesPerHour != 3 || cfg.CoolDown != 300*time.Second {
		t.Errorf("unexpected throttle defaults: %d %v", cfg.MaxTradesPerHour, cfg.CoolDown)
	}
	if cfg.PollInterval != 5*time.Minute || cfg.ExitInterval != 30*time.Second || cfg.ErrorBackoff != 5*time.Second {
		t.Errorf("unexpected loop defaults: %v %v %v", cfg.PollInterval, cfg.ExitInterval, cfg.ErrorBackoff)
	}
	if cfg.EnforceMaxOpen {
		t.Errorf("max open check should be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("COOL_DOWN", "120")
	t.Setenv("EXIT_INTERVAL", "45s")
	t.Setenv("ENTRY_POLICY", "Breakout")
	t.Setenv("FILTER_RSI", "yes")
	t.Setenv("LEVERAGE", "not-a-number")

	cfg := LoadConfig()
	if cfg.CoolDown != 120*time.Second {
		t.Errorf("Expected 2m cool down, got %v", cfg.CoolDown)
	}
	if cfg.ExitInterval != 45*time.Second {
		t.Errorf("Expected 45s exit interval, got %v", cfg.ExitInterval)
	}
	if cfg.EntryPolicy != "breakout" || !cfg.UseRSIFilter {
		t.Errorf("unexpected entry settings: %s %v", cfg.EntryPolicy, cfg.UseRSIFilter)
	}
	if cfg.Leverage != 50 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.Leverage)
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	cfg := LoadConfig()
	cfg.EntryPolicy = "scalp"
	cfg.OrderSize = 0
	cfg.TelegramToken = "token"

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"ENTRY_POLICY", "ORDER_SIZE", "TELEGRAM_CHAT_ID"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestLoadEnvFileKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("INST_ID=BTC-USDT-SWAP\nTIMEFRAME=1m\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INST_ID", "ETH-USDT-SWAP")
	t.Setenv("TIMEFRAME", "")
	os.Unsetenv("TIMEFRAME")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("TIMEFRAME") })

	cfg := LoadConfig()
	if cfg.InstID != "ETH-USDT-SWAP" {
		t.Errorf("existing env should win, got %s", cfg.InstID)
	}
	if cfg.Timeframe != "1m" {
		t.Errorf("Expected timeframe from file, got %s", cfg.Timeframe)
	}
	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing file should be ignored: %v", err)
	}
}
