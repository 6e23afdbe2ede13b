package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KILLS_MAX", "")
	t.Setenv("SETTLE_DELAY", "")
	t.Setenv("GSI_ADDR", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.KillsMax != DefaultKillsMax {
		t.Errorf("KillsMax = %d, want %d", cfg.KillsMax, DefaultKillsMax)
	}
	if cfg.SettleDelay != 2500*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 2.5s", cfg.SettleDelay)
	}
	if cfg.GSIAddr != "127.0.0.1:3000" {
		t.Errorf("GSIAddr = %q", cfg.GSIAddr)
	}
	if cfg.LeetifyPollInterval != 15*time.Minute {
		t.Errorf("LeetifyPollInterval = %v, want 15m", cfg.LeetifyPollInterval)
	}
}

func TestLoadKillsMaxBounds(t *testing.T) {
	t.Setenv("KILLS_MAX", "99")
	if _, err := Load(); err == nil {
		t.Error("expected error for out-of-range KILLS_MAX")
	}
	t.Setenv("KILLS_MAX", "abc")
	if _, err := Load(); err == nil {
		t.Error("expected error for non-numeric KILLS_MAX")
	}
	t.Setenv("KILLS_MAX", "0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.KillsMax != 0 {
		t.Errorf("KillsMax = %d, want 0", cfg.KillsMax)
	}
}

func TestValidateDiscord(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "tok")
	t.Setenv("TARGET_CHANNEL_ID", "123456")
	cfg, _ := Load()
	if err := cfg.ValidateDiscord(); err != nil {
		t.Errorf("expected valid discord config, got %v", err)
	}
	if err := os.Unsetenv("DISCORD_TOKEN"); err != nil {
		t.Fatalf("failed to unset DISCORD_TOKEN: %v", err)
	}
	cfg, _ = Load()
	if err := cfg.ValidateDiscord(); err == nil {
		t.Errorf("expected error when missing discord envs")
	}
}

func TestDevModeParsing(t *testing.T) {
	for _, v := range []string{"1", "true", "YES"} {
		t.Setenv("DEV_MODE", v)
		cfg, _ := Load()
		if !cfg.DevMode {
			t.Errorf("DEV_MODE=%q should enable dev mode", v)
		}
	}
	t.Setenv("DEV_MODE", "0")
	cfg, _ := Load()
	if cfg.DevMode {
		t.Error("DEV_MODE=0 should disable dev mode")
	}
}

func TestLeetifyEnabled(t *testing.T) {
	t.Setenv("LEETIFY_TOKEN", "tok")
	t.Setenv("TARGET_STEAM64", "76561198000000000")
	cfg, _ := Load()
	if !cfg.LeetifyEnabled() {
		t.Error("expected leetify enabled")
	}
	t.Setenv("LEETIFY_TOKEN", "")
	cfg, _ = Load()
	if cfg.LeetifyEnabled() {
		t.Error("expected leetify disabled without token")
	}
}
