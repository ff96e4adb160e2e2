package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token-123")
	t.Setenv("DATA_DIR", filepath.Join(t.TempDir(), "data"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DiscordToken != "token-123" {
		t.Errorf("DiscordToken = %q", cfg.DiscordToken)
	}
	if cfg.CommandPrefix != "!" {
		t.Errorf("CommandPrefix = %q, want !", cfg.CommandPrefix)
	}
	if cfg.AudioFormat != "bestaudio/best" {
		t.Errorf("AudioFormat = %q", cfg.AudioFormat)
	}
	if !cfg.ReconnectOnDrop || cfg.MaxReconnectDelaySec != 5 {
		t.Errorf("reconnect policy = %v/%d", cfg.ReconnectOnDrop, cfg.MaxReconnectDelaySec)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "t")
	t.Setenv("DATA_DIR", t.TempDir())
	t.Setenv("COMMAND_PREFIX", "?")
	t.Setenv("RECONNECT_ON_DROP", "false")
	t.Setenv("MAX_RECONNECT_DELAY", "9")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CommandPrefix != "?" || cfg.ReconnectOnDrop || cfg.MaxReconnectDelaySec != 9 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadMissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("DATA_DIR", t.TempDir())

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing DISCORD_TOKEN")
	}
}
