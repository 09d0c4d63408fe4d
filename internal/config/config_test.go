package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
database_url: postgres://localhost/mothy
default_prefix: "!"
mode: AUDIT
filters:
  allowed_guilds: ["100"]
  links_blacklist: ['bit\.ly']
log_channels:
  blacklist_logs:
    "100": "900"
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("FILTERS_BYPASS_ROLES", "1, 2,,3")
	t.Setenv("IMAGE_SPAM_THRESHOLD", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultPrefix != "!" || !cfg.AuditOnly() {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if len(cfg.Filters.BypassRoles) != 3 || cfg.Filters.BypassRoles[1] != "2" {
		t.Fatalf("unexpected bypass roles %q", cfg.Filters.BypassRoles)
	}
	if cfg.LogChannels.BlacklistLogs["100"] != "900" || cfg.Filters.LinksBlacklist[0] != `bit\.ly` {
		t.Fatalf("unexpected filter config %+v", cfg.Filters)
	}
	if cfg.Filters.ImageSpamThreshold != 3 {
		t.Fatalf("expected threshold fallback, got %d", cfg.Filters.ImageSpamThreshold)
	}
	if cfg.EmbedColors.Negative != 0xFF0000 {
		t.Fatalf("expected default colours to survive")
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("MOTHY_TOKEN", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/mothy")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing token error")
	}

	t.Setenv("MOTHY_TOKEN", "token")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected missing database error")
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("warn") != zapcore.WarnLevel || parseLevel("bogus") != zapcore.InfoLevel {
		t.Fatalf("unexpected level mapping")
	}
	if _, err := BuildLogger("debug"); err != nil {
		t.Fatalf("build logger: %v", err)
	}
}
