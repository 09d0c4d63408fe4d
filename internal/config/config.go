package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken       string            `yaml:"discord_token"`
	DatabaseURL        string            `yaml:"database_url"`
	LogLevel           string            `yaml:"log_level"`
	DefaultPrefix      string            `yaml:"default_prefix"`
	Mode               string            `yaml:"mode"`
	RetentionDays      int               `yaml:"retention_days"`
	Health             HealthConfig      `yaml:"health"`
	Filters            FilterConfig      `yaml:"filters"`
	LogChannels        LogChannels       `yaml:"log_channels"`
	GuildNameOverrides map[string]string `yaml:"guild_name_overrides"`
	EmbedColors        EmbedColors       `yaml:"embed_colors"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type FilterConfig struct {
	AllowedGuilds      []string `yaml:"allowed_guilds"`
	BypassRoles        []string `yaml:"bypass_roles"`
	LinksBlacklistPath string   `yaml:"links_blacklist_path"`
	LinksBlacklist     []string `yaml:"links_blacklist"`
	ImageSpamThreshold int      `yaml:"image_spam_threshold"`
}

// LogChannels map a guild id to the channel id receiving each kind of log.
type LogChannels struct {
	Logs          map[string]string `yaml:"logs"`
	BlacklistLogs map[string]string `yaml:"blacklist_logs"`
	VoiceLogs     map[string]string `yaml:"voice_logs"`
}

type EmbedColors struct {
	Positive int `yaml:"positive"`
	Negative int `yaml:"negative"`
	Neutral  int `yaml:"neutral"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel:      "info",
		DefaultPrefix: "-",
		Mode:          "normal",
		RetentionDays: 30,
		Health:        HealthConfig{Enabled: false, Addr: ":8080"},
		Filters:       FilterConfig{ImageSpamThreshold: 3},
		EmbedColors: EmbedColors{
			Positive: 0x43B582,
			Negative: 0xFF0000,
			Neutral:  0x5865F2,
		},
	}
}

func Load() (Config, error) {
	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}

	cfg.Mode = normalizeMode(cfg.Mode)
	if cfg.Filters.ImageSpamThreshold <= 0 {
		cfg.Filters.ImageSpamThreshold = 3
	}
	return cfg, nil
}

// AuditOnly reports whether filters should log without deleting.
func (c Config) AuditOnly() bool {
	return c.Mode == "audit"
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", envString("MOTHY_TOKEN", cfg.DiscordToken))
	cfg.DatabaseURL = envString("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultPrefix = envString("DEFAULT_PREFIX", cfg.DefaultPrefix)
	cfg.Mode = envString("MODE", cfg.Mode)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Filters.AllowedGuilds = envList("FILTERS_ALLOWED_GUILDS", cfg.Filters.AllowedGuilds)
	cfg.Filters.BypassRoles = envList("FILTERS_BYPASS_ROLES", cfg.Filters.BypassRoles)
	cfg.Filters.LinksBlacklistPath = envString("LINKS_BLACKLIST_PATH", cfg.Filters.LinksBlacklistPath)
	cfg.Filters.ImageSpamThreshold = envInt("IMAGE_SPAM_THRESHOLD", cfg.Filters.ImageSpamThreshold)
	cfg.EmbedColors.Positive = envInt("EMBED_COLOR_POSITIVE", cfg.EmbedColors.Positive)
	cfg.EmbedColors.Negative = envInt("EMBED_COLOR_NEGATIVE", cfg.EmbedColors.Negative)
	cfg.EmbedColors.Neutral = envInt("EMBED_COLOR_NEUTRAL", cfg.EmbedColors.Neutral)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

// envList reads a comma separated list, dropping blank entries.
func envList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func normalizeMode(value string) string {
	switch strings.ToLower(value) {
	case "audit":
		return "audit"
	default:
		return "normal"
	}
}
