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
	DiscordToken  string           `yaml:"discord_token"`
	DatabasePath  string           `yaml:"database_path"`
	LogLevel      string           `yaml:"log_level"`
	RetentionDays int              `yaml:"retention_days"`
	Health        HealthConfig     `yaml:"health"`
	Moderation    ModerationConfig `yaml:"moderation"`
	Welcome       WelcomeConfig    `yaml:"welcome"`
	Economy       EconomyConfig    `yaml:"economy"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

type ModerationConfig struct {
	// Fallback log channel when a guild has not configured one.
	DefaultLogChannel string `yaml:"default_log_channel"`
	// How long an unauthorized ban-class punishment waits for approval
	// before it expires. The interim timeout uses the same window.
	ApprovalWindowHours int         `yaml:"approval_window_hours"`
	DMOnInfraction      bool        `yaml:"dm_on_infraction"`
	EmbedColors         EmbedColors `yaml:"embed_colors"`
}

type WelcomeConfig struct {
	Enabled               bool   `yaml:"enabled"`
	DefaultChannel        string `yaml:"default_channel"`
	MemberCountNameFormat string `yaml:"member_count_name_format"`
}

type EconomyConfig struct {
	StartingBalance int64 `yaml:"starting_balance"`
	LeaderboardSize int   `yaml:"leaderboard_size"`
}

type EmbedColors struct {
	Log     int `yaml:"log"`
	Public  int `yaml:"public"`
	Change  int `yaml:"change"`
	Welcome int `yaml:"welcome"`
	Error   int `yaml:"error"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:  "/data/warden.db",
		LogLevel:      "info",
		RetentionDays: 90,
		Health:        HealthConfig{Enabled: false, Addr: ":8080"},
		Moderation: ModerationConfig{
			ApprovalWindowHours: 24,
			DMOnInfraction:      true,
			EmbedColors: EmbedColors{
				Log:     0xF59E0B,
				Public:  0x3B82F6,
				Change:  0x8B5CF6,
				Welcome: 0x22C55E,
				Error:   0xEF4444,
			},
		},
		Welcome: WelcomeConfig{
			Enabled:               true,
			MemberCountNameFormat: "Members: %d",
		},
		Economy: EconomyConfig{
			StartingBalance: 1000,
			LeaderboardSize: 10,
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
	if cfg.Moderation.ApprovalWindowHours <= 0 {
		cfg.Moderation.ApprovalWindowHours = 24
	}
	if cfg.Economy.LeaderboardSize <= 0 {
		cfg.Economy.LeaderboardSize = 10
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Moderation.DefaultLogChannel = envString("DEFAULT_LOG_CHANNEL", cfg.Moderation.DefaultLogChannel)
	cfg.Moderation.ApprovalWindowHours = envInt("APPROVAL_WINDOW_HOURS", cfg.Moderation.ApprovalWindowHours)
	cfg.Moderation.DMOnInfraction = envBool("DM_ON_INFRACTION", cfg.Moderation.DMOnInfraction)
	cfg.Welcome.Enabled = envBool("WELCOME_ENABLED", cfg.Welcome.Enabled)
	cfg.Welcome.DefaultChannel = envString("DEFAULT_WELCOME_CHANNEL", cfg.Welcome.DefaultChannel)
	cfg.Economy.StartingBalance = int64(envInt("STARTING_BALANCE", int(cfg.Economy.StartingBalance)))
	cfg.Economy.LeaderboardSize = envInt("LEADERBOARD_SIZE", cfg.Economy.LeaderboardSize)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

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
