package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"leaderboard_miniapp/internal/client"
	"leaderboard_miniapp/internal/repository"
	"leaderboard_miniapp/internal/session"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
	envFile      = ".env"
)

type Config struct {
	Server   ServerConfig      `yaml:"server"`
	Backend  client.Config     `yaml:"backend"`
	Database repository.Config `yaml:"database"`
	Journal  JournalConfig     `yaml:"journal"`
	Session  session.Config    `yaml:"session"`

	Telegram TelegramConfig `yaml:"telegram"`

	LogLevel string `yaml:"logLevel"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type JournalConfig struct {
	Retention     time.Duration `yaml:"retention"`
	PruneInterval time.Duration `yaml:"pruneInterval"`
}

type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	// Debug skips init data signature checks.
	Debug bool `yaml:"debug"`
	// AnnounceChatID enables claim announcements when non-zero.
	AnnounceChatID int64 `yaml:"announceChatID"`
}

func LoadConfig() (*Config, error) {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.AddConfigPath(configPath)
	v.SetConfigType(configFormat)

	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults also registers every key so APP_* env vars can override
// settings absent from config.yaml.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")

	v.SetDefault("backend.baseURL", client.DefaultBaseURL)
	v.SetDefault("backend.timeout", 0)

	v.SetDefault("database.driver", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.path", "journal.db")

	v.SetDefault("journal.retention", "168h")
	v.SetDefault("journal.pruneInterval", "1h")

	v.SetDefault("session.idleTimeout", session.DefaultIdleTimeout)
	v.SetDefault("session.sweepInterval", session.DefaultSweepInterval)

	v.SetDefault("telegram.botToken", "")
	v.SetDefault("telegram.debug", false)
	v.SetDefault("telegram.announceChatID", 0)

	v.SetDefault("logLevel", "info")
}
