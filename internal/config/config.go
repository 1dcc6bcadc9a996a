package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. MOVEX_USER_ID.
const EnvPrefix = "MOVEX"

// Backend modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

type User struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

type Backend struct {
	Mode  string `mapstructure:"mode"`
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
	WSURL string `mapstructure:"ws_url"`
}

type Local struct {
	DBPath string `mapstructure:"db_path"`
}

type Chat struct {
	SendTimeout  time.Duration `mapstructure:"send_timeout"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
	MaxLength    int           `mapstructure:"max_length"`
	ClusterGap   time.Duration `mapstructure:"cluster_gap"`
	MatchWindow  time.Duration `mapstructure:"match_window"`
	PageSize     int           `mapstructure:"page_size"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	SettleDelay  time.Duration `mapstructure:"settle_delay"`
	Notify       bool          `mapstructure:"notify"`
}

type Log struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Config is the full client configuration.
type Config struct {
	User    User    `mapstructure:"user"`
	Backend Backend `mapstructure:"backend"`
	Local   Local   `mapstructure:"local"`
	Chat    Chat    `mapstructure:"chat"`
	Log     Log     `mapstructure:"log"`
}

// DefaultDir is where the config file and local database live.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "movex")
	}
	return ".movex"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("user.id", "")
	v.SetDefault("user.name", "")
	v.SetDefault("backend.mode", ModeLocal)
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.ws_url", "")
	v.SetDefault("local.db_path", filepath.Join(DefaultDir(), "chat.db"))
	v.SetDefault("chat.send_timeout", 8*time.Second)
	v.SetDefault("chat.cooldown", 400*time.Millisecond)
	v.SetDefault("chat.max_length", 2000)
	v.SetDefault("chat.cluster_gap", 5*time.Minute)
	v.SetDefault("chat.match_window", 5*time.Minute)
	v.SetDefault("chat.page_size", 30)
	v.SetDefault("chat.poll_interval", 3*time.Second)
	v.SetDefault("chat.settle_delay", 300*time.Millisecond)
	v.SetDefault("chat.notify", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load reads configuration from path (or movex.yaml in the working
// directory and DefaultDir when path is empty), a .env file if present,
// and MOVEX_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("movex")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would leave the client unusable.
func (c *Config) Validate() error {
	switch c.Backend.Mode {
	case ModeLocal:
		if c.Local.DBPath == "" {
			return fmt.Errorf("local.db_path is required in local mode")
		}
	case ModeRemote:
		if c.Backend.URL == "" {
			return fmt.Errorf("backend.url is required in remote mode")
		}
	default:
		return fmt.Errorf("unknown backend.mode %q (want %s or %s)", c.Backend.Mode, ModeLocal, ModeRemote)
	}
	if c.Chat.Cooldown < 0 || c.Chat.SendTimeout < 0 {
		return fmt.Errorf("chat durations must not be negative")
	}
	if c.Chat.MaxLength < 0 || c.Chat.PageSize < 0 {
		return fmt.Errorf("chat limits must not be negative")
	}
	return nil
}
