package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const appName = "intentio"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Timer    TimerConfig    `mapstructure:"timer"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Auth     AuthConfig     `mapstructure:"auth"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Events   EventsConfig   `mapstructure:"events"`
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path          string `mapstructure:"path"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

type TimerConfig struct {
	PolicyPath     string        `mapstructure:"policy_path"`
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	Secret         string        `mapstructure:"secret"`
	PassphraseHash string        `mapstructure:"passphrase_hash"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
}

type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

type EventsConfig struct {
	Buffer int `mapstructure:"buffer"`
}

// Load reads the optional config file at path, then INTENTIO_* environment
// variables, on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("INTENTIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORS.Origins = splitList(cfg.CORS.Origins)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	dataDir := defaultDataDir()

	v.SetDefault("server.address", "127.0.0.1:4820")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.path", filepath.Join(dataDir, "intentio.db"))
	v.SetDefault("database.migrations_dir", "")

	v.SetDefault("timer.policy_path", filepath.Join(dataDir, "timer.yaml"))
	v.SetDefault("timer.tick_interval", "1s")
	v.SetDefault("timer.persist_timeout", "5s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.passphrase_hash", "")
	v.SetDefault("auth.token_ttl", "720h")

	v.SetDefault("cors.origins", []string{"http://localhost:1420", "tauri://localhost"})

	v.SetDefault("events.buffer", 64)
}

func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Server.Address) == "" {
		return fmt.Errorf("server.address is required")
	}
	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if cfg.Timer.PolicyPath == "" {
		return fmt.Errorf("timer.policy_path is required")
	}
	if cfg.Timer.TickInterval <= 0 {
		return fmt.Errorf("timer.tick_interval must be positive")
	}
	if cfg.Timer.PersistTimeout <= 0 {
		return fmt.Errorf("timer.persist_timeout must be positive")
	}
	if cfg.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if cfg.Events.Buffer < 1 {
		return fmt.Errorf("events.buffer must be at least 1")
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging.format: %s", cfg.Logging.Format)
	}
	return nil
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "data")
	}
	return filepath.Join(dir, appName)
}

// splitList accepts both YAML lists and a comma-separated environment value.
func splitList(values []string) []string {
	items := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				items = append(items, trimmed)
			}
		}
	}
	return items
}
