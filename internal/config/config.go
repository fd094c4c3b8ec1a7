package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	Secret     string        `mapstructure:"secret"`

	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Backplane BackplaneConfig `mapstructure:"backplane"`
	LiveKit   LiveKitConfig   `mapstructure:"livekit"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Calls     CallsConfig     `mapstructure:"calls"`
	Hub       HubConfig       `mapstructure:"hub"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Auth      AuthConfig      `mapstructure:"auth"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Debug  bool   `mapstructure:"debug"`
}

type BackplaneConfig struct {
	Driver         string        `mapstructure:"driver"`
	RedisURL       string        `mapstructure:"redis_url"`
	NATSURL        string        `mapstructure:"nats_url"`
	Channel        string        `mapstructure:"channel"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

type LiveKitConfig struct {
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type ChatConfig struct {
	MaxContentLength int  `mapstructure:"max_content_length"`
	HistoryLimit     int  `mapstructure:"history_limit"`
	AckFailures      bool `mapstructure:"ack_failures"`
}

type CallsConfig struct {
	OfflinePolicy string        `mapstructure:"offline_policy"`
	RingTimeout   time.Duration `mapstructure:"ring_timeout"`
}

type HubConfig struct {
	SlowConsumer string `mapstructure:"slow_consumer"`
}

type RateLimitConfig struct {
	Events   int           `mapstructure:"events"`
	Interval time.Duration `mapstructure:"interval"`
}

type AuthConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 3001)
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "")
	v.SetDefault("allowed_origins", []string{})
	v.SetDefault("shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "huddle.db")
	v.SetDefault("database.debug", false)

	v.SetDefault("backplane.driver", "none")
	v.SetDefault("backplane.redis_url", "redis://localhost:6379/0")
	v.SetDefault("backplane.nats_url", "nats://localhost:4222")
	v.SetDefault("backplane.channel", "huddle.events")
	v.SetDefault("backplane.publish_timeout", "2s")

	v.SetDefault("livekit.url", "")
	v.SetDefault("livekit.api_key", "")
	v.SetDefault("livekit.api_secret", "")
	v.SetDefault("livekit.token_ttl", "6h")

	v.SetDefault("chat.max_content_length", 4000)
	v.SetDefault("chat.history_limit", 500)
	v.SetDefault("chat.ack_failures", false)

	v.SetDefault("calls.offline_policy", "silent")
	v.SetDefault("calls.ring_timeout", "0s")

	v.SetDefault("hub.slow_consumer", "drop")

	v.SetDefault("rate_limit.events", 20)
	v.SetDefault("rate_limit.interval", "1s")

	v.SetDefault("auth.bcrypt_cost", 12)
}

// Load reads config/config.<CONFIG_ENV>.yaml over the defaults. HUDDLE_*
// env vars win over both; a .env file, when present, feeds the env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("HUDDLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("send_buffer must be positive"))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	switch c.Backplane.Driver {
	case "none", "memory", "redis", "nats":
	default:
		errs = append(errs, fmt.Errorf("unknown backplane.driver %q", c.Backplane.Driver))
	}
	switch c.Calls.OfflinePolicy {
	case "silent", "notify":
	default:
		errs = append(errs, fmt.Errorf("unknown calls.offline_policy %q", c.Calls.OfflinePolicy))
	}
	switch c.Hub.SlowConsumer {
	case "drop", "kick":
	default:
		errs = append(errs, fmt.Errorf("unknown hub.slow_consumer %q", c.Hub.SlowConsumer))
	}
	if c.Calls.RingTimeout < 0 {
		errs = append(errs, errors.New("calls.ring_timeout must not be negative"))
	}
	return errors.Join(errs...)
}
