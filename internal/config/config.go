package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	Webhook    WebhookConfig    `mapstructure:"webhook"`
	FilterSync FilterSyncConfig `mapstructure:"filter_sync"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	Room       RoomConfig       `mapstructure:"room"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

// DatabaseConfig configures the optional Postgres sink for the room
// lifecycle audit log. If Host is empty the audit sink is a no-op.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	TimeZone        string        `mapstructure:"timezone"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig configures the KV store backing room storage and the
// wallet index.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// WebhookConfig holds the HMAC secret used to verify inbound
// wallet-activity webhooks.
type WebhookConfig struct {
	SigningSecret string `mapstructure:"signing_secret"`
}

// FilterSyncConfig holds the upstream provider credentials used to
// reconcile the webhook address filter. Empty KeyName/PrivateKey
// means filter sync is skipped silently (spec §4.8).
type FilterSyncConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	KeyName    string        `mapstructure:"key_name"`
	PrivateKey string        `mapstructure:"private_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// TelegramConfig configures the HTTP client used for external push
// delivery; the per-room webhook URL itself lives in RoomConfig.
type TelegramConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type WebSocketConfig struct {
	ReadBufferSize    int           `mapstructure:"read_buffer_size"`
	WriteBufferSize   int           `mapstructure:"write_buffer_size"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	PongWait          time.Duration `mapstructure:"pong_wait"`
	PingPeriod        time.Duration `mapstructure:"ping_period"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
}

type RoomConfig struct {
	DefaultLifetimeHours int           `mapstructure:"default_lifetime_hours"`
	JanitorInterval      time.Duration `mapstructure:"janitor_interval"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

var globalConfig *Config

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

func Get() *Config {
	return globalConfig
}
