package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type AppConfig struct {
	Env                 string `mapstructure:"env"`
	Port                int    `mapstructure:"port"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `mapstructure:"idle_timeout_seconds"`
	Storage             string `mapstructure:"storage"` // mongo | memory
	CORSOrigins         string `mapstructure:"cors_origins"`
	BodyLimitBytes      int    `mapstructure:"body_limit_bytes"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
	CookieName       string `mapstructure:"cookie_name"`
	CookieSecure     bool   `mapstructure:"cookie_secure"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	TopicChat  string   `mapstructure:"topic_chat"`
	TopicStore string   `mapstructure:"topic_store"`
}

type WSConfig struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
	TypingTimeoutSeconds int   `mapstructure:"typing_timeout_seconds"`
	PresenceTTLSeconds   int   `mapstructure:"presence_ttl_seconds"`
	EventsPerSecond      int   `mapstructure:"events_per_second"`
	SendBuffer           int   `mapstructure:"send_buffer"`
}

type RateLimitConfig struct {
	PerMinute int `mapstructure:"per_minute"`
	Burst     int `mapstructure:"burst"`
}

type S3Config struct {
	Region            string `mapstructure:"region"`
	Bucket            string `mapstructure:"bucket"`
	PresignTTLMinutes int    `mapstructure:"presign_ttl_minutes"`
	PublicBaseURL     string `mapstructure:"public_base_url"`
}

type SecurityConfig struct {
	PasswordHashCost int `mapstructure:"password_hash_cost"`
}

type ChatConfig struct {
	DefaultPageSize  int `mapstructure:"default_page_size"`
	MaxPageSize      int `mapstructure:"max_page_size"`
	MaxMessageLength int `mapstructure:"max_message_length"`
}

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	WS        WSConfig        `mapstructure:"ws"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	S3        S3Config        `mapstructure:"s3"`
	Security  SecurityConfig  `mapstructure:"security"`
	Chat      ChatConfig      `mapstructure:"chat"`

	// derived
	ReadTimeout   time.Duration `mapstructure:"-"`
	WriteTimeout  time.Duration `mapstructure:"-"`
	IdleTimeout   time.Duration `mapstructure:"-"`
	AccessTTL     time.Duration `mapstructure:"-"`
	PingInterval  time.Duration `mapstructure:"-"`
	WriteDeadline time.Duration `mapstructure:"-"`
	TypingTimeout time.Duration `mapstructure:"-"`
	PresenceTTL   time.Duration `mapstructure:"-"`
	PresignTTL    time.Duration `mapstructure:"-"`
}

const envPrefix = "THRIFTIFY"

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.read_timeout_seconds", 15)
	v.SetDefault("app.write_timeout_seconds", 15)
	v.SetDefault("app.idle_timeout_seconds", 60)
	v.SetDefault("app.storage", "mongo")
	v.SetDefault("app.cors_origins", "http://localhost:5173")
	v.SetDefault("app.body_limit_bytes", 1<<20)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_ttl_minutes", 60*24)
	v.SetDefault("jwt.cookie_name", "accessToken")
	v.SetDefault("jwt.cookie_secure", false)

	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "thriftify")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "thriftify")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_chat", "thriftify.chat")
	v.SetDefault("kafka.topic_store", "thriftify.store")

	v.SetDefault("ws.ping_interval_seconds", 25)
	v.SetDefault("ws.write_deadline_seconds", 10)
	v.SetDefault("ws.max_message_size_bytes", 64*1024)
	v.SetDefault("ws.typing_timeout_seconds", 6)
	v.SetDefault("ws.presence_ttl_seconds", 90)
	v.SetDefault("ws.events_per_second", 20)
	v.SetDefault("ws.send_buffer", 256)

	v.SetDefault("ratelimit.per_minute", 300)
	v.SetDefault("ratelimit.burst", 30)

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.presign_ttl_minutes", 15)
	v.SetDefault("s3.public_base_url", "")

	v.SetDefault("security.password_hash_cost", 10)

	v.SetDefault("chat.default_page_size", 50)
	v.SetDefault("chat.max_page_size", 100)
	v.SetDefault("chat.max_message_length", 5000)
}

// Load reads config from an optional YAML file and the environment.
// Env vars use the THRIFTIFY_ prefix with dots replaced, e.g. THRIFTIFY_JWT_SECRET.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.derive()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) derive() {
	c.ReadTimeout = time.Duration(c.App.ReadTimeoutSeconds) * time.Second
	c.WriteTimeout = time.Duration(c.App.WriteTimeoutSeconds) * time.Second
	c.IdleTimeout = time.Duration(c.App.IdleTimeoutSeconds) * time.Second
	c.AccessTTL = time.Duration(c.JWT.AccessTTLMinutes) * time.Minute
	c.PingInterval = time.Duration(c.WS.PingIntervalSeconds) * time.Second
	c.WriteDeadline = time.Duration(c.WS.WriteDeadlineSeconds) * time.Second
	c.TypingTimeout = time.Duration(c.WS.TypingTimeoutSeconds) * time.Second
	c.PresenceTTL = time.Duration(c.WS.PresenceTTLSeconds) * time.Second
	c.PresignTTL = time.Duration(c.S3.PresignTTLMinutes) * time.Minute
	c.App.Storage = strings.ToLower(strings.TrimSpace(c.App.Storage))
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required (THRIFTIFY_JWT_SECRET)")
	}
	switch c.App.Storage {
	case "mongo":
		if c.Mongo.URI == "" {
			return errors.New("mongo.uri is required when app.storage is mongo")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown app.storage %q", c.App.Storage)
	}
	if c.Chat.DefaultPageSize <= 0 || c.Chat.MaxPageSize <= 0 {
		return errors.New("chat page sizes must be positive")
	}
	if c.Chat.DefaultPageSize > c.Chat.MaxPageSize {
		return errors.New("chat.default_page_size exceeds chat.max_page_size")
	}
	if c.AccessTTL <= 0 {
		return errors.New("jwt.access_ttl_minutes must be positive")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development" || c.App.Env == "test"
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c *Config) RedisEnabled() bool { return c.Redis.Addr != "" }

func (c *Config) KafkaEnabled() bool { return len(c.Kafka.Brokers) > 0 }

func (c *Config) S3Enabled() bool { return c.S3.Bucket != "" }
