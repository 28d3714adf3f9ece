package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig
	Log          LogConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Embedding    EmbeddingConfig
	Matching     MatchingConfig
	Notification NotificationConfig
	Channels     ChannelsConfig
	Realtime     RealtimeConfig
	Auth         AuthConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

type LogConfig struct {
	JSON  bool
	Debug bool
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout        time.Duration
	PoolMaxConns          int32
	PoolMinConns          int32
	PoolMaxConnLifetime   time.Duration
	PoolMaxConnIdleTime   time.Duration
	PoolHealthCheckPeriod time.Duration
}

// RedisConfig is optional: an empty Addr means no broker, which switches
// notifications to inline delivery and streams to keep-alive only.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type EmbeddingConfig struct {
	GeminiAPIKey string
	Model        string
	RPS          float64
	Burst        int
	CacheSize    int
	CacheTTL     time.Duration
	Timeout      time.Duration
}

type MatchingConfig struct {
	PageSize int
}

type NotificationConfig struct {
	Stream         string
	Group          string
	RetryKey       string
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	ChannelTimeout time.Duration
	ClaimMinIdle   time.Duration
	PendingLockTTL time.Duration
	SweepSpec      string
	SweepLimit     int
}

type ChannelsConfig struct {
	SMTP     SMTPConfig
	Telegram TelegramConfig
	Twilio   TwilioConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type TelegramConfig struct {
	BotToken string
	BaseURL  string
}

type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string
	BaseURL      string
}

type RealtimeConfig struct {
	Channels  []string
	KeepAlive time.Duration
}

type AuthConfig struct {
	AccessSecret    string
	AccessExpiresIn time.Duration
	InternalToken   string
}

var errMissingRequiredEnv = errors.New("missing required environment variables")

func setDefaults(v *viper.Viper) {
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_CONNECT_TIMEOUT", 5*time.Second)
	v.SetDefault("DB_POOL_MAX_CONNS", 10)

	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("EMBEDDING_MODEL", "text-embedding-004")
	v.SetDefault("EMBEDDING_RPS", 5.0)
	v.SetDefault("EMBEDDING_BURST", 5)
	v.SetDefault("EMBEDDING_CACHE_SIZE", 1024)
	v.SetDefault("EMBEDDING_CACHE_TTL", time.Hour)
	v.SetDefault("EMBEDDING_TIMEOUT", 20*time.Second)

	v.SetDefault("MATCH_PAGE_SIZE", 500)

	v.SetDefault("NOTIFY_STREAM", "notifications")
	v.SetDefault("NOTIFY_GROUP", "notification-workers")
	v.SetDefault("NOTIFY_RETRY_KEY", "notifications:retry")
	v.SetDefault("NOTIFY_MAX_ATTEMPTS", 3)
	v.SetDefault("NOTIFY_BACKOFF_INITIAL", time.Second)
	v.SetDefault("NOTIFY_BACKOFF_MAX", time.Minute)
	v.SetDefault("CHANNEL_TIMEOUT", 10*time.Second)
	v.SetDefault("QUEUE_CLAIM_MIN_IDLE", 5*time.Minute)
	v.SetDefault("NOTIFY_PENDING_LOCK_TTL", 15*time.Minute)
	v.SetDefault("NOTIFY_SWEEP_SPEC", "*/5 * * * *")
	v.SetDefault("NOTIFY_SWEEP_LIMIT", 200)

	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("TELEGRAM_BASE_URL", "https://api.telegram.org")
	v.SetDefault("TWILIO_BASE_URL", "https://api.twilio.com")

	v.SetDefault("REALTIME_CHANNELS", "jobs,matches,notifications")
	v.SetDefault("REALTIME_KEEPALIVE", 15*time.Second)

	v.SetDefault("JWT_ACCESS_EXPIRES_IN", 15*time.Minute)
}

// Load reads configuration from the environment. A non-empty configFile is
// read first; environment variables still win over file values.
func Load(configFile string) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if strings.TrimSpace(configFile) != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	return FromViper(v)
}

func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{}

	var missing []string
	req := func(key string) string {
		s := strings.TrimSpace(v.GetString(key))
		if s == "" {
			missing = append(missing, key)
		}
		return s
	}
	opt := func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	}

	cfg.App = AppConfig{
		AppName:     req("APP_NAME"),
		Environment: req("APP_ENV"),
		HTTPPort:    req("HTTP_PORT"),
	}

	cfg.Log = LogConfig{
		JSON:  v.GetBool("LOG_JSON"),
		Debug: v.GetBool("LOG_DEBUG"),
	}

	cfg.Database = DatabaseConfig{
		DBHost:                opt("DB_HOST"),
		DBPort:                opt("DB_PORT"),
		DBName:                opt("DB_NAME"),
		DBUser:                opt("DB_USER"),
		DBPassword:            v.GetString("DB_PASSWORD"),
		DBSSLMode:             opt("DB_SSL_MODE"),
		ConnectTimeout:        v.GetDuration("DB_CONNECT_TIMEOUT"),
		PoolMaxConns:          v.GetInt32("DB_POOL_MAX_CONNS"),
		PoolMinConns:          v.GetInt32("DB_POOL_MIN_CONNS"),
		PoolMaxConnLifetime:   v.GetDuration("DB_POOL_MAX_CONN_LIFETIME"),
		PoolMaxConnIdleTime:   v.GetDuration("DB_POOL_MAX_CONN_IDLE_TIME"),
		PoolHealthCheckPeriod: v.GetDuration("DB_POOL_HEALTH_CHECK_PERIOD"),
	}

	cfg.Redis = RedisConfig{
		Addr:     opt("REDIS_ADDR"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Embedding = EmbeddingConfig{
		GeminiAPIKey: opt("GEMINI_API_KEY"),
		Model:        opt("EMBEDDING_MODEL"),
		RPS:          v.GetFloat64("EMBEDDING_RPS"),
		Burst:        v.GetInt("EMBEDDING_BURST"),
		CacheSize:    v.GetInt("EMBEDDING_CACHE_SIZE"),
		CacheTTL:     v.GetDuration("EMBEDDING_CACHE_TTL"),
		Timeout:      v.GetDuration("EMBEDDING_TIMEOUT"),
	}

	cfg.Matching = MatchingConfig{
		PageSize: v.GetInt("MATCH_PAGE_SIZE"),
	}

	cfg.Notification = NotificationConfig{
		Stream:         opt("NOTIFY_STREAM"),
		Group:          opt("NOTIFY_GROUP"),
		RetryKey:       opt("NOTIFY_RETRY_KEY"),
		MaxAttempts:    v.GetInt("NOTIFY_MAX_ATTEMPTS"),
		BackoffInitial: v.GetDuration("NOTIFY_BACKOFF_INITIAL"),
		BackoffMax:     v.GetDuration("NOTIFY_BACKOFF_MAX"),
		ChannelTimeout: v.GetDuration("CHANNEL_TIMEOUT"),
		ClaimMinIdle:   v.GetDuration("QUEUE_CLAIM_MIN_IDLE"),
		PendingLockTTL: v.GetDuration("NOTIFY_PENDING_LOCK_TTL"),
		SweepSpec:      opt("NOTIFY_SWEEP_SPEC"),
		SweepLimit:     v.GetInt("NOTIFY_SWEEP_LIMIT"),
	}

	cfg.Channels = ChannelsConfig{
		SMTP: SMTPConfig{
			Host:     opt("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: opt("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     opt("SMTP_FROM"),
		},
		Telegram: TelegramConfig{
			BotToken: opt("TELEGRAM_BOT_TOKEN"),
			BaseURL:  opt("TELEGRAM_BASE_URL"),
		},
		Twilio: TwilioConfig{
			AccountSID:   opt("TWILIO_ACCOUNT_SID"),
			AuthToken:    v.GetString("TWILIO_AUTH_TOKEN"),
			WhatsAppFrom: opt("TWILIO_WHATSAPP_FROM"),
			BaseURL:      opt("TWILIO_BASE_URL"),
		},
	}

	cfg.Realtime = RealtimeConfig{
		Channels:  splitList(v.GetString("REALTIME_CHANNELS")),
		KeepAlive: v.GetDuration("REALTIME_KEEPALIVE"),
	}

	cfg.Auth = AuthConfig{
		AccessSecret:    v.GetString("JWT_ACCESS_SECRET"),
		AccessExpiresIn: v.GetDuration("JWT_ACCESS_EXPIRES_IN"),
		InternalToken:   opt("INTERNAL_TOKEN"),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}

	return cfg, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
