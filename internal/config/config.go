package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Shopify/sarama"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment   DeploymentConfig   `validate:"required"`
	Server       ServerConfig       `validate:"required"`
	Auth         AuthConfig         `validate:"required"`
	Postgres     PostgresConfig     `validate:"required"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Logging      LoggingConfig      `validate:"required"`
	Sentry       SentryConfig       `mapstructure:"sentry"`
	Lifecycle    LifecycleConfig    `mapstructure:"lifecycle" validate:"required"`
	Provisioning ProvisioningConfig `mapstructure:"provisioning" validate:"required"`
	Billing      BillingConfig      `mapstructure:"billing"`
	Email        EmailConfig        `mapstructure:"email"`
	Export       ExportConfig       `mapstructure:"export"`
	Events       EventsConfig       `mapstructure:"events"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Audit        AuditConfig        `mapstructure:"audit"`
	RateLimit    RateLimitConfig    `mapstructure:"ratelimit"`
}

type DeploymentConfig struct {
	Mode types.RunMode `mapstructure:"mode" validate:"required"`
}

type ServerConfig struct {
	Address string `mapstructure:"address" validate:"required"`
}

type AuthConfig struct {
	// Secret signs and verifies the HS256 credentials carrying the tenant claim.
	Secret string `mapstructure:"secret" validate:"required"`
	// TokenTTL is only used when minting credentials (tests, tooling).
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

type PostgresConfig struct {
	Host                   string `mapstructure:"host" validate:"required"`
	Port                   int    `mapstructure:"port" validate:"required"`
	User                   string `mapstructure:"user" validate:"required"`
	Password               string `mapstructure:"password"`
	DBName                 string `mapstructure:"dbname" validate:"required"`
	SSLMode                string `mapstructure:"sslmode" validate:"required"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" default:"10"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" default:"5"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" default:"60"`
	AutoMigrate            bool   `mapstructure:"auto_migrate" default:"false"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	UseTLS   bool          `mapstructure:"use_tls"`
	PoolSize int           `mapstructure:"pool_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Type    string `mapstructure:"type"`
}

type LoggingConfig struct {
	Level          types.LogLevel `mapstructure:"level" validate:"required"`
	DBLevel        types.LogLevel `mapstructure:"db_level"`
	FluentdEnabled bool           `mapstructure:"fluentd_enabled"`
	FluentdHost    string         `mapstructure:"fluentd_host"`
	FluentdPort    int            `mapstructure:"fluentd_port"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type LifecycleConfig struct {
	GracePeriod      time.Duration `mapstructure:"grace_period" validate:"required"`
	RetentionWindow  time.Duration `mapstructure:"retention_window" validate:"required"`
	MonitorInterval  time.Duration `mapstructure:"monitor_interval" validate:"required"`
	MonitorEnabled   bool          `mapstructure:"monitor_enabled"`
	WarningThreshold float64       `mapstructure:"warning_threshold" validate:"gt=0,lte=1"`
	ScanConcurrency  int           `mapstructure:"scan_concurrency"`
	ScanBatchSize    int           `mapstructure:"scan_batch_size"`
}

type ProvisioningConfig struct {
	WorkerEnabled  bool          `mapstructure:"worker_enabled"`
	PollInterval   time.Duration `mapstructure:"poll_interval" validate:"required"`
	BatchSize      int           `mapstructure:"batch_size" validate:"required,gt=0"`
	SetupTokenTTL  time.Duration `mapstructure:"setup_token_ttl" validate:"required"`
	StepRetries    uint64        `mapstructure:"step_retries"`
	SetupURLFormat string        `mapstructure:"setup_url_format"`
}

type BillingConfig struct {
	DefaultTrialDays int               `mapstructure:"default_trial_days"`
	WebhookSecrets   map[string]string `mapstructure:"webhook_secrets"`
}

type EmailConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	APIKey      string `mapstructure:"api_key"`
	FromAddress string `mapstructure:"from_address"`
	ReplyTo     string `mapstructure:"reply_to"`
}

type ExportConfig struct {
	S3Enabled       bool   `mapstructure:"s3_enabled"`
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type EventsConfig struct {
	// Publisher is either "memory" or "kafka".
	Publisher string `mapstructure:"publisher"`
	Topic     string `mapstructure:"topic"`
}

type KafkaConfig struct {
	Brokers       []string             `mapstructure:"brokers"`
	ClientID      string               `mapstructure:"client_id"`
	TLS           bool                 `mapstructure:"tls"`
	UseSASL       bool                 `mapstructure:"use_sasl"`
	SASLMechanism sarama.SASLMechanism `mapstructure:"sasl_mechanism"`
	SASLUser      string               `mapstructure:"sasl_user"`
	SASLPassword  string               `mapstructure:"sasl_password"`
}

type AuditConfig struct {
	MaxPayloadBytes int `mapstructure:"max_payload_bytes"`
}

type RateLimitConfig struct {
	// Backend is either "memory" or "redis".
	Backend string `mapstructure:"backend"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	// Environment overrides come from a .env file when one is present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: failed to load .env file: %v\n", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TENANTCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %v", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("deployment.mode", d.Deployment.Mode)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("auth.secret", d.Auth.Secret)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)
	v.SetDefault("postgres.host", d.Postgres.Host)
	v.SetDefault("postgres.port", d.Postgres.Port)
	v.SetDefault("postgres.user", d.Postgres.User)
	v.SetDefault("postgres.dbname", d.Postgres.DBName)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)
	v.SetDefault("postgres.max_open_conns", d.Postgres.MaxOpenConns)
	v.SetDefault("postgres.max_idle_conns", d.Postgres.MaxIdleConns)
	v.SetDefault("postgres.conn_max_lifetime_minutes", d.Postgres.ConnMaxLifetimeMinutes)
	v.SetDefault("redis.host", d.Redis.Host)
	v.SetDefault("redis.port", d.Redis.Port)
	v.SetDefault("redis.pool_size", d.Redis.PoolSize)
	v.SetDefault("redis.timeout", d.Redis.Timeout)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.type", d.Cache.Type)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.db_level", d.Logging.DBLevel)
	v.SetDefault("lifecycle.grace_period", d.Lifecycle.GracePeriod)
	v.SetDefault("lifecycle.retention_window", d.Lifecycle.RetentionWindow)
	v.SetDefault("lifecycle.monitor_interval", d.Lifecycle.MonitorInterval)
	v.SetDefault("lifecycle.monitor_enabled", d.Lifecycle.MonitorEnabled)
	v.SetDefault("lifecycle.warning_threshold", d.Lifecycle.WarningThreshold)
	v.SetDefault("lifecycle.scan_concurrency", d.Lifecycle.ScanConcurrency)
	v.SetDefault("lifecycle.scan_batch_size", d.Lifecycle.ScanBatchSize)
	v.SetDefault("provisioning.worker_enabled", d.Provisioning.WorkerEnabled)
	v.SetDefault("provisioning.poll_interval", d.Provisioning.PollInterval)
	v.SetDefault("provisioning.batch_size", d.Provisioning.BatchSize)
	v.SetDefault("provisioning.setup_token_ttl", d.Provisioning.SetupTokenTTL)
	v.SetDefault("provisioning.step_retries", d.Provisioning.StepRetries)
	v.SetDefault("provisioning.setup_url_format", d.Provisioning.SetupURLFormat)
	v.SetDefault("billing.default_trial_days", d.Billing.DefaultTrialDays)
	v.SetDefault("events.publisher", d.Events.Publisher)
	v.SetDefault("events.topic", d.Events.Topic)
	v.SetDefault("kafka.client_id", d.Kafka.ClientID)
	v.SetDefault("audit.max_payload_bytes", d.Audit.MaxPayloadBytes)
	v.SetDefault("ratelimit.backend", d.RateLimit.Backend)
}

// GetDefaultConfig returns a configuration usable without any config file,
// used by the global logger and by tests.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Auth: AuthConfig{
			Secret:   "local-development-secret",
			TokenTTL: 24 * time.Hour,
		},
		Postgres: PostgresConfig{
			Host:                   "localhost",
			Port:                   5432,
			User:                   "tenantcore",
			DBName:                 "tenantcore",
			SSLMode:                "disable",
			MaxOpenConns:           10,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 60,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			PoolSize: 10,
			Timeout:  5 * time.Second,
		},
		Cache:   CacheConfig{Enabled: true, Type: "inmemory"},
		Logging: LoggingConfig{Level: types.LogLevelInfo, DBLevel: types.LogLevelInfo},
		Lifecycle: LifecycleConfig{
			GracePeriod:      30 * 24 * time.Hour,
			RetentionWindow:  90 * 24 * time.Hour,
			MonitorInterval:  time.Hour,
			MonitorEnabled:   true,
			WarningThreshold: 0.9,
			ScanConcurrency:  4,
			ScanBatchSize:    500,
		},
		Provisioning: ProvisioningConfig{
			WorkerEnabled:  true,
			PollInterval:   15 * time.Second,
			BatchSize:      5,
			SetupTokenTTL:  72 * time.Hour,
			StepRetries:    2,
			SetupURLFormat: "https://app.localhost/setup-password?token=%s",
		},
		Billing:   BillingConfig{DefaultTrialDays: 14, WebhookSecrets: map[string]string{}},
		Events:    EventsConfig{Publisher: "memory", Topic: "tenant.lifecycle"},
		Kafka:     KafkaConfig{ClientID: "tenantcore"},
		Audit:     AuditConfig{MaxPayloadBytes: 4096},
		RateLimit: RateLimitConfig{Backend: "memory"},
	}
}
