package config

import (
	"fmt"
	"time"

	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/ifuryst/publish-studio/pkg/logger"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Logger    logger.Config   `yaml:"logger"`
	Publisher PublisherConfig `yaml:"publisher"`
	Queue     QueueConfig     `yaml:"queue"`
	Security  SecurityConfig  `yaml:"security"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TLS      bool   `yaml:"tls"`
}

type PlatformConfig struct {
	Disabled bool   `yaml:"disabled"`
	BaseURL  string `yaml:"base_url"`
}

type BloggerConfig struct {
	PlatformConfig `yaml:",inline"`
	ClientID       string `yaml:"client_id"`
	ClientSecret   string `yaml:"client_secret"`
	TokenURL       string `yaml:"token_url"`
}

type PublisherConfig struct {
	// Concurrency bounds the per-publish fan-out across platforms.
	Concurrency int            `yaml:"concurrency"`
	HTTPTimeout string         `yaml:"http_timeout"`
	DevTo       PlatformConfig `yaml:"devto"`
	Medium      PlatformConfig `yaml:"medium"`
	Hashnode    PlatformConfig `yaml:"hashnode"`
	Ghost       PlatformConfig `yaml:"ghost"`
	WordPress   PlatformConfig `yaml:"wordpress"`
	Blogger     BloggerConfig  `yaml:"blogger"`
}

type QueueConfig struct {
	KeyPrefix        string `yaml:"key_prefix"`
	PollInterval     string `yaml:"poll_interval"`
	BatchSize        int    `yaml:"batch_size"`
	Workers          int    `yaml:"workers"`
	MaxAttempts      int    `yaml:"max_attempts"`
	RetryDelay       string `yaml:"retry_delay"`
	LeaseTimeout     string `yaml:"lease_timeout"`
	EmbeddedConsumer bool   `yaml:"embedded_consumer"`
}

type SecurityConfig struct {
	// EncryptionKey is a hex encoded 32 byte key used to seal platform credentials.
	EncryptionKey string `yaml:"encryption_key"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5334
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Publisher.Concurrency <= 0 {
		cfg.Publisher.Concurrency = 6
	}
	if cfg.Publisher.HTTPTimeout == "" {
		cfg.Publisher.HTTPTimeout = "30s"
	}
	if cfg.Publisher.DevTo.BaseURL == "" {
		cfg.Publisher.DevTo.BaseURL = "https://dev.to"
	}
	if cfg.Publisher.Medium.BaseURL == "" {
		cfg.Publisher.Medium.BaseURL = "https://api.medium.com"
	}
	if cfg.Publisher.Hashnode.BaseURL == "" {
		cfg.Publisher.Hashnode.BaseURL = "https://gql.hashnode.com"
	}
	if cfg.Publisher.WordPress.BaseURL == "" {
		cfg.Publisher.WordPress.BaseURL = "https://public-api.wordpress.com/rest/v1.1"
	}
	if cfg.Publisher.Blogger.BaseURL == "" {
		cfg.Publisher.Blogger.BaseURL = "https://www.googleapis.com/blogger/v3"
	}
	if cfg.Publisher.Blogger.TokenURL == "" {
		cfg.Publisher.Blogger.TokenURL = "https://oauth2.googleapis.com/token"
	}
	if cfg.Queue.KeyPrefix == "" {
		cfg.Queue.KeyPrefix = "publish-studio"
	}
	if cfg.Queue.PollInterval == "" {
		cfg.Queue.PollInterval = "5s"
	}
	if cfg.Queue.BatchSize <= 0 {
		cfg.Queue.BatchSize = 20
	}
	if cfg.Queue.Workers <= 0 {
		cfg.Queue.Workers = 4
	}
	if cfg.Queue.MaxAttempts <= 0 {
		cfg.Queue.MaxAttempts = 3
	}
	if cfg.Queue.RetryDelay == "" {
		cfg.Queue.RetryDelay = "1m"
	}
	if cfg.Queue.LeaseTimeout == "" {
		cfg.Queue.LeaseTimeout = "5m"
	}
}

// Validate checks the duration fields so a typo fails at startup rather than
// on the first publish.
func (cfg *Config) Validate() error {
	durations := map[string]string{
		"publisher.http_timeout": cfg.Publisher.HTTPTimeout,
		"queue.poll_interval":    cfg.Queue.PollInterval,
		"queue.retry_delay":      cfg.Queue.RetryDelay,
		"queue.lease_timeout":    cfg.Queue.LeaseTimeout,
	}
	for field, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", field, value, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s %q: must be positive", field, value)
		}
	}
	return nil
}

func (c PublisherConfig) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.HTTPTimeout)
	return d
}

func (c QueueConfig) Interval() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	return d
}

func (c QueueConfig) Retry() time.Duration {
	d, _ := time.ParseDuration(c.RetryDelay)
	return d
}

func (c QueueConfig) Lease() time.Duration {
	d, _ := time.ParseDuration(c.LeaseTimeout)
	return d
}

// DSN builds the postgres connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		c.Host, c.Username, c.Password, c.Database, c.Port, c.SSLMode, c.TimeZone)
}
