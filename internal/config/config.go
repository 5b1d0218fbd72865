package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverNone     = ""
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	LogLevel string         `yaml:"log_level"`
	Crawler  CrawlerConfig  `yaml:"crawler"`
	Storage  StorageConfig  `yaml:"storage"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

type CrawlerConfig struct {
	BaseURL         string        `yaml:"base_url"`
	UserAgent       string        `yaml:"user_agent"`
	Proxy           string        `yaml:"proxy"`
	Timeout         time.Duration `yaml:"timeout"`
	Concurrency     int           `yaml:"concurrency"`
	PageConcurrency int           `yaml:"page_concurrency"`
	Retry           RetryConfig   `yaml:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

// StorageConfig selects the SQL sink. An empty driver disables it.
type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	Path     string         `yaml:"path"`
	Database DatabaseConfig `yaml:"database"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// RabbitMQConfig configures the message sink. An empty URL disables it.
type RabbitMQConfig struct {
	URL        string `yaml:"url"`
	Exchange   string `yaml:"exchange"`
	RoutingKey string `yaml:"routing_key"`
	QueueName  string `yaml:"queue_name"`
}

// ScheduleConfig enables periodic crawls when Interval is positive.
type ScheduleConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverNone, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Crawler.Concurrency < 1 || c.Crawler.PageConcurrency < 1 {
		return fmt.Errorf("crawler concurrency must be positive")
	}
	if c.Schedule.Interval < 0 {
		return fmt.Errorf("schedule interval must not be negative")
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Crawler.BaseURL == "" {
		c.Crawler.BaseURL = "https://www.ptt.cc"
	}
	if c.Crawler.UserAgent == "" {
		c.Crawler.UserAgent = "pttcrawler/1.0"
	}
	if c.Crawler.Timeout == 0 {
		c.Crawler.Timeout = 30 * time.Second
	}
	if c.Crawler.Concurrency == 0 {
		c.Crawler.Concurrency = 8
	}
	if c.Crawler.PageConcurrency == 0 {
		c.Crawler.PageConcurrency = 2
	}
	if c.Crawler.Retry.MaxAttempts == 0 {
		c.Crawler.Retry.MaxAttempts = 3
	}
	if c.Crawler.Retry.InitialBackoff == 0 {
		c.Crawler.Retry.InitialBackoff = 1 * time.Second
	}
	if c.Crawler.Retry.MaxBackoff == 0 {
		c.Crawler.Retry.MaxBackoff = 30 * time.Second
	}
	if c.Storage.Driver == DriverSQLite && c.Storage.Path == "" {
		c.Storage.Path = "ptt.db"
	}
	if c.Storage.Database.Port == 0 {
		c.Storage.Database.Port = 5432
	}
	if c.Storage.Database.SSLMode == "" {
		c.Storage.Database.SSLMode = "disable"
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "ptt_crawler"
	}
	if c.RabbitMQ.RoutingKey == "" {
		c.RabbitMQ.RoutingKey = "articles"
	}
	if c.RabbitMQ.QueueName == "" {
		c.RabbitMQ.QueueName = "ptt_articles"
	}
	if c.Schedule.RunTimeout == 0 {
		c.Schedule.RunTimeout = 30 * time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
