package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime settings read from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	CronSecret  string
	AppEnv      string
	LogLevel    string

	DefaultTimezone string

	RedisAddr string

	ORSAPIKey  string
	ORSBaseURL string

	TelegramBotToken string
	TelegramBaseURL  string

	KafkaBrokers []string
	SMSTopic     string

	TenantConcurrency   int
	LookupConcurrency   int
	DispatchConcurrency int
	MaxTwoOptScans      int

	DistanceTimeout time.Duration
	SendTimeout     time.Duration
	LockTTL         time.Duration

	DistanceRatePerMinute int64
	SMSRatePerMinute      int64
	TelegramRatePerMinute int64
}

// Get returns the environment value for key or fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer: %w", key, v, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not a duration: %w", key, v, err)
	}
	return d, nil
}

// Load reads the configuration from the environment. Callers load .env first.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             Get("PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		CronSecret:       os.Getenv("CRON_SECRET"),
		AppEnv:           Get("APP_ENV", "production"),
		LogLevel:         Get("LOG_LEVEL", "info"),
		DefaultTimezone:  Get("DEFAULT_TIMEZONE", "America/Chicago"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		ORSAPIKey:        os.Getenv("ORS_API_KEY"),
		ORSBaseURL:       Get("ORS_BASE_URL", "https://api.openrouteservice.org"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramBaseURL:  Get("TELEGRAM_BASE_URL", "https://api.telegram.org"),
		SMSTopic:         Get("SMS_TOPIC", "sms.accepted"),
	}

	if brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	ints := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"TENANT_CONCURRENCY", 4, &cfg.TenantConcurrency},
		{"LOOKUP_CONCURRENCY", 5, &cfg.LookupConcurrency},
		{"DISPATCH_CONCURRENCY", 4, &cfg.DispatchConcurrency},
		{"MAX_TWO_OPT_SCANS", 200, &cfg.MaxTwoOptScans},
	}
	for _, it := range ints {
		if *it.dst, err = getInt(it.key, it.fallback); err != nil {
			return nil, err
		}
		if *it.dst <= 0 {
			return nil, fmt.Errorf("config: %s must be positive", it.key)
		}
	}

	rates := []struct {
		key      string
		fallback int
		dst      *int64
	}{
		{"DISTANCE_RATE_PER_MINUTE", 40, &cfg.DistanceRatePerMinute},
		{"SMS_RATE_PER_MINUTE", 120, &cfg.SMSRatePerMinute},
		{"TELEGRAM_RATE_PER_MINUTE", 30, &cfg.TelegramRatePerMinute},
	}
	for _, it := range rates {
		n, err := getInt(it.key, it.fallback)
		if err != nil {
			return nil, err
		}
		*it.dst = int64(n)
	}

	if cfg.DistanceTimeout, err = getDuration("DISTANCE_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.SendTimeout, err = getDuration("SEND_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = getDuration("LOCK_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("config: DEFAULT_TIMEZONE %q: %w", cfg.DefaultTimezone, err)
	}

	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.CronSecret) == "" {
		return errors.New("CRON_SECRET is required")
	}
	return nil
}
