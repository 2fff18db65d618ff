package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath - путь к YAML, если PROMO_CONFIG не задан
const DefaultPath = "config.yaml"

// Config - глобальная конфигурация сервиса.
// Правила самой акции (5-30%, 30 дней) сюда не входят: это фиксированная политика.
type Config struct {
	Env string `yaml:"env"` // "local", "prod"

	Feed struct {
		URL  string   `yaml:"url"`  // WebSocket фид цен
		SKUs []string `yaml:"skus"` // Начальные подписки
	} `yaml:"feed"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"` // Куда слать уведомления об акциях
	} `yaml:"telegram"`

	Worker struct {
		Count     int `yaml:"count"`
		QueueSize int `yaml:"queue_size"`
	} `yaml:"worker"`

	SweepCron string `yaml:"sweep_cron"` // Проверка истекших акций
}

// LoadConfig читает YAML (если есть), затем применяет переменные окружения и дефолты
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PROMO_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("PRICE_FEED_URL"); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv("PRICE_FEED_SKUS"); v != "" {
		c.Feed.SKUs = splitList(v)
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	if v := os.Getenv("SWEEP_CRON"); v != "" {
		c.SweepCron = v
	}
	if v := os.Getenv("WORKER_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid WORKER_COUNT: %w", err)
		}
		c.Worker.Count = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "local"
	}
	if c.SweepCron == "" {
		c.SweepCron = "@every 1m"
	}
	if c.Worker.Count == 0 {
		c.Worker.Count = 4
	}
	if c.Worker.QueueSize == 0 {
		c.Worker.QueueSize = 100
	}
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	var errs []error
	if c.Feed.URL == "" {
		errs = append(errs, errors.New("feed url is required (PRICE_FEED_URL)"))
	}
	if c.Worker.Count < 1 {
		errs = append(errs, fmt.Errorf("worker count must be positive, got %d", c.Worker.Count))
	}
	if c.Worker.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("worker queue size must be positive, got %d", c.Worker.QueueSize))
	}
	if c.Telegram.ChatID != 0 && c.Telegram.BotToken == "" {
		errs = append(errs, errors.New("telegram chat id set without bot token"))
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
