// Package config содержит логику чтения конфигурации административного клиента.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Режимы интерфейса.
const (
	UIConsole = "console"
	UITUI     = "tui"
)

// Config содержит параметры конфигурации административного клиента.
type Config struct {
	RunAddress       string        `env:"RUN_ADDRESS"`
	APIBaseURL       string        `env:"API_BASE_URL"`
	DatabaseURI      string        `env:"DATABASE_URI"`
	SyncInterval     time.Duration `env:"SYNC_INTERVAL"`
	RequestTimeout   time.Duration `env:"REQUEST_TIMEOUT"`
	SyncSingleFlight bool          `env:"SYNC_SINGLE_FLIGHT"`
	ImageMaxWidth    int           `env:"IMAGE_MAX_WIDTH"`
	TelegramToken    string        `env:"TELEGRAM_TOKEN"`
	TelegramChatID   int64         `env:"TELEGRAM_CHAT_ID"`
	KafkaBrokers     string        `env:"KAFKA_BROKERS"`
	KafkaTopic       string        `env:"KAFKA_TOPIC"`
	UI               string        `env:"ADMIN_UI"`
}

// Parse считывает конфигурацию из файла .env, флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{KafkaTopic: "admin-notifications"}

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8090", "address and port for the admin console")
	flag.StringVar(&cfg.APIBaseURL, "u", "http://localhost:4000", "base URL of the food service API")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for sync snapshots")
	flag.DurationVar(&cfg.SyncInterval, "i", 10*time.Second, "order sync interval")
	flag.DurationVar(&cfg.RequestTimeout, "t", 10*time.Second, "remote request timeout")
	flag.BoolVar(&cfg.SyncSingleFlight, "s", false, "collapse overlapping order fetches")
	flag.IntVar(&cfg.ImageMaxWidth, "w", 800, "max width of uploaded images, 0 disables resizing")
	flag.StringVar(&cfg.UI, "ui", UIConsole, "user interface: console or tui")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8090"
	}
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = 10 * time.Second
	}
	if cfg.ImageMaxWidth < 0 {
		return nil, fmt.Errorf("invalid image max width %d", cfg.ImageMaxWidth)
	}

	switch cfg.UI {
	case UIConsole, UITUI:
	default:
		return nil, fmt.Errorf("unknown ui %q", cfg.UI)
	}

	return cfg, nil
}
