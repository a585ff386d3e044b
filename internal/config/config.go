package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone data for scratch images

	"telegram-focus-bot/internal/pomodoro"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	TelegramToken string
	DatabaseURL   string
	HTTPAddr      string
	Timezone      *time.Location
	PollInterval  time.Duration
	FollowUpDelay time.Duration
	Pomodoro      pomodoro.Config
}

// fileConfig is the optional YAML file. Zero values keep the defaults and
// negative ones fail the load.
type fileConfig struct {
	DatabaseURL   string          `yaml:"database_url"`
	HTTPAddr      *string         `yaml:"http_addr"`
	Timezone      string          `yaml:"timezone"`
	PollInterval  time.Duration   `yaml:"poll_interval"`
	FollowUpDelay time.Duration   `yaml:"follow_up_delay"`
	Pomodoro      pomodoro.Config `yaml:"pomodoro"`
}

const (
	defaultDatabaseURL = "bot.db"
	defaultHTTPAddr    = ":8080"
	defaultTimezone    = "Europe/Kyiv"
	defaultConfigFile  = "config.yaml"
)

// ErrNoToken is returned when neither the Docker secret nor the environment has a token.
var ErrNoToken = errors.New("❌ Токен не найден: отсутствует и Docker Secret, и переменная окружения")

var secretPath = "/run/secrets/telegram_bot_token"

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE, .env and the process environment, later layers winning.
func Load() (Config, error) {
	_ = godotenv.Load() // TELEGRAM_BOT_TOKEN etc.

	cfg := Config{
		DatabaseURL:   defaultDatabaseURL,
		HTTPAddr:      defaultHTTPAddr,
		PollInterval:  30 * time.Second,
		FollowUpDelay: 3 * time.Hour,
		Pomodoro:      pomodoro.DefaultConfig(),
	}
	tz := defaultTimezone

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = defaultConfigFile
	}
	fc, err := readFile(path)
	if err != nil {
		return cfg, err
	}
	if err := applyFile(&cfg, &tz, fc); err != nil {
		return cfg, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	} else if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DatabaseURL = postgresURL(host)
	}
	if v, ok := os.LookupEnv("HTTP_ADDR"); ok {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("BOT_TZ"); v != "" {
		tz = v
	}
	if cfg.PollInterval, err = envDuration("POLL_INTERVAL", cfg.PollInterval); err != nil {
		return cfg, err
	}
	if cfg.FollowUpDelay, err = envDuration("FOLLOW_UP_DELAY", cfg.FollowUpDelay); err != nil {
		return cfg, err
	}

	if cfg.Timezone, err = time.LoadLocation(tz); err != nil {
		return cfg, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	if cfg.TelegramToken = getBotToken(); cfg.TelegramToken == "" {
		return cfg, ErrNoToken
	}
	return cfg, nil
}

func readFile(path string) (*fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return &fc, nil
}

func applyFile(cfg *Config, tz *string, fc *fileConfig) error {
	if fc == nil {
		return nil
	}
	if fc.DatabaseURL != "" {
		cfg.DatabaseURL = fc.DatabaseURL
	}
	if fc.HTTPAddr != nil {
		cfg.HTTPAddr = *fc.HTTPAddr
	}
	if fc.Timezone != "" {
		*tz = fc.Timezone
	}

	p := fc.Pomodoro
	durations := []struct {
		name string
		v    time.Duration
		dst  *time.Duration
	}{
		{"poll_interval", fc.PollInterval, &cfg.PollInterval},
		{"follow_up_delay", fc.FollowUpDelay, &cfg.FollowUpDelay},
		{"pomodoro.work", p.Work, &cfg.Pomodoro.Work},
		{"pomodoro.short_break", p.ShortBreak, &cfg.Pomodoro.ShortBreak},
		{"pomodoro.long_break", p.LongBreak, &cfg.Pomodoro.LongBreak},
		{"pomodoro.update_every", p.UpdateEvery, &cfg.Pomodoro.UpdateEvery},
	}
	for _, d := range durations {
		if d.v < 0 {
			return fmt.Errorf("config file: %s must not be negative, got %v", d.name, d.v)
		}
		if d.v > 0 {
			*d.dst = d.v
		}
	}
	if p.LongBreakEvery < 0 {
		return fmt.Errorf("config file: pomodoro.long_break_every must not be negative, got %d", p.LongBreakEvery)
	}
	if p.LongBreakEvery > 0 {
		cfg.Pomodoro.LongBreakEvery = p.LongBreakEvery
	}
	return nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}

// postgresURL assembles a lib/pq URL from the DB_* variables.
func postgresURL(host string) string {
	port, err := strconv.Atoi(os.Getenv("DB_PORT"))
	if err != nil {
		port = 5432 // fallback
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD")),
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + os.Getenv("DB_NAME"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getBotToken() string {
	if data, err := os.ReadFile(secretPath); err == nil {
		token := strings.TrimSpace(string(data))
		if token != "" {
			return token
		}
	}
	return strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
}
