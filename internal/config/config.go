package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/ps-vitor/crous-notifier/internal/domain"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Scraping ScrapingConfig `yaml:"scraping"`
	Notify   NotifyConfig   `yaml:"notify"`
	State    StateConfig    `yaml:"state"`
	Web      WebConfig      `yaml:"web"`
	Log      LogConfig      `yaml:"log"`
}

type AppConfig struct {
	Name                 string `yaml:"name" env:"APP_NAME" env-default:"crous-notifier"`
	CheckIntervalMinutes int    `yaml:"check_interval_minutes" env:"CHECK_INTERVAL_MINUTES" env-default:"10"`
}

type ScrapingConfig struct {
	BaseURL     string   `yaml:"base_url" env:"BASE_URL" env-default:"https://trouverunlogement.lescrous.fr"`
	SearchPath  string   `yaml:"search_path" env:"SEARCH_PATH" env-default:"/tools/42/search"`
	UserAgent   string   `yaml:"user_agent" env:"USER_AGENT"`
	Timeout     int      `yaml:"timeout_seconds" env:"SCRAPE_TIMEOUT_SECONDS" env-default:"30"`
	MinDelayMS  int      `yaml:"min_delay_ms" env:"SCRAPE_MIN_DELAY_MS" env-default:"500"`
	MaxDelayMS  int      `yaml:"max_delay_ms" env:"SCRAPE_MAX_DELAY_MS" env-default:"2000"`
	Locations   []string `yaml:"locations" env:"LOCATIONS" env-separator:","`
	MaxPrice    string   `yaml:"max_price" env:"MAX_PRICE"`
	UseAuth     bool     `yaml:"use_auth" env:"USE_AUTH"`
	CookiesFile string   `yaml:"cookies_file" env:"COOKIES_FILE" env-default:"cookies.json"`
	CookiesJSON string   `yaml:"-" env:"COOKIES_JSON"`
}

type NotifyConfig struct {
	Channel  string         `yaml:"channel" env:"NOTIFY_CHANNEL" env-default:"telegram"`
	Telegram TelegramConfig `yaml:"telegram"`
	SMTP     SMTPConfig     `yaml:"smtp"`
}

type TelegramConfig struct {
	Token  string `yaml:"-" env:"TELEGRAM_BOT_TOKEN"`
	ChatID string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
}

type SMTPConfig struct {
	Host        string   `yaml:"host" env:"SMTP_HOST"`
	Port        int      `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username    string   `yaml:"username" env:"SMTP_USERNAME"`
	Password    string   `yaml:"-" env:"SMTP_PASSWORD"`
	SenderEmail string   `yaml:"sender_email" env:"SMTP_SENDER_EMAIL"`
	Recipients  []string `yaml:"recipients" env:"SMTP_RECIPIENTS" env-separator:","`
	Encryption  string   `yaml:"encryption" env:"SMTP_ENCRYPTION" env-default:"tls"`
}

type StateConfig struct {
	File   string       `yaml:"file" env:"STATE_FILE" env-default:"state.json"`
	Heroku HerokuConfig `yaml:"heroku"`
	Redis  RedisConfig  `yaml:"redis"`
}

type HerokuConfig struct {
	APIKey  string `yaml:"-" env:"HEROKU_API_KEY"`
	AppName string `yaml:"app_name" env:"HEROKU_APP_NAME"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Key      string `yaml:"key" env:"REDIS_STATE_KEY" env-default:"crous-notifier:state"`
}

type WebConfig struct {
	Port     int    `yaml:"port" env:"PORT" env-default:"5000"`
	Password string `yaml:"-" env:"WEB_PASSWORD"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// LoadConfig reads dir/app.yaml and dir/scraping.yaml when present, then .env,
// then the process environment. Later sources win.
func LoadConfig(dir string) (*Config, error) {
	cfg := &Config{}

	if err := readYAML(filepath.Join(dir, "app.yaml"), cfg); err != nil {
		return nil, err
	}
	if err := readYAML(filepath.Join(dir, "scraping.yaml"), &cfg.Scraping); err != nil {
		return nil, err
	}

	_ = godotenv.Load()

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readYAML(path string, out interface{}) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Validate checks numeric bounds. Channel credentials are checked separately
// by ValidateChannel since not every binary sends notifications.
func (c *Config) Validate() error {
	var problems []string
	if c.App.CheckIntervalMinutes <= 0 {
		problems = append(problems, "CHECK_INTERVAL_MINUTES must be positive")
	}
	if _, err := c.MaxPrice(); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Scraping.MinDelayMS < 0 || c.Scraping.MaxDelayMS < c.Scraping.MinDelayMS {
		problems = append(problems, "scrape delays must satisfy 0 <= min <= max")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateChannel checks the settings needed by the selected notification channel.
func (c *Config) ValidateChannel() error {
	switch strings.ToLower(c.Notify.Channel) {
	case "telegram":
		if c.Notify.Telegram.Token == "" || c.Notify.Telegram.ChatID == "" {
			return errors.New("invalid configuration: TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID are required")
		}
	case "email":
		if c.Notify.SMTP.Host == "" || c.Notify.SMTP.SenderEmail == "" || len(c.Notify.SMTP.Recipients) == 0 {
			return errors.New("invalid configuration: SMTP_HOST, SMTP_SENDER_EMAIL and SMTP_RECIPIENTS are required")
		}
	default:
		return fmt.Errorf("invalid configuration: unknown NOTIFY_CHANNEL %q", c.Notify.Channel)
	}
	return nil
}

// MaxPrice parses MAX_PRICE. An empty value means no ceiling.
func (c *Config) MaxPrice() (*int, error) {
	raw := strings.TrimSpace(c.Scraping.MaxPrice)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("MAX_PRICE must be an integer, got %q", raw)
	}
	return &v, nil
}

// Filter builds the immutable filter criteria from the configuration.
func (c *Config) Filter() domain.FilterCriteria {
	maxPrice, _ := c.MaxPrice()
	return domain.NewFilterCriteria(c.Scraping.Locations, maxPrice)
}

func (c *Config) CheckInterval() time.Duration {
	return time.Duration(c.App.CheckIntervalMinutes) * time.Minute
}
