// Package config loads the console and mock backend settings from a YAML file
// overlaid with GKADMIN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GKADMIN_"

type Config struct {
	API           APIConfig          `yaml:"api" envPrefix:"API_"`
	Realtime      RealtimeConfig     `yaml:"realtime" envPrefix:"REALTIME_"`
	Notifications NotificationConfig `yaml:"notifications" envPrefix:"NOTIFY_"`
	Storage       StorageConfig      `yaml:"storage" envPrefix:"STORAGE_"`
	Log           LogConfig          `yaml:"log" envPrefix:"LOG_"`
	Mock          MockConfig         `yaml:"mock" envPrefix:"MOCK_"`
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type RealtimeConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// URL defaults to the origin of the API base URL.
	URL               string        `yaml:"url" env:"URL"`
	Path              string        `yaml:"path" env:"PATH"`
	Namespace         string        `yaml:"namespace" env:"NAMESPACE"`
	Transports        []string      `yaml:"transports" env:"TRANSPORTS" envSeparator:","`
	ReconnectAttempts int           `yaml:"reconnect_attempts" env:"RECONNECT_ATTEMPTS"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay" env:"RECONNECT_DELAY"`
	DialTimeout       time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT"`
}

type NotificationConfig struct {
	Title          string        `yaml:"title" env:"TITLE"`
	Tag            string        `yaml:"tag" env:"TAG"`
	Icon           string        `yaml:"icon" env:"ICON"`
	BannerDuration time.Duration `yaml:"banner_duration" env:"BANNER_DURATION"`
	// Sound is a sound file played through Player. Empty rings the terminal bell.
	Sound  string `yaml:"sound" env:"SOUND"`
	Player string `yaml:"player" env:"PLAYER"`
	// Desktop enables OS notifications; Permission is the starting decision.
	Desktop    bool   `yaml:"desktop" env:"DESKTOP"`
	Permission string `yaml:"permission" env:"PERMISSION"`
}

type StorageConfig struct {
	// StateFile defaults to $XDG_STATE_HOME/gkadmin/state.yaml.
	StateFile string `yaml:"state_file" env:"STATE_FILE"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	// File receives the log. The console needs one since it owns the terminal.
	File string `yaml:"file" env:"FILE"`
}

type MockConfig struct {
	Addr          string        `yaml:"addr" env:"ADDR"`
	AdminEmail    string        `yaml:"admin_email" env:"ADMIN_EMAIL"`
	AdminPassword string        `yaml:"admin_password" env:"ADMIN_PASSWORD"`
	JWTSecret     string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	AccessTTL     time.Duration `yaml:"access_ttl" env:"ACCESS_TTL"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl" env:"REFRESH_TTL"`
	OrderInterval time.Duration `yaml:"order_interval" env:"ORDER_INTERVAL"`
	LoginRate     float64       `yaml:"login_rate" env:"LOGIN_RATE"`
	LoginBurst    int           `yaml:"login_burst" env:"LOGIN_BURST"`
	Seed          int64         `yaml:"seed" env:"SEED"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:6005/v1/api",
			Timeout: 15 * time.Second,
		},
		Realtime: RealtimeConfig{
			Enabled:           true,
			Path:              "/socket.io/",
			Namespace:         "/",
			Transports:        []string{"websocket", "polling"},
			ReconnectAttempts: 5,
			ReconnectDelay:    time.Second,
			DialTimeout:       10 * time.Second,
		},
		Notifications: NotificationConfig{
			Title:          "New Order!",
			Tag:            "order-notification",
			BannerDuration: 5 * time.Second,
			Desktop:        true,
			Permission:     "default",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Mock: MockConfig{
			Addr:          "127.0.0.1:6005",
			AdminEmail:    "admin@gkstore.test",
			AdminPassword: "admin123",
			JWTSecret:     "dev-secret",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			OrderInterval: 20 * time.Second,
			LoginRate:     1,
			LoginBurst:    5,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/gkadmin/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "gkadmin", "config.yaml")
}

// Load reads path over the defaults and applies environment overrides. A
// missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api.base_url %q must be an absolute http(s) URL", c.API.BaseURL)
	}
	if c.Realtime.ReconnectAttempts < 0 {
		return fmt.Errorf("config: realtime.reconnect_attempts must not be negative")
	}
	if c.Notifications.BannerDuration < 0 {
		return fmt.Errorf("config: notifications.banner_duration must not be negative")
	}
	return nil
}

// RealtimeURL returns the socket server origin.
func (c *Config) RealtimeURL() string {
	if c.Realtime.URL != "" {
		return c.Realtime.URL
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return c.API.BaseURL
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
}
