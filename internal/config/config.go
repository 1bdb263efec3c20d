package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firasbarkia/energy-connect-hub/internal/pricing"
	libconfig "github.com/firasbarkia/energy-connect-hub/libs/config"
)

// Config defines marketplace service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"MARKETPLACE_HTTP_PORT"`
	} `yaml:"http"`
	Database struct {
		DSN string `yaml:"dsn" env:"MARKETPLACE_POSTGRES_DSN"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr" env:"MARKETPLACE_REDIS_ADDR"`
		Password string `yaml:"password" env:"MARKETPLACE_REDIS_PASSWORD"`
		DB       int    `yaml:"db" env:"MARKETPLACE_REDIS_DB"`
	} `yaml:"redis"`
	Reservation struct {
		HoldTTL       time.Duration `yaml:"holdTTL" env:"MARKETPLACE_HOLD_TTL"`
		SweepInterval time.Duration `yaml:"sweepInterval" env:"MARKETPLACE_SWEEP_INTERVAL"`
	} `yaml:"reservation"`
	Pricing pricing.Config `yaml:"pricing"`
}

// Load reads configuration via the shared helper and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8085"
	cfg.Redis.Addr = "localhost:6379"
	cfg.Reservation.HoldTTL = 5 * time.Minute
	cfg.Reservation.SweepInterval = 15 * time.Second
	cfg.Pricing = pricing.DefaultConfig()

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if strings.TrimSpace(cfg.Redis.Addr) == "" {
		return nil, errors.New("config: redis addr required")
	}
	if cfg.Reservation.HoldTTL <= 0 {
		return nil, errors.New("config: hold TTL must be positive")
	}
	if cfg.Reservation.SweepInterval <= 0 || cfg.Reservation.SweepInterval >= cfg.Reservation.HoldTTL {
		return nil, errors.New("config: sweep interval must be positive and shorter than hold TTL")
	}
	if cfg.Pricing.MinMultiplier <= 0 || cfg.Pricing.MaxMultiplier < cfg.Pricing.MinMultiplier {
		return nil, errors.New("config: pricing multiplier bounds invalid")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8085"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
