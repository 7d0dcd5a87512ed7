// Package config loads the settings of the cryptovault commands.
//
// Settings are layered, each layer overriding the previous one:
//
//  1. built-in defaults
//  2. a YAML file
//  3. a .env file, loaded into the process environment
//  4. CV_* environment variables
//
// Command line flags are applied last by the commands themselves.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/etnz/cryptovault"
	"github.com/etnz/cryptovault/coingecko"
	"github.com/etnz/cryptovault/store"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the YAML file read when no explicit path is given.
const DefaultFile = "cryptovault.yaml"

// DotEnvFile is loaded into the environment when present.
const DotEnvFile = ".env"

// Config holds every setting of the commands.
type Config struct {
	Currency        string        `yaml:"currency" env:"CV_CURRENCY" validate:"required"`
	Storage         string        `yaml:"storage" env:"CV_STORAGE" validate:"required"`
	RefreshInterval time.Duration `yaml:"refresh_interval" env:"CV_REFRESH_INTERVAL" validate:"min=1s"`

	CoinGecko struct {
		URL      string        `yaml:"url" env:"CV_COINGECKO_URL" validate:"required,url"`
		APIKey   string        `yaml:"api_key" env:"CV_COINGECKO_API_KEY"`
		CacheTTL time.Duration `yaml:"cache_ttl" env:"CV_CACHE_TTL" validate:"min=0s"`
	} `yaml:"coingecko"`

	Server struct {
		Addr       string `yaml:"addr" env:"CV_LISTEN_ADDR" validate:"required"`
		CORSOrigin string `yaml:"cors_origin" env:"CV_CORS_ORIGIN"`
	} `yaml:"server"`

	LogLevel string `yaml:"log_level" env:"CV_LOG_LEVEL" validate:"oneof=debug info warn error"`
}

// Default returns the built-in settings.
func Default() Config {
	var c Config
	c.Currency = cryptovault.DefaultCurrency
	c.Storage = store.DefaultSpec
	c.RefreshInterval = 60 * time.Second
	c.CoinGecko.URL = coingecko.DefaultBaseURL
	c.CoinGecko.CacheTTL = 30 * time.Second
	c.Server.Addr = ":8080"
	c.Server.CORSOrigin = "*"
	c.LogLevel = "info"
	return c
}

// Load reads the settings layer by layer.
//
// An empty path reads DefaultFile if it exists. An explicit path must exist.
func Load(path string) (Config, error) {
	c := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := c.readYAML(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return c, err
		}
	}

	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return c, fmt.Errorf("cannot load %s: %w", DotEnvFile, err)
	}
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("cannot read environment: %w", err)
	}
	return c, c.Validate()
}

func (c *Config) readYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings once all layers have been applied.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := cryptovault.NewDisplay(c.Currency); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
