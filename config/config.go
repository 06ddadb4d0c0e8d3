package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds archiver configuration.
type Config struct {
	BaseURL           string
	OutputDir         string
	StartNumber       int
	Delay             time.Duration
	Timeout           time.Duration
	AllowedExtensions []string
	UserAgent         string
	MetricsAddr       string
	ExistsCacheSize   int
	Verbose           bool
}

// DefaultConfig returns the canonical archiver behavior: start at comic 1,
// stop at the latest comic's date, year-partitioned output under "comics".
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://xkcd.com",
		OutputDir:         "comics",
		StartNumber:       1,
		Delay:             0,
		Timeout:           10 * time.Second,
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif"},
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		MetricsAddr:       "",
		ExistsCacheSize:   4096,
		Verbose:           false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.StartNumber <= 0 {
		return fmt.Errorf("start number must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("allowed extensions cannot be empty")
	}
	if c.ExistsCacheSize <= 0 {
		return fmt.Errorf("exists cache size must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// EnvString reads an environment variable, reporting whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment variable, reporting whether it was
// set and whether it parsed cleanly.
func EnvInt(key string) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, true, nil
}
