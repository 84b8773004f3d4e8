// Package config holds the collector configuration.
//
// Configuration starts from compiled-in defaults matching the live site,
// optionally overlaid with a YAML file and SNWK_* environment variables
// (a .env file is honored via godotenv). Components receive an explicit
// *Config rather than reading globals, so tests can substitute years, types,
// endpoints and directories freely.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all collector and dashboard settings.
type Config struct {
	// BaseURL is the listing endpoint; detail and subpage URLs are resolved
	// against its host.
	BaseURL string

	// Years and Types define the listing requests: one per (year, type) pair.
	Years []int
	Types []string

	RequestDelay time.Duration
	SubpageDelay time.Duration
	Timeout      time.Duration

	UserAgent string

	// DataDir holds the timestamped JSON snapshot files.
	DataDir string

	// ListenAddr is the dashboard bind address.
	ListenAddr string
}

// Default returns the configuration matching the production scrape.
func Default() *Config {
	return &Config{
		BaseURL:      "https://www.snwktavling.se/?page=resultat",
		Years:        []int{2025, 2024, 2023, 2022, 2021, 2020},
		Types:        []string{"alla"},
		RequestDelay: 2 * time.Second,
		SubpageDelay: 500 * time.Millisecond,
		Timeout:      30 * time.Second,
		UserAgent:    "snwk-statistics-scraper loke@snowcrash.nu",
		DataDir:      "data",
		ListenAddr:   ":8080",
	}
}

// fileConfig mirrors Config for the YAML overlay. Durations are strings in
// Go duration syntax ("2s", "500ms"); absent keys leave the defaults alone.
type fileConfig struct {
	BaseURL      string   `yaml:"base_url"`
	Years        []int    `yaml:"years"`
	Types        []string `yaml:"types"`
	RequestDelay string   `yaml:"request_delay"`
	SubpageDelay string   `yaml:"subpage_delay"`
	Timeout      string   `yaml:"timeout"`
	UserAgent    string   `yaml:"user_agent"`
	DataDir      string   `yaml:"data_dir"`
	ListenAddr   string   `yaml:"listen_addr"`
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence. An empty path skips
// the file overlay; a named file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		if err := cfg.applyFile(&fc); err != nil {
			return nil, err
		}
	}

	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(fc *fileConfig) error {
	if fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if len(fc.Years) > 0 {
		c.Years = fc.Years
	}
	if len(fc.Types) > 0 {
		c.Types = fc.Types
	}
	if fc.UserAgent != "" {
		c.UserAgent = fc.UserAgent
	}
	if fc.DataDir != "" {
		c.DataDir = fc.DataDir
	}
	if fc.ListenAddr != "" {
		c.ListenAddr = fc.ListenAddr
	}

	for _, d := range []struct {
		raw  string
		key  string
		dest *time.Duration
	}{
		{fc.RequestDelay, "request_delay", &c.RequestDelay},
		{fc.SubpageDelay, "subpage_delay", &c.SubpageDelay},
		{fc.Timeout, "timeout", &c.Timeout},
	} {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, d.raw, err)
		}
		*d.dest = parsed
	}

	return nil
}

func (c *Config) applyEnv() {
	c.BaseURL = getEnv("SNWK_BASE_URL", c.BaseURL)
	c.DataDir = getEnv("SNWK_DATA_DIR", c.DataDir)
	c.UserAgent = getEnv("SNWK_USER_AGENT", c.UserAgent)
	c.ListenAddr = getEnv("SNWK_LISTEN_ADDR", c.ListenAddr)

	if v, ok := os.LookupEnv("SNWK_REQUEST_DELAY"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestDelay = d
		}
	}
	if v, ok := os.LookupEnv("SNWK_SUBPAGE_DELAY"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.SubpageDelay = d
		}
	}
	if v, ok := os.LookupEnv("SNWK_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			c.Timeout = d
		}
	}
	if v, ok := os.LookupEnv("SNWK_YEARS"); ok {
		if years := parseYears(v); len(years) > 0 {
			c.Years = years
		}
	}
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url must not be empty")
	}
	if len(c.Years) == 0 {
		return fmt.Errorf("at least one year is required")
	}
	if len(c.Types) == 0 {
		return fmt.Errorf("at least one competition type is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// parseYears parses a comma-separated year list, e.g. "2024,2025".
func parseYears(s string) []int {
	var years []int
	for _, part := range strings.Split(s, ",") {
		if y, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			years = append(years, y)
		}
	}
	return years
}
