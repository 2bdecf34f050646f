package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the server
type Config struct {
	Addr      string `yaml:"addr"`
	ClientDir string `yaml:"client_dir"`
	Database  string `yaml:"database"`
	Debug     bool   `yaml:"debug"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Mail      MailConfig      `yaml:"mail"`
	Admin     AdminConfig     `yaml:"admin"`
	Audio     AudioConfig     `yaml:"audio"`
	Stream    StreamConfig    `yaml:"stream"`
}

// RateLimitConfig configures the request limiters
type RateLimitConfig struct {
	Store       string        `yaml:"store"` // "memory" or "sqlite"
	Testimonial LimitPolicy   `yaml:"testimonial"`
	Login       LimitPolicy   `yaml:"login"`
	Janitor     time.Duration `yaml:"janitor"`
}

// MailConfig configures the transactional email provider
type MailConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	From    string        `yaml:"from"`
	To      string        `yaml:"to"`
	Timeout time.Duration `yaml:"timeout"`
}

// AdminConfig configures the single admin account
type AdminConfig struct {
	Username     string        `yaml:"username"`
	PasswordHash string        `yaml:"password_hash"` // bcrypt
	JWTSecret    string        `yaml:"jwt_secret"`    // hex; generated and persisted when empty
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// AudioConfig configures cue synthesis
type AudioConfig struct {
	SampleRate int     `yaml:"sample_rate"`
	Volume     float64 `yaml:"volume"`
	Muted      bool    `yaml:"muted"`
}

// StreamConfig bounds the menu stream
type StreamConfig struct {
	MaxConnsPerIP int `yaml:"max_conns_per_ip"`
	MaxTotalConns int `yaml:"max_total_conns"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Addr:      ":8080",
		ClientDir: "../client",
		Database:  "nexus.db",
		RateLimit: RateLimitConfig{
			Store:       "memory",
			Testimonial: LimitPolicy{Window: 5 * time.Minute, Max: 1},
			Login:       LimitPolicy{Window: time.Minute, Max: 10},
			Janitor:     time.Minute,
		},
		Mail: MailConfig{
			BaseURL: "https://api.resend.com",
			From:    "Nexus Space Portfolio <onboarding@resend.dev>",
			To:      "zidaneachmadnurjayyin@gmail.com",
			Timeout: 10 * time.Second,
		},
		Admin: AdminConfig{
			Username: "admin",
			TokenTTL: 24 * time.Hour,
		},
		Audio: AudioConfig{
			SampleRate: 44100,
			Volume:     1,
		},
		Stream: StreamConfig{
			MaxConnsPerIP: 5,
			MaxTotalConns: 1000,
		},
	}
}

// LoadConfig reads path (missing file means defaults), then .env, then
// environment overrides. envFile may be empty.
func LoadConfig(path, envFile string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if envFile != "" {
		// godotenv never overrides variables already set in the environment
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("NEXUS_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("NEXUS_DB"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("NEXUS_CLIENT_DIR"); v != "" {
		c.ClientDir = v
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		c.Mail.APIKey = v
	}
	if v := os.Getenv("NEXUS_ADMIN_USER"); v != "" {
		c.Admin.Username = v
	}
	if v := os.Getenv("NEXUS_ADMIN_HASH"); v != "" {
		c.Admin.PasswordHash = v
	}
	if v := os.Getenv("NEXUS_JWT_SECRET"); v != "" {
		c.Admin.JWTSecret = v
	}
	if v := os.Getenv("NEXUS_RATE_LIMIT_STORE"); v != "" {
		c.RateLimit.Store = v
	}
	if v := os.Getenv("NEXUS_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NEXUS_DEBUG: %w", err)
		}
		c.Debug = b
	}
	return nil
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.Database == "" {
		return errors.New("database path must not be empty")
	}
	switch c.RateLimit.Store {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("invalid rate limit store %q (valid: memory, sqlite)", c.RateLimit.Store)
	}
	if err := c.RateLimit.Testimonial.validate(); err != nil {
		return fmt.Errorf("testimonial: %w", err)
	}
	if err := c.RateLimit.Login.validate(); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if c.RateLimit.Janitor <= 0 {
		return errors.New("rate limit janitor interval must be positive")
	}
	if c.Mail.Timeout <= 0 {
		return errors.New("mail timeout must be positive")
	}
	if c.Admin.TokenTTL <= 0 {
		return errors.New("admin token ttl must be positive")
	}
	if c.Audio.SampleRate < 8000 {
		return fmt.Errorf("audio sample rate too low: %d", c.Audio.SampleRate)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("audio volume must be in [0, 1], got %g", c.Audio.Volume)
	}
	if c.Stream.MaxConnsPerIP < 1 || c.Stream.MaxTotalConns < c.Stream.MaxConnsPerIP {
		return errors.New("stream connection limits are inconsistent")
	}
	return nil
}
