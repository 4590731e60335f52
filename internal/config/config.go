// Package config provides configuration loading and validation for the
// server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Defaults applied when neither the environment nor a config file provides a
// value.
const (
	DefaultListenAddr        = ":8080"
	DefaultRunBudgetMinutes  = 5
	DefaultMaxConcurrentRuns = 4
)

// Config is the application configuration. Values come from the environment,
// optionally overridden by a JSON config file. All fields are optional at
// load time; Validate enforces what a given entry point actually requires.
type Config struct {
	// Core services
	DatabaseURL  string `json:"database_url,omitempty"`   // PostgreSQL connection URL
	GeminiAPIKey string `json:"gemini_api_key,omitempty"` // Gemini API key

	// Optional web-search augmentation for the research stage
	SearchAPIKey   string `json:"search_api_key,omitempty"`
	SearchEngineID string `json:"search_engine_id,omitempty"`

	// Model selection, empty values use the built-in defaults
	StandardModel string `json:"standard_model,omitempty"`
	AdvancedModel string `json:"advanced_model,omitempty"`

	// Server
	ListenAddr string `json:"listen_addr,omitempty"`

	// Pipeline limits
	RunBudgetMinutes  int `json:"run_budget_minutes,omitempty"`
	MaxConcurrentRuns int `json:"max_concurrent_runs,omitempty"`

	Verbose bool `json:"verbose,omitempty"`
}

// FromEnv builds a Config from environment variables, applying defaults for
// anything unset.
func FromEnv() *Config {
	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		SearchAPIKey:   os.Getenv("SEARCH_API_KEY"),
		SearchEngineID: os.Getenv("SEARCH_ENGINE_ID"),
		StandardModel:  os.Getenv("GEMINI_STANDARD_MODEL"),
		AdvancedModel:  os.Getenv("GEMINI_ADVANCED_MODEL"),
		ListenAddr:     os.Getenv("LISTEN_ADDR"),
	}
	cfg.applyDefaults()
	return cfg
}

// LoadFile loads configuration overrides from a JSON file and merges them
// over the receiver. Zero-valued file fields leave the existing values alone.
func (c *Config) LoadFile(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var overrides Config
	if err := json.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}

	c.merge(overrides)
	c.applyDefaults()
	return nil
}

func (c *Config) merge(o Config) {
	if o.DatabaseURL != "" {
		c.DatabaseURL = o.DatabaseURL
	}
	if o.GeminiAPIKey != "" {
		c.GeminiAPIKey = o.GeminiAPIKey
	}
	if o.SearchAPIKey != "" {
		c.SearchAPIKey = o.SearchAPIKey
	}
	if o.SearchEngineID != "" {
		c.SearchEngineID = o.SearchEngineID
	}
	if o.StandardModel != "" {
		c.StandardModel = o.StandardModel
	}
	if o.AdvancedModel != "" {
		c.AdvancedModel = o.AdvancedModel
	}
	if o.ListenAddr != "" {
		c.ListenAddr = o.ListenAddr
	}
	if o.RunBudgetMinutes != 0 {
		c.RunBudgetMinutes = o.RunBudgetMinutes
	}
	if o.MaxConcurrentRuns != 0 {
		c.MaxConcurrentRuns = o.MaxConcurrentRuns
	}
	if o.Verbose {
		c.Verbose = true
	}
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.RunBudgetMinutes == 0 {
		c.RunBudgetMinutes = DefaultRunBudgetMinutes
	}
	if c.MaxConcurrentRuns == 0 {
		c.MaxConcurrentRuns = DefaultMaxConcurrentRuns
	}
}

// Validate checks value ranges. Required fields depend on the entry point
// and are checked by ValidateServer or the CLI after flag merging.
func (c *Config) Validate() error {
	if c.RunBudgetMinutes < 1 {
		return fmt.Errorf("config error: 'run_budget_minutes' must be at least 1")
	}
	if c.MaxConcurrentRuns < 1 {
		return fmt.Errorf("config error: 'max_concurrent_runs' must be at least 1")
	}
	// Search credentials travel together.
	if (c.SearchAPIKey == "") != (c.SearchEngineID == "") {
		return fmt.Errorf("config error: 'search_api_key' and 'search_engine_id' must both be set or both be empty")
	}
	return nil
}

// ValidateServer checks everything the HTTP server needs to start.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("config error: 'database_url' is required (set DATABASE_URL)")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("config error: 'gemini_api_key' is required (set GEMINI_API_KEY)")
	}
	return nil
}

// RunBudget returns the per-run wall-clock budget.
func (c *Config) RunBudget() time.Duration {
	return time.Duration(c.RunBudgetMinutes) * time.Minute
}
