package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DatabasePath string

	// Anthropic API
	AnthropicAPIKey string
	ClaudeModel     string

	// Notion
	NotionAPIKey     string
	TweetsDatabaseID string
	PromptPageID     string // optional page holding a custom style guide

	// Generation
	NewsletterLink string
	MultiPass      bool
	MaxConcepts    int

	// HTTP server
	Port string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:     getEnv("DATABASE_PATH", "data/emailtotweet.db"),
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		ClaudeModel:      getEnv("CLAUDE_MODEL", ""),
		NotionAPIKey:     getEnv("NOTION_API_KEY", ""),
		TweetsDatabaseID: getEnv("NOTION_TWEETS_DATABASE_ID", ""),
		PromptPageID:     getEnv("PROMPT_PAGE_ID", ""),
		NewsletterLink:   getEnv("NEWSLETTER_LINK", "https://the2hourclo.com/newsletter"),
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	multiPass, err := strconv.ParseBool(getEnv("MULTI_PASS", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid MULTI_PASS: %w", err)
	}
	cfg.MultiPass = multiPass

	maxConcepts, err := strconv.Atoi(getEnv("MAX_CONCEPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_CONCEPTS: %w", err)
	}
	cfg.MaxConcepts = maxConcepts

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

// ValidateForGeneration checks configuration needed to run the pipeline.
func (c *Config) ValidateForGeneration() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required for generation")
	}
	if c.NotionAPIKey == "" {
		return fmt.Errorf("NOTION_API_KEY is required for generation")
	}
	if c.TweetsDatabaseID == "" {
		return fmt.Errorf("NOTION_TWEETS_DATABASE_ID is required for generation")
	}
	return nil
}

// ValidateForServe checks all configuration needed for serve mode.
func (c *Config) ValidateForServe() error {
	if err := c.ValidateForGeneration(); err != nil {
		return err
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
