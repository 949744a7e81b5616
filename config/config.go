package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken   string
	DiscordGuildID string
	AdminRoleID    string

	// Database configuration
	DatabaseURL string

	// Bot configuration
	StartingBalance  int64  // Balance granted on first touch
	MinimumStake     int64  // Smallest allowed wager amount
	DailyClaimAmount int64  // Points granted by the daily claim
	TeamName         string // The organization's own team name

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// GuildID returns the home guild's numeric ID, or 0 when unset
func (c *Config) GuildID() int64 {
	id, _ := strconv.ParseInt(c.DiscordGuildID, 10, 64)
	return id
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// Best-effort local .env; production supplies real env vars
	_ = godotenv.Load()

	config := &Config{
		// Discord
		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID: os.Getenv("DISCORD_GUILD_ID"),
		AdminRoleID:    os.Getenv("ADMIN_ROLE_ID"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Bot settings with defaults
		StartingBalance:  1000,
		MinimumStake:     25,
		DailyClaimAmount: 250,
		TeamName:         os.Getenv("TEAM_NAME"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if balance := os.Getenv("STARTING_BALANCE"); balance != "" {
		if parsedBalance, err := strconv.ParseInt(balance, 10, 64); err == nil {
			config.StartingBalance = parsedBalance
		}
	}
	if stake := os.Getenv("MINIMUM_STAKE"); stake != "" {
		if parsedStake, err := strconv.ParseInt(stake, 10, 64); err == nil {
			config.MinimumStake = parsedStake
		}
	}
	if claim := os.Getenv("DAILY_CLAIM_AMOUNT"); claim != "" {
		if parsedClaim, err := strconv.ParseInt(claim, 10, 64); err == nil {
			config.DailyClaimAmount = parsedClaim
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:      "test",
		DiscordGuildID:   "900000",
		StartingBalance:  1000,
		MinimumStake:     25,
		DailyClaimAmount: 250,
		TeamName:         "Scrims",
	}
}
