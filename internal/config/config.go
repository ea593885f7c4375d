package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Backend names the record store the application runs against
type Backend string

const (
	BackendSheets   Backend = "sheets"
	BackendPostgres Backend = "postgres"
	BackendRedis    Backend = "redis"
	BackendXLSX     Backend = "xlsx"
	BackendMemory   Backend = "memory"
)

const (
	DefaultTimezone            = "Europe/Rome"
	DefaultBoardDurationDays   = 7
	DefaultBoardMaxDays        = 60
	DefaultInitialPassword     = "1234"
	DefaultRedisKeyPrefix      = "fieldops"
	configFilePrefix           = "fieldops_config"
	defaultRecentRequestsLimit = 5
)

// SheetsConfig configures the Google Sheets backend
type SheetsConfig struct {
	DatabaseSheetID string `yaml:"databaseSheetID"`
}

// PostgresConfig configures the PostgreSQL backend
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the Redis backend
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password,omitempty"`
	DB        int    `yaml:"db" validate:"min=0"`
	KeyPrefix string `yaml:"keyPrefix,omitempty"`
}

// XLSXConfig configures the local workbook backend
type XLSXConfig struct {
	Path string `yaml:"path"`
}

// BoardConfig bounds announcement lifetimes
type BoardConfig struct {
	DefaultDurationDays int `yaml:"defaultDurationDays" validate:"min=1,ltefield=MaxDurationDays"`
	MaxDurationDays     int `yaml:"maxDurationDays" validate:"min=1,max=365"`
}

// RosterConfig controls credentials handed to new workers
type RosterConfig struct {
	InitialPassword     string `yaml:"initialPassword" validate:"required"`
	BcryptCost          int    `yaml:"bcryptCost" validate:"min=4,max=31"`
	RecentRequestsLimit int    `yaml:"recentRequestsLimit" validate:"min=1"`
}

// Config represents the application configuration
type Config struct {
	Backend  Backend        `yaml:"backend" validate:"required,oneof=sheets postgres redis xlsx memory"`
	Timezone string         `yaml:"timezone" validate:"required"`
	Sheets   SheetsConfig   `yaml:"sheets,omitempty"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
	Redis    RedisConfig    `yaml:"redis,omitempty"`
	XLSX     XLSXConfig     `yaml:"xlsx,omitempty"`
	Board    BoardConfig    `yaml:"board"`
	Roster   RosterConfig   `yaml:"roster"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Location returns the configured time zone. Validate guarantees it loads.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load loads and validates the configuration from fieldops_config.yaml
// It looks for the config file in the current directory first, then in the user's home directory
func Load() (*Config, error) {
	return LoadWithEnv("")
}

// LoadWithEnv loads the configuration for an environment.
// For example, env="test" will look for "fieldops_config.test.yaml"
func LoadWithEnv(env string) (*Config, error) {
	configPath, err := findConfigFile(env)
	if err != nil {
		return nil, fmt.Errorf("failed to find config file: %w", err)
	}

	return LoadFromPath(configPath)
}

// LoadFromPath loads and validates the configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	if cfg.Board.MaxDurationDays == 0 {
		cfg.Board.MaxDurationDays = DefaultBoardMaxDays
	}
	if cfg.Board.DefaultDurationDays == 0 {
		cfg.Board.DefaultDurationDays = DefaultBoardDurationDays
	}
	if cfg.Roster.InitialPassword == "" {
		cfg.Roster.InitialPassword = DefaultInitialPassword
	}
	if cfg.Roster.BcryptCost == 0 {
		cfg.Roster.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Roster.RecentRequestsLimit == 0 {
		cfg.Roster.RecentRequestsLimit = defaultRecentRequestsLimit
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
}

// Validate validates the configuration struct, the time zone and the
// settings of the selected backend
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	switch cfg.Backend {
	case BackendSheets:
		if cfg.Sheets.DatabaseSheetID == "" {
			return fmt.Errorf("config validation failed: sheets.databaseSheetID is required for the sheets backend")
		}
	case BackendPostgres:
		if cfg.Postgres.DSN == "" {
			return fmt.Errorf("config validation failed: postgres.dsn is required for the postgres backend")
		}
	case BackendRedis:
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("config validation failed: redis.addr is required for the redis backend")
		}
	case BackendXLSX:
		if cfg.XLSX.Path == "" {
			return fmt.Errorf("config validation failed: xlsx.path is required for the xlsx backend")
		}
	}

	return nil
}

// findConfigFile returns fieldops_config.<env>.yaml, or fieldops_config.yaml
// when env is empty
func findConfigFile(env string) (string, error) {
	name := configFilePrefix + ".yaml"
	if env != "" {
		name = configFilePrefix + "." + env + ".yaml"
	}
	return locate(name)
}
