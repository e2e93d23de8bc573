package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port        string        `yaml:"port"`
	HTTPTimeout time.Duration `yaml:"httpTimeout"`

	// NASA POWER daily point API.
	PowerBaseURL   string `yaml:"powerBaseUrl"`
	PowerCommunity string `yaml:"powerCommunity"`

	// Google Custom Search for crop conditions. Empty key or engine id disables it.
	SearchBaseURL  string `yaml:"searchBaseUrl"`
	SearchAPIKey   string `yaml:"searchApiKey"`
	SearchEngineID string `yaml:"searchEngineId"`

	// Used by the Places widget in the page and by CLI geocoding.
	GoogleMapsAPIKey string `yaml:"googleMapsApiKey"`

	// HistoryDBPath is the SQLite file holding query history; empty keeps it in memory.
	HistoryDBPath string `yaml:"historyDbPath"`

	IdealTemperature    float64       `yaml:"idealTemperature"`
	SessionTTL          time.Duration `yaml:"sessionTtl"`
	MaintenanceInterval time.Duration `yaml:"maintenanceInterval"`
	LogLevel            string        `yaml:"logLevel"`
}

func defaults() *AppConfig {
	return &AppConfig{
		Port:                "8080",
		HTTPTimeout:         15 * time.Second,
		PowerCommunity:      "AG",
		HistoryDBPath:       "harvest-history.db",
		IdealTemperature:    25,
		SessionTTL:          30 * time.Minute,
		MaintenanceInterval: 15 * time.Minute,
		LogLevel:            "info",
	}
}

// Load reads configuration with sensible defaults, then the YAML file named by
// CONFIG_PATH, then .env and the environment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func hydrateFromFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *AppConfig) error {
	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.PowerBaseURL = getenvDefault("POWER_BASE_URL", cfg.PowerBaseURL)
	cfg.PowerCommunity = getenvDefault("POWER_COMMUNITY", cfg.PowerCommunity)
	cfg.SearchBaseURL = getenvDefault("SEARCH_BASE_URL", cfg.SearchBaseURL)
	cfg.SearchAPIKey = getenvDefault("SEARCH_API_KEY", cfg.SearchAPIKey)
	cfg.SearchEngineID = getenvDefault("SEARCH_ENGINE_ID", cfg.SearchEngineID)
	cfg.GoogleMapsAPIKey = getenvDefault("GOOGLE_MAPS_API_KEY", cfg.GoogleMapsAPIKey)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)

	// Set but empty means in-memory history.
	if v, ok := os.LookupEnv("HISTORY_DB_PATH"); ok {
		cfg.HistoryDBPath = strings.TrimSpace(v)
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", cfg.HTTPTimeout); err != nil {
		return err
	}
	if cfg.SessionTTL, err = getenvDuration("SESSION_TTL", cfg.SessionTTL); err != nil {
		return err
	}
	if cfg.MaintenanceInterval, err = getenvDuration("MAINTENANCE_INTERVAL", cfg.MaintenanceInterval); err != nil {
		return err
	}

	if v := os.Getenv("IDEAL_TEMPERATURE"); v != "" {
		ideal, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid IDEAL_TEMPERATURE: %w", err)
		}
		cfg.IdealTemperature = ideal
	}
	return nil
}

// Validate checks ranges that would otherwise fail at first use.
func (c *AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Port) == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("httpTimeout must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("sessionTtl must be positive"))
	}
	if c.MaintenanceInterval < 0 {
		errs = append(errs, errors.New("maintenanceInterval must not be negative"))
	}
	if c.IdealTemperature < -90 || c.IdealTemperature > 60 {
		errs = append(errs, fmt.Errorf("idealTemperature %v is outside -90..60", c.IdealTemperature))
	}
	return errors.Join(errs...)
}

// SearchEnabled reports whether crop search credentials are present.
func (c *AppConfig) SearchEnabled() bool {
	return c.SearchAPIKey != "" && c.SearchEngineID != ""
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
