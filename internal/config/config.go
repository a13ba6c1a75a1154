// Package config holds the credlens runtime configuration.
// Configuration is loaded from credlens.yaml with environment overrides
// applied on top, mirroring how the CLI flags layer over both.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all credlens configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Dataset locations
	Datasets DatasetsConfig `yaml:"datasets"`

	// Quality scoring
	Scoring ScoringConfig `yaml:"scoring"`

	// Entity-resolution and validity thresholds
	Thresholds ThresholdsConfig `yaml:"thresholds"`

	// Embedding engine for the semantic intent classifier
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Optional local LLM intent classification
	LLM LLMConfig `yaml:"llm"`

	// SQLite persistence
	Store StoreConfig `yaml:"store"`

	// HTTP server
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DatasetsConfig points at the CSV inputs.
type DatasetsConfig struct {
	Dir         string `yaml:"dir"`
	Roster      string `yaml:"roster"`
	NYLicenses  string `yaml:"ny_licenses"`
	CALicenses  string `yaml:"ca_licenses"`
	NPIRegistry string `yaml:"npi_registry"`

	// Watch reloads datasets when the CSVs change (serve mode).
	Watch bool `yaml:"watch"`
}

// ScoringConfig holds the per-category weights of the quality score.
// Weights are expected to sum to 100.
type ScoringConfig struct {
	License       int `yaml:"license"`
	NPI           int `yaml:"npi"`
	Duplicates    int `yaml:"duplicates"`
	ContactFormat int `yaml:"contact_format"`
	Mismatches    int `yaml:"mismatches"`
}

// Total returns the sum of all weights.
func (s ScoringConfig) Total() int {
	return s.License + s.NPI + s.Duplicates + s.ContactFormat + s.Mismatches
}

// ThresholdsConfig holds entity-resolution and validity thresholds.
type ThresholdsConfig struct {
	// NameSimilarityMin is the 0-100 similarity ratio above which two
	// provider names are considered the same entity.
	NameSimilarityMin float64 `yaml:"name_similarity_min"`

	// BlockKeyLen is the minimum blocking-key length for duplicate detection.
	BlockKeyLen int `yaml:"block_key_len"`

	// PhoneRegion is the region used for phone normalization.
	PhoneRegion string `yaml:"phone_region"`

	// ExpiryWindowDays is the default look-ahead for expiration filters.
	ExpiryWindowDays int `yaml:"expiry_window_days"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	// Provider: "ollama" or "genai". Empty disables semantic classification.
	Provider string `yaml:"provider"`

	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`

	GenAIAPIKey string `yaml:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model"`
}

// LLMConfig configures local LLM intent classification via Ollama.
type LLMConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Model   string `yaml:"model"`
}

// StoreConfig configures SQLite persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "credlens",
		Version: "1.0.0",
		Datasets: DatasetsConfig{
			Dir:         "datasets",
			Roster:      "provider_roster_with_errors.csv",
			NYLicenses:  "ny_medical_license_database.csv",
			CALicenses:  "ca_medical_license_database.csv",
			NPIRegistry: "mock_npi_registry.csv",
		},
		Scoring: ScoringConfig{
			License:       35,
			NPI:           25,
			Duplicates:    15,
			ContactFormat: 15,
			Mismatches:    10,
		},
		Thresholds: ThresholdsConfig{
			NameSimilarityMin: 85.0,
			BlockKeyLen:       2,
			PhoneRegion:       "US",
			ExpiryWindowDays:  90,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
		},
		LLM: LLMConfig{
			Enabled: false,
			Host:    "http://127.0.0.1:11434",
			Model:   "llama3.1:8b-instruct",
		},
		Store: StoreConfig{
			DatabasePath: filepath.Join(".credlens", "credlens.db"),
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads a config file, applies defaults for missing fields and
// environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file is fine: defaults + env.
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// applyEnvOverrides layers environment variables over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CREDLENS_DATASETS_DIR"); v != "" {
		c.Datasets.Dir = v
	}
	if v := os.Getenv("CREDLENS_DB_PATH"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("CREDLENS_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.Embedding.OllamaEndpoint = v
		c.LLM.Host = v
	}
	if v := os.Getenv("GENAI_API_KEY"); v != "" {
		c.Embedding.GenAIAPIKey = v
	}
	if v := os.Getenv("CREDLENS_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	switch os.Getenv("CREDLENS_USE_LOCAL_LLM") {
	case "1", "true", "yes":
		c.LLM.Enabled = true
	case "0", "false", "no":
		c.LLM.Enabled = false
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Scoring.Total() != 100 {
		return fmt.Errorf("scoring weights must sum to 100, got %d", c.Scoring.Total())
	}
	if c.Thresholds.NameSimilarityMin < 0 || c.Thresholds.NameSimilarityMin > 100 {
		return fmt.Errorf("name_similarity_min must be within [0,100], got %.1f", c.Thresholds.NameSimilarityMin)
	}
	if c.Thresholds.ExpiryWindowDays <= 0 {
		return fmt.Errorf("expiry_window_days must be positive, got %d", c.Thresholds.ExpiryWindowDays)
	}
	switch c.Embedding.Provider {
	case "", "ollama", "genai":
	default:
		return fmt.Errorf("unsupported embedding provider: %s (use 'ollama' or 'genai')", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "genai" && c.Embedding.GenAIAPIKey == "" {
		return fmt.Errorf("genai embedding provider requires an API key")
	}
	return nil
}
