// Package config provides configuration loading and structs for the co-pilot server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug       bool              `yaml:"debug"`
	Server      ServerConfig      `yaml:"server"`
	Catalog     CatalogConfig     `yaml:"catalog"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	LLM         LLMConfig         `yaml:"llm"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Storage     StorageConfig     `yaml:"storage"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
}

// CatalogConfig locates the technology spreadsheet and its cache sidecar.
type CatalogConfig struct {
	Path         string `yaml:"path"`
	Sheet        string `yaml:"sheet"`
	MetadataPath string `yaml:"metadata_path"`
	Collection   string `yaml:"collection"`
	Watch        bool   `yaml:"watch"`
}

// VectorStoreConfig selects the similarity search backend.
// The weights only apply to the hybrid type; zero uses 0.3 lexical and 0.7 semantic.
type VectorStoreConfig struct {
	Type           string  `yaml:"type"`
	Path           string  `yaml:"path"`
	QdrantHost     string  `yaml:"qdrant_host"`
	QdrantPort     int     `yaml:"qdrant_port"`
	LexicalWeight  float64 `yaml:"lexical_weight"`
	SemanticWeight float64 `yaml:"semantic_weight"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	CacheSize   int    `yaml:"cache_size"`
	Concurrency int    `yaml:"concurrency"`
}

// LLMConfig holds text generation settings.
type LLMConfig struct {
	Host        string        `yaml:"host"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	TopP        float64       `yaml:"top_p"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RetrievalConfig controls how many candidates are fetched and shown to the model.
type RetrievalConfig struct {
	TopK                int `yaml:"top_k"`
	MaxPromptCandidates int `yaml:"max_prompt_candidates"`
}

// StorageConfig holds the optional submission database path.
// An empty DatabasePath keeps submissions in memory only.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// Load reads and parses the config file at path, applies environment
// overrides and defaults, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Catalog.Path = expandPath(cfg.Catalog.Path, configDir)
	cfg.Catalog.MetadataPath = expandPath(cfg.Catalog.MetadataPath, configDir)
	cfg.VectorStore.Path = expandPath(cfg.VectorStore.Path, configDir)
	if cfg.Storage.DatabasePath != "" {
		cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	}

	return &cfg, nil
}

// Default returns a config with defaults applied, for running without a config file.
// Relative paths stay relative to the working directory.
func Default() *Config {
	var cfg Config
	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	return &cfg
}

// ApplyEnv overrides config values from the environment. A .env file should be
// loaded into the environment before calling it.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("OLLAMA_HOST")); v != "" {
		cfg.LLM.Host = v
	}
	if v := strings.TrimSpace(os.Getenv("COPILOT_CATALOG_PATH")); v != "" {
		cfg.Catalog.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("QDRANT_HOST")); v != "" {
		host, port, found := strings.Cut(v, ":")
		cfg.VectorStore.QdrantHost = host
		if found {
			if p, err := strconv.Atoi(port); err == nil {
				cfg.VectorStore.QdrantPort = p
			}
		}
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
