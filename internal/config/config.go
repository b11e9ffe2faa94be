package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	GitHubToken string

	NvimConfigDir string
	DataDir       string

	Concurrency int

	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingAPIKey    string

	DBPath           string
	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int

	LogLevel  string
	LogFormat string
}

// ChunksDir is where ingestion writes chunk batches and embedding reads them.
func (c *Config) ChunksDir() string { return filepath.Join(c.DataDir, "chunks") }

// VersionCacheFile holds the per-repo last-seen release versions.
func (c *Config) VersionCacheFile() string { return filepath.Join(c.DataDir, "versions.json") }

// ErrorLogFile accumulates per-source ingestion errors across runs.
func (c *Config) ErrorLogFile() string { return filepath.Join(c.DataDir, "ingestion_errors.json") }

// CoreDocsCacheDir is the local clone used for Neovim's own help files.
func (c *Config) CoreDocsCacheDir() string { return filepath.Join(c.DataDir, "neovim-docs") }

// PluginsConfigFile holds per-plugin overrides, ignores and always-include entries.
func (c *Config) PluginsConfigFile() string { return filepath.Join(c.DataDir, "plugins_config.json") }

// LockFile is the lazy.nvim lock file inside the Neovim config.
func (c *Config) LockFile() string { return filepath.Join(c.NvimConfigDir, "lazy-lock.json") }

// SpecsDir is where the Lua plugin specs live inside the Neovim config.
func (c *Config) SpecsDir() string { return filepath.Join(c.NvimConfigDir, "lua", "plugins") }

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		GitHubToken:        os.Getenv("GITHUB_TOKEN"),
		NvimConfigDir:      getEnv("NVIM_CONFIG_DIR", defaultNvimConfigDir()),
		DataDir:            getEnv("DATA_DIR", "./data"),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "granite-embedding-278m-multilingual"),
		EmbeddingAPIKey:    getEnv("EMBEDDING_API_KEY", "dummy-key"),
		DBPath:             getEnv("DB_PATH", "./data/nvimrag.db"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "nvim_docs"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	concurrencyStr := getEnv("INGEST_CONCURRENCY", "4")
	concurrency, err := strconv.Atoi(concurrencyStr)
	if err != nil {
		return nil, fmt.Errorf("INGEST_CONCURRENCY must be a valid integer: %w", err)
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("INGEST_CONCURRENCY must be greater than 0")
	}
	cfg.Concurrency = concurrency

	// Note: This must match the output vector size of the embeddings model.
	// For granite-embedding-278m-multilingual, this is typically 1024 dimensions.
	// If the vector size changes, the Qdrant collection must be recreated.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	if cfg.NvimConfigDir == "" {
		return nil, fmt.Errorf("NVIM_CONFIG_DIR is required")
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// defaultNvimConfigDir follows the standard XDG location.
func defaultNvimConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nvim")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "nvim")
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
