package config

import (
	"os"
	"path/filepath"
	"testing"
)

// setEnv sets an environment variable, ignoring errors (for test setup)
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
}

// unsetEnv unsets an environment variable, ignoring errors (for test cleanup)
func unsetEnv(key string) {
	_ = os.Unsetenv(key)
}

var configEnvVars = []string{
	"GITHUB_TOKEN", "NVIM_CONFIG_DIR", "DATA_DIR", "INGEST_CONCURRENCY",
	"EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME", "EMBEDDING_API_KEY",
	"DB_PATH", "QDRANT_URL", "QDRANT_COLLECTION", "QDRANT_VECTOR_SIZE",
	"LOG_LEVEL", "LOG_FORMAT",
}

// saveEnv snapshots the config env vars, clears them, and registers a
// cleanup that puts everything back.
func saveEnv(t *testing.T) {
	t.Helper()
	originalEnv := make(map[string]string, len(configEnvVars))
	for _, key := range configEnvVars {
		originalEnv[key] = os.Getenv(key)
		unsetEnv(key)
	}
	t.Cleanup(func() {
		for key, value := range originalEnv {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	saveEnv(t)

	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name: "valid config with all required fields",
			setupEnv: func(t *testing.T) {
				setEnv("NVIM_CONFIG_DIR", t.TempDir())
				setEnv("DATA_DIR", t.TempDir())
				setEnv("QDRANT_VECTOR_SIZE", "1024")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.NvimConfigDir != "" &&
					cfg.DataDir != "" &&
					cfg.QdrantVectorSize == 1024
			},
		},
		{
			name: "missing QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setEnv("NVIM_CONFIG_DIR", t.TempDir())
				setEnv("DATA_DIR", t.TempDir())
			},
			wantErr: true,
		},
		{
			name: "invalid QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setEnv("NVIM_CONFIG_DIR", t.TempDir())
				setEnv("DATA_DIR", t.TempDir())
				setEnv("QDRANT_VECTOR_SIZE", "invalid")
			},
			wantErr: true,
		},
		{
			name: "zero QDRANT_VECTOR_SIZE",
			setupEnv: func(t *testing.T) {
				setEnv("NVIM_CONFIG_DIR", t.TempDir())
				setEnv("DATA_DIR", t.TempDir())
				setEnv("QDRANT_VECTOR_SIZE", "0")
			},
			wantErr: true,
		},
		{
			name: "invalid INGEST_CONCURRENCY",
			setupEnv: func(t *testing.T) {
				setEnv("NVIM_CONFIG_DIR", t.TempDir())
				setEnv("DATA_DIR", t.TempDir())
				setEnv("QDRANT_VECTOR_SIZE", "1024")
				setEnv("INGEST_CONCURRENCY", "lots")
			},
			wantErr: true,
		},
		{
			name: "negative INGEST_CONCURRENCY",
			setupEnv: func(t *testing.T) {
				setEnv("NVIM_CONFIG_DIR", t.TempDir())
				setEnv("DATA_DIR", t.TempDir())
				setEnv("QDRANT_VECTOR_SIZE", "1024")
				setEnv("INGEST_CONCURRENCY", "-2")
			},
			wantErr: true,
		},
		{
			name: "default values for optional fields",
			setupEnv: func(t *testing.T) {
				setEnv("NVIM_CONFIG_DIR", t.TempDir())
				setEnv("DATA_DIR", t.TempDir())
				setEnv("QDRANT_VECTOR_SIZE", "1024")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.Concurrency == 4 &&
					cfg.EmbeddingBaseURL == "http://localhost:8081" &&
					cfg.EmbeddingModelName == "granite-embedding-278m-multilingual" &&
					cfg.EmbeddingAPIKey == "dummy-key" &&
					cfg.QdrantURL == "http://localhost:6333" &&
					cfg.QdrantCollection == "nvim_docs" &&
					cfg.LogLevel == "info" &&
					cfg.LogFormat == "text"
			},
		},
		{
			name: "custom optional values",
			setupEnv: func(t *testing.T) {
				setEnv("NVIM_CONFIG_DIR", t.TempDir())
				setEnv("DATA_DIR", t.TempDir())
				setEnv("QDRANT_VECTOR_SIZE", "768")
				setEnv("INGEST_CONCURRENCY", "8")
				setEnv("EMBEDDING_BASE_URL", "http://custom:9090")
				setEnv("QDRANT_COLLECTION", "custom_docs")
				setEnv("GITHUB_TOKEN", "ghp_testtoken")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.Concurrency == 8 &&
					cfg.EmbeddingBaseURL == "http://custom:9090" &&
					cfg.QdrantCollection == "custom_docs" &&
					cfg.GitHubToken == "ghp_testtoken" &&
					cfg.QdrantVectorSize == 768
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Change to a temp directory without .env file to avoid loading it
			tmpDir := t.TempDir()
			originalWd, _ := os.Getwd()
			_ = os.Chdir(tmpDir)
			defer func() {
				_ = os.Chdir(originalWd)
			}()

			for _, key := range configEnvVars {
				unsetEnv(key)
			}

			tt.setupEnv(t)

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error: %v", err)
				return
			}

			if cfg == nil {
				t.Fatal("Load() returned nil config")
			}

			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config validation failed")
			}
		})
	}
}

func TestLoad_CreatesDataDirectory(t *testing.T) {
	saveEnv(t)

	tmpDir := t.TempDir()
	dataDir := filepath.Join(tmpDir, "nested", "data")

	setEnv("NVIM_CONFIG_DIR", t.TempDir())
	setEnv("DATA_DIR", dataDir)
	setEnv("QDRANT_VECTOR_SIZE", "1024")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Load() should create data directory: %v", err)
	}

	if cfg.DataDir != dataDir {
		t.Errorf("Load() DataDir = %v, want %v", cfg.DataDir, dataDir)
	}
}

func TestConfigPaths(t *testing.T) {
	cfg := &Config{
		NvimConfigDir: "/home/u/.config/nvim",
		DataDir:       "/var/lib/nvimrag",
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"chunks dir", cfg.ChunksDir(), "/var/lib/nvimrag/chunks"},
		{"version cache", cfg.VersionCacheFile(), "/var/lib/nvimrag/versions.json"},
		{"error log", cfg.ErrorLogFile(), "/var/lib/nvimrag/ingestion_errors.json"},
		{"core docs cache", cfg.CoreDocsCacheDir(), "/var/lib/nvimrag/neovim-docs"},
		{"plugins config", cfg.PluginsConfigFile(), "/var/lib/nvimrag/plugins_config.json"},
		{"lock file", cfg.LockFile(), "/home/u/.config/nvim/lazy-lock.json"},
		{"specs dir", cfg.SpecsDir(), "/home/u/.config/nvim/lua/plugins"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	originalValue := os.Getenv("TEST_ENV_VAR")
	defer func() {
		if originalValue != "" {
			setEnv("TEST_ENV_VAR", originalValue)
		} else {
			unsetEnv("TEST_ENV_VAR")
		}
	}()

	tests := []struct {
		name         string
		setupEnv     func()
		key          string
		defaultValue string
		want         string
	}{
		{
			name: "env var set",
			setupEnv: func() {
				setEnv("TEST_ENV_VAR", "set-value")
			},
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "set-value",
		},
		{
			name: "env var not set",
			setupEnv: func() {
				unsetEnv("TEST_ENV_VAR")
			},
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "default",
		},
		{
			name: "empty env var uses default",
			setupEnv: func() {
				setEnv("TEST_ENV_VAR", "")
			},
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupEnv()
			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}
