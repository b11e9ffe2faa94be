// Package plugins derives the set of documentation sources to ingest from a
// lazy.nvim installation: the lazy-lock.json inventory names the plugins,
// and the Lua spec files supply their owner/repo coordinates.
package plugins

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// ownerRepoPattern matches 'owner/repo' strings inside Lua plugin specs,
// regardless of quote style.
var ownerRepoPattern = regexp.MustCompile(`['"]([a-zA-Z0-9_-]+/[a-zA-Z0-9_.-]+)['"]`)

// Config is the source-selection configuration. It is consumed, not owned,
// by the ingestion pipeline.
type Config struct {
	// Overrides maps a plugin name directly to owner/repo for edge cases the
	// spec scan cannot resolve.
	Overrides map[string]string `json:"overrides"`
	// Ignore lists plugins to exclude from ingestion.
	Ignore []string `json:"ignore"`
	// AlwaysInclude lists plugins to process even when absent from the lock
	// file.
	AlwaysInclude []string `json:"always_include"`
}

// DefaultConfig is written on first run when no config file exists.
func DefaultConfig() Config {
	return Config{
		Overrides:     map[string]string{},
		Ignore:        []string{},
		AlwaysInclude: []string{"lazy.nvim"},
	}
}

// LoadConfig reads the source-selection config, creating the default file
// when it does not exist yet.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := writeConfig(path, cfg); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read plugins config: %w", err)
	}

	cfg := Config{Overrides: map[string]string{}}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse plugins config: %w", err)
	}
	if cfg.Overrides == nil {
		cfg.Overrides = map[string]string{}
	}
	return cfg, nil
}

func writeConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write plugins config: %w", err)
	}
	return nil
}

// Extract returns the plugin name to owner/repo mapping for a lazy.nvim
// setup: lock file names minus ignores, resolved against owner/repo strings
// scanned from the Lua specs, with overrides taking precedence and
// always_include entries added last. Unresolvable names are logged, not
// fatal.
func Extract(lockPath, specsDir string, cfg Config) (map[string]string, error) {
	lockData, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read lazy-lock: %w", err)
	}

	var lock map[string]json.RawMessage
	if err := json.Unmarshal(lockData, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lazy-lock: %w", err)
	}

	ignored := make(map[string]struct{}, len(cfg.Ignore))
	for _, name := range cfg.Ignore {
		ignored[name] = struct{}{}
	}

	var names []string
	for name := range lock {
		if _, skip := ignored[name]; !skip {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	ownerRepos, err := scanSpecs(specsDir)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(names))
	var unmatched []string
	for _, name := range names {
		if repo, ok := cfg.Overrides[name]; ok {
			result[name] = repo
			continue
		}
		if repo := matchName(name, ownerRepos); repo != "" {
			result[name] = repo
			continue
		}
		unmatched = append(unmatched, name)
	}

	for _, name := range cfg.AlwaysInclude {
		if _, done := result[name]; done {
			continue
		}
		if repo, ok := cfg.Overrides[name]; ok {
			result[name] = repo
			continue
		}
		if name == "lazy.nvim" {
			// lazy.nvim manages itself and never appears in its own specs.
			result[name] = "folke/lazy.nvim"
			continue
		}
		if repo := matchName(name, ownerRepos); repo != "" {
			result[name] = repo
		}
	}

	if len(unmatched) > 0 {
		slog.Warn("could not resolve owner/repo for plugins; add overrides if needed",
			"plugins", unmatched)
	}

	return result, nil
}

// scanSpecs collects every owner/repo string from the Lua files under dir,
// in a stable order.
func scanSpecs(dir string) ([]string, error) {
	var repos []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".lua") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read spec %s: %w", path, err)
		}
		for _, m := range ownerRepoPattern.FindAllStringSubmatch(string(content), -1) {
			repos = append(repos, m[1])
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan plugin specs: %w", err)
	}
	return repos, nil
}

// matchName resolves a plugin name against scanned owner/repo strings:
// exact repo-name suffix match first, then a normalized comparison that
// ignores case, ".nvim" suffixes, dashes, and underscores.
func matchName(name string, ownerRepos []string) string {
	for _, repo := range ownerRepos {
		if strings.HasSuffix(repo, "/"+name) {
			return repo
		}
	}

	want := normalizeName(name)
	for _, repo := range ownerRepos {
		parts := strings.SplitN(repo, "/", 2)
		if len(parts) == 2 && normalizeName(parts[1]) == want {
			return repo
		}
	}
	return ""
}

func normalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, ".nvim", "")
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, "_", "")
	return name
}
