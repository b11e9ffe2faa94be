// Package release tracks the last-observed upstream version per repository
// and decides whether a documentation source needs re-processing.
package release

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_lookup.go -package=mocks nvimrag/internal/release Lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// VersionUnknown is the sentinel a Lookup returns when no version signal is
// available (no releases and no resolvable commits).
const VersionUnknown = "unknown"

// Lookup resolves the latest version identifier for a repository: a release
// tag if one exists, otherwise an abbreviated commit id for the default
// branch, otherwise VersionUnknown.
type Lookup interface {
	LatestVersion(ctx context.Context, owner, repo string) (string, error)
}

// Tracker persists a mapping from "owner/repo" to the last version it
// observed as current. The cache is only ever advanced when a newer version
// is confirmed; failed or indeterminate lookups leave it untouched.
type Tracker struct {
	cacheFile string
	lookup    Lookup
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]string
}

// NewTracker creates a tracker backed by cacheFile. A missing or unreadable
// cache file starts the tracker empty.
func NewTracker(cacheFile string, lookup Lookup) *Tracker {
	t := &Tracker{
		cacheFile: cacheFile,
		lookup:    lookup,
		logger:    slog.Default(),
		cache:     map[string]string{},
	}

	data, err := os.ReadFile(cacheFile)
	if err == nil {
		if err := json.Unmarshal(data, &t.cache); err != nil {
			t.logger.Warn("ignoring malformed release cache", "path", cacheFile, "error", err)
			t.cache = map[string]string{}
		}
	}
	return t
}

// NeedsUpdate reports whether owner/repo has a version the tracker has not
// seen. An indeterminate lookup returns false and leaves the cache alone, so
// transient failures never trigger spurious re-fetching. When a new version
// is confirmed the cache is persisted immediately; a persist failure is
// returned as an error since it would break the cache/worked-on invariant.
func (t *Tracker) NeedsUpdate(ctx context.Context, owner, repo string) (bool, error) {
	latest, err := t.lookup.LatestVersion(ctx, owner, repo)
	if err != nil {
		t.logger.Debug("release lookup failed", "owner", owner, "repo", repo, "error", err)
		return false, nil
	}
	if latest == VersionUnknown || latest == "" {
		return false, nil
	}

	key := owner + "/" + repo

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cache[key] == latest {
		return false, nil
	}

	t.cache[key] = latest
	if err := t.saveLocked(); err != nil {
		return false, fmt.Errorf("failed to persist release cache: %w", err)
	}
	return true, nil
}

// Cached returns the last-observed version for key, if any.
func (t *Tracker) Cached(key string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.cache[key]
	return v, ok
}

// saveLocked rewrites the whole cache file. Callers must hold t.mu.
func (t *Tracker) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(t.cacheFile), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(t.cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.cacheFile, data, 0644)
}
