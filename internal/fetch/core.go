package fetch

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

const coreRepoURL = "https://github.com/neovim/neovim.git"

// CoreDocFetcher maintains a sparse git checkout of the Neovim repository
// (runtime/doc only) and reads the help files from it.
type CoreDocFetcher struct {
	cacheDir string
	logger   *slog.Logger
}

// NewCoreDocFetcher creates a fetcher that keeps its checkout under
// cacheDir/neovim.
func NewCoreDocFetcher(cacheDir string) *CoreDocFetcher {
	return &CoreDocFetcher{cacheDir: cacheDir, logger: slog.Default()}
}

// FetchDocFiles clones or updates the checkout and returns every help file
// from runtime/doc, sorted by name. A failed pull on an existing checkout
// falls back to the cached files.
func (f *CoreDocFetcher) FetchDocFiles(ctx context.Context) ([]File, error) {
	repoPath := filepath.Join(f.cacheDir, "neovim")
	docPath := filepath.Join(repoPath, "runtime", "doc")

	if _, err := os.Stat(repoPath); err == nil {
		if err := f.git(ctx, "-C", repoPath, "pull"); err != nil {
			f.logger.Warn("failed to update neovim checkout, using cached docs", "error", err)
		}
	} else {
		if err := f.git(ctx, "clone", "--depth", "1", "--filter=blob:none", "--sparse", coreRepoURL, repoPath); err != nil {
			return nil, fmt.Errorf("failed to clone neovim repo: %w", err)
		}
		if err := f.git(ctx, "-C", repoPath, "sparse-checkout", "set", "runtime/doc"); err != nil {
			return nil, fmt.Errorf("failed to configure sparse checkout: %w", err)
		}
	}

	if _, err := os.Stat(docPath); err != nil {
		return nil, fmt.Errorf("doc directory not found at %s", docPath)
	}

	entries, err := os.ReadDir(docPath)
	if err != nil {
		return nil, fmt.Errorf("failed to list doc directory: %w", err)
	}

	var files []File
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		content, err := os.ReadFile(filepath.Join(docPath, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		files = append(files, File{Name: entry.Name(), Content: string(content)})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// git runs a git command, capturing stderr for error reporting.
func (f *CoreDocFetcher) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("git %s: %s", args[0], msg)
		}
		return fmt.Errorf("git %s: %w", args[0], err)
	}
	return nil
}
