// Command ingest fetches Neovim documentation (core help files plus the
// plugins found in a lazy.nvim setup), segments it into chunks, and stores
// chunk batches on disk for the embed command to pick up.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"

	"nvimrag/internal/config"
	"nvimrag/internal/contextutil"
	"nvimrag/internal/errlog"
	"nvimrag/internal/fetch"
	"nvimrag/internal/ingest"
	"nvimrag/internal/release"
)

func main() {
	force := flag.Bool("force", false, "re-process every source, ignoring the release cache")
	concurrency := flag.Int("concurrency", 0, "sources fetched in parallel (default from INGEST_CONCURRENCY)")
	skipCore := flag.Bool("skip-core", false, "skip Neovim core help files")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ingest [options]

Fetches documentation for Neovim core and every plugin in your lazy.nvim
setup, segments it into chunks, and writes chunk batches under the data
directory. Only sources with a new upstream release are re-fetched.

Options:
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	ctx := contextutil.WithLogger(context.Background(), logger)

	workers := cfg.Concurrency
	if *concurrency > 0 {
		workers = *concurrency
	}

	lookup := release.NewGitHubLookup(cfg.GitHubToken)
	tracker := release.NewTracker(cfg.VersionCacheFile(), lookup)
	errs := errlog.New(cfg.ErrorLogFile())

	params := ingest.Params{
		Tracker:           tracker,
		Fetcher:           fetch.NewGitHubFetcher(cfg.GitHubToken),
		Errors:            errs,
		ChunksDir:         cfg.ChunksDir(),
		LockPath:          cfg.LockFile(),
		SpecsDir:          cfg.SpecsDir(),
		PluginsConfigPath: cfg.PluginsConfigFile(),
		Force:             *force,
		Workers:           workers,
	}
	if !*skipCore {
		params.CoreDocs = fetch.NewCoreDocFetcher(cfg.CoreDocsCacheDir())
	}

	color.Cyan("Ingesting documentation (%d workers)", workers)

	summary, err := ingest.NewPipeline(params).Run(ctx)
	if err != nil {
		log.Fatalf("Ingestion failed: %v", err)
	}

	color.Green("Processed %d sources", summary.Processed)
	if summary.Skipped > 0 {
		fmt.Printf("  %d unchanged sources skipped\n", summary.Skipped)
	}
	if summary.Empty > 0 {
		color.Yellow("  %d sources produced no chunks", summary.Empty)
	}
	if summary.Failed > 0 {
		color.Red("  %d sources failed (see %s)", summary.Failed, cfg.ErrorLogFile())
		os.Exit(1)
	}
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
