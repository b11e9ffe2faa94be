// Package ingest orchestrates the documentation ingestion run: decide which
// sources changed, fetch and segment them, and persist chunk batches,
// isolating every source's failures from the rest of the run.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"nvimrag/internal/chunk"
	"nvimrag/internal/chunker"
	"nvimrag/internal/contextutil"
	"nvimrag/internal/errlog"
	"nvimrag/internal/fetch"
	"nvimrag/internal/plugins"
	"nvimrag/internal/release"
)

const defaultWorkers = 4

// coreSource is the source label for Neovim's own help files.
const coreSource = "neovim-core"

// Params wires the pipeline's collaborators and run options.
type Params struct {
	Tracker  *release.Tracker
	Fetcher  fetch.Fetcher
	CoreDocs *fetch.CoreDocFetcher // nil disables core doc ingestion
	Errors   *errlog.Log

	ChunksDir         string
	LockPath          string
	SpecsDir          string
	PluginsConfigPath string

	// Force bypasses the version check and re-processes every source.
	Force bool
	// Workers bounds fetch-and-segment concurrency across sources.
	Workers int
}

// Summary reports what one run did.
type Summary struct {
	Processed int
	Skipped   int
	Empty     int
	Failed    int
}

// Pipeline runs one ingestion pass. It owns the error log and version
// tracker for the duration of the run; both persisted files have no other
// writers while it runs.
type Pipeline struct {
	tracker  *release.Tracker
	fetcher  fetch.Fetcher
	coreDocs *fetch.CoreDocFetcher
	errs     *errlog.Log

	chunksDir         string
	lockPath          string
	specsDir          string
	pluginsConfigPath string

	force   bool
	workers int

	vimdoc   *chunker.VimdocChunker
	markdown *chunker.MarkdownChunker

	mu      sync.Mutex
	summary Summary
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(p Params) *Pipeline {
	workers := p.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Pipeline{
		tracker:           p.Tracker,
		fetcher:           p.Fetcher,
		coreDocs:          p.CoreDocs,
		errs:              p.Errors,
		chunksDir:         p.ChunksDir,
		lockPath:          p.LockPath,
		specsDir:          p.SpecsDir,
		pluginsConfigPath: p.PluginsConfigPath,
		force:             p.Force,
		workers:           workers,
		vimdoc:            chunker.NewVimdocChunker(),
		markdown:          chunker.NewMarkdownChunker(),
	}
}

// Run executes the full ingestion pass: plugin list extraction, core docs,
// then plugin docs. Per-source failures are recorded and skipped; only
// persistence failures (chunk batch, release cache, error log) abort the
// run. The error log is always flushed, even on abort.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	logger := contextutil.LoggerFromContext(ctx)

	pluginList, err := p.extractPlugins()
	if err != nil {
		p.errs.Add("plugin-extraction", errlog.TypeExtractionFailed, err.Error(), nil)
		if saveErr := p.errs.Save(); saveErr != nil {
			return nil, saveErr
		}
		return nil, fmt.Errorf("plugin extraction failed: %w", err)
	}
	logger.InfoContext(ctx, "extracted plugin list", "plugins", len(pluginList))

	if p.coreDocs != nil {
		if err := p.processCore(ctx); err != nil {
			if saveErr := p.errs.Save(); saveErr != nil {
				return nil, saveErr
			}
			return nil, err
		}
	}

	runErr := p.processPlugins(ctx, pluginList)

	if err := p.errs.Save(); err != nil {
		return nil, err
	}
	if runErr != nil {
		return nil, runErr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	summary := p.summary
	return &summary, nil
}

// extractPlugins derives the plugin source list, honoring the
// source-selection config.
func (p *Pipeline) extractPlugins() (map[string]string, error) {
	cfg, err := plugins.LoadConfig(p.pluginsConfigPath)
	if err != nil {
		return nil, err
	}
	return plugins.Extract(p.lockPath, p.specsDir, cfg)
}

// processCore refreshes the Neovim core help files and writes one batch per
// file. A fetch failure is recorded and the rest of the run continues;
// previously stored core batches stand. A persistence failure is fatal.
func (p *Pipeline) processCore(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)
	outDir := filepath.Join(p.chunksDir, coreSource)

	if !p.force && hasChunkFiles(outDir) {
		logger.InfoContext(ctx, "core docs unchanged, using stored batches")
		p.addSkipped()
		return nil
	}

	files, err := p.coreDocs.FetchDocFiles(ctx)
	if err != nil {
		p.errs.Add(coreSource, errlog.TypeFetchFailed, err.Error(), nil)
		p.addFailed()
		logger.WarnContext(ctx, "failed to fetch core docs", "error", err)
		return nil
	}

	for _, file := range files {
		source := coreSource + "/" + strings.TrimSuffix(file.Name, ".txt")

		chunks, err := p.segment(fetch.FormatVimdoc, file.Content, source)
		if err != nil {
			p.errs.Add(source, errlog.TypeSegmentationFailed, err.Error(), nil)
			p.addFailed()
			continue
		}
		if len(chunks) == 0 {
			continue
		}

		outPath := filepath.Join(outDir, strings.TrimSuffix(file.Name, ".txt")+".json")
		if err := chunk.SaveBatch(chunks, source, outPath); err != nil {
			return fmt.Errorf("failed to persist core batch %s: %w", file.Name, err)
		}
		logger.DebugContext(ctx, "stored core batch", "file", file.Name, "chunks", len(chunks))
	}
	p.addProcessed()
	return nil
}

// processPlugins fetches and segments plugin docs in a bounded worker pool.
// Only persistence failures propagate; everything else is recorded and the
// next source proceeds.
func (p *Pipeline) processPlugins(ctx context.Context, pluginList map[string]string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, ownerRepo := range pluginList {
		g.Go(func() error {
			return p.processPlugin(gctx, ownerRepo)
		})
	}
	return g.Wait()
}

// processPlugin handles one plugin source end to end. The returned error is
// reserved for fatal conditions (persistence, cancellation); per-source
// failures are logged and swallowed.
func (p *Pipeline) processPlugin(ctx context.Context, ownerRepo string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := contextutil.LoggerFromContext(ctx)

	owner, repo, ok := strings.Cut(ownerRepo, "/")
	if !ok {
		p.errs.Add(ownerRepo, errlog.TypeExtractionFailed, "malformed owner/repo", nil)
		p.addFailed()
		return nil
	}
	outPath := filepath.Join(p.chunksDir, "plugins", repo+".json")

	if !p.force {
		needsUpdate, err := p.tracker.NeedsUpdate(ctx, owner, repo)
		if err != nil {
			// Release cache persistence failed; the run can no longer
			// guarantee cache consistency.
			return err
		}
		if !needsUpdate {
			if _, statErr := os.Stat(outPath); statErr == nil {
				logger.DebugContext(ctx, "no changes", "source", ownerRepo)
				p.addSkipped()
				return nil
			}
			// No stored batch yet: process anyway so first runs make progress.
		}
	}

	logger.InfoContext(ctx, "fetching docs", "source", ownerRepo)

	docs, err := p.fetcher.FetchDocs(ctx, owner, repo)
	if err != nil {
		p.errs.Add(ownerRepo, errlog.TypeFetchFailed, err.Error(),
			map[string]any{"owner": owner, "repo": repo})
		p.addFailed()
		logger.WarnContext(ctx, "fetch failed, retaining stored chunks", "source", ownerRepo, "error", err)
		return nil
	}

	var all []chunk.Chunk
	for _, file := range docs.Files {
		chunks, err := p.segment(docs.Format, file.Content, ownerRepo)
		if err != nil {
			p.errs.Add(ownerRepo, errlog.TypeSegmentationFailed, err.Error(),
				map[string]any{"owner": owner, "repo": repo, "file": file.Name})
			p.addFailed()
			return nil
		}
		all = append(all, chunks...)
	}

	if len(all) == 0 {
		// Soft failure: never overwrite a stored batch with nothing.
		p.errs.Add(ownerRepo, errlog.TypeEmptyResult, "segmentation yielded no chunks",
			map[string]any{"owner": owner, "repo": repo})
		p.addEmpty()
		logger.WarnContext(ctx, "no chunks generated", "source", ownerRepo)
		return nil
	}

	if err := chunk.SaveBatch(all, ownerRepo, outPath); err != nil {
		return fmt.Errorf("failed to persist batch for %s: %w", ownerRepo, err)
	}

	logger.InfoContext(ctx, "stored batch", "source", ownerRepo, "chunks", len(all), "files", len(docs.Files))
	p.addProcessed()
	return nil
}

// segment applies the format-matching segmenter. A segmenter panic on
// malformed content is converted into an error so it is recorded like any
// other per-source failure.
func (p *Pipeline) segment(format fetch.Format, content, source string) (chunks []chunk.Chunk, err error) {
	defer func() {
		if r := recover(); r != nil {
			chunks = nil
			err = fmt.Errorf("segmenter panic: %v", r)
		}
	}()

	switch format {
	case fetch.FormatVimdoc:
		return p.vimdoc.ChunkVimdoc(content, source), nil
	case fetch.FormatMarkdown:
		return p.markdown.ChunkMarkdown(content, source), nil
	default:
		return nil, fmt.Errorf("unknown document format %q", format)
	}
}

func hasChunkFiles(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			return true
		}
	}
	return false
}

func (p *Pipeline) addProcessed() { p.mu.Lock(); p.summary.Processed++; p.mu.Unlock() }
func (p *Pipeline) addSkipped()   { p.mu.Lock(); p.summary.Skipped++; p.mu.Unlock() }
func (p *Pipeline) addEmpty()     { p.mu.Lock(); p.summary.Empty++; p.mu.Unlock() }
func (p *Pipeline) addFailed()    { p.mu.Lock(); p.summary.Failed++; p.mu.Unlock() }
