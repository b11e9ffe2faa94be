// Package embed loads stored chunk batches, embeds chunks that have not been
// embedded yet, and upserts them into the vector store.
package embed

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"nvimrag/internal/chunk"
	"nvimrag/internal/contextutil"
	"nvimrag/internal/llm"
	"nvimrag/internal/storage"
	"nvimrag/internal/vectorstore"
)

const defaultBatchSize = 32

// Params wires the embedding pipeline's collaborators and run options.
type Params struct {
	Embedder llm.Embedder
	Store    vectorstore.VectorStore
	Ledger   storage.Ledger

	ChunksDir  string
	Collection string
	VectorSize int

	// BatchSize is how many chunks are embedded per API call.
	BatchSize int
	// Force re-embeds every chunk, ignoring the ledger.
	Force bool
}

// Summary reports what one embedding run did.
type Summary struct {
	Batches  int // chunk batch files read
	Embedded int // chunks embedded and upserted
	Skipped  int // chunks already in the ledger
}

// Pipeline embeds stored chunks into the vector store. Point IDs and ledger
// rows are both derived from chunk identity, so runs are idempotent: a chunk
// whose content did not change is never embedded twice.
type Pipeline struct {
	embedder llm.Embedder
	store    vectorstore.VectorStore
	ledger   storage.Ledger

	chunksDir  string
	collection string
	vectorSize int
	batchSize  int
	force      bool
}

// NewPipeline creates an embedding pipeline.
func NewPipeline(p Params) *Pipeline {
	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Pipeline{
		embedder:   p.Embedder,
		store:      p.Store,
		ledger:     p.Ledger,
		chunksDir:  p.ChunksDir,
		collection: p.Collection,
		vectorSize: p.VectorSize,
		batchSize:  batchSize,
		force:      p.Force,
	}
}

// Run embeds every new chunk under the chunks directory.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := p.store.EnsureCollection(ctx, p.collection, p.vectorSize); err != nil {
		return nil, err
	}

	paths, err := listBatchFiles(p.chunksDir)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "found chunk batches", "count", len(paths))

	summary := &Summary{}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.processBatch(ctx, path, summary); err != nil {
			return nil, fmt.Errorf("failed to embed %s: %w", filepath.Base(path), err)
		}
		summary.Batches++
	}

	logger.InfoContext(ctx, "embedding run complete",
		"batches", summary.Batches, "embedded", summary.Embedded, "skipped", summary.Skipped)
	return summary, nil
}

// processBatch embeds the new chunks of one stored batch file.
func (p *Pipeline) processBatch(ctx context.Context, path string, summary *Summary) error {
	logger := contextutil.LoggerFromContext(ctx)

	batch, err := chunk.LoadBatch(path)
	if err != nil {
		return err
	}
	if len(batch.Chunks) == 0 {
		return nil
	}

	ids := chunk.AssignIDs(batch.Chunks)

	if p.force && batch.Source != "" {
		if err := p.ledger.DeleteBySource(ctx, batch.Source); err != nil {
			return err
		}
	}

	fresh, err := p.ledger.FilterNew(ctx, ids)
	if err != nil {
		return err
	}
	freshSet := make(map[string]struct{}, len(fresh))
	for _, id := range fresh {
		freshSet[id] = struct{}{}
	}

	var pending []chunk.Chunk
	var pendingIDs []string
	for i, c := range batch.Chunks {
		if _, ok := freshSet[ids[i]]; ok {
			pending = append(pending, c)
			pendingIDs = append(pendingIDs, ids[i])
		} else {
			summary.Skipped++
		}
	}
	if len(pending) == 0 {
		logger.DebugContext(ctx, "batch already embedded", "path", path)
		return nil
	}

	for start := 0; start < len(pending); start += p.batchSize {
		end := min(start+p.batchSize, len(pending))
		if err := p.embedSlice(ctx, pending[start:end], pendingIDs[start:end]); err != nil {
			return err
		}
		summary.Embedded += end - start
	}

	logger.InfoContext(ctx, "embedded batch", "source", batch.Source, "new", len(pending), "total", len(batch.Chunks))
	return nil
}

// embedSlice embeds one API-call-sized group of chunks, upserts the points,
// and records them in the ledger. The ledger is only written after a
// successful upsert, so a failure re-embeds rather than losing chunks.
func (p *Pipeline) embedSlice(ctx context.Context, chunks []chunk.Chunk, ids []string) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text()
	}

	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	points := make([]vectorstore.Point, len(chunks))
	records := make([]*storage.EmbeddedChunk, len(chunks))
	for i, c := range chunks {
		pointID := chunk.PointID(ids[i])
		points[i] = vectorstore.Point{
			ID:   pointID,
			Vec:  vectors[i],
			Meta: pointMeta(c, ids[i]),
		}
		records[i] = &storage.EmbeddedChunk{
			ChunkID: ids[i],
			PointID: pointID,
			Source:  c.Source(),
			Kind:    string(c.Kind()),
		}
	}

	if err := p.store.Upsert(ctx, p.collection, points); err != nil {
		return err
	}
	return p.ledger.Mark(ctx, records)
}

// pointMeta builds the payload stored alongside each vector.
func pointMeta(c chunk.Chunk, id string) map[string]any {
	meta := map[string]any{
		"chunk_id": id,
		"source":   c.Source(),
		"kind":     string(c.Kind()),
		"text":     c.Text(),
	}
	switch v := c.(type) {
	case *chunk.VimdocChunk:
		meta["heading"] = v.Heading
		meta["tags"] = strings.Join(v.Tags, ",")
	case *chunk.MarkdownChunk:
		meta["heading_path"] = strings.Join(v.Headings, " > ")
	}
	return meta
}

// listBatchFiles returns every .json batch under dir, sorted by WalkDir's
// lexical order so runs are deterministic.
func listBatchFiles(dir string) ([]string, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan chunks directory: %w", err)
	}
	return paths, nil
}
