// Command embed reads the chunk batches written by ingest, embeds any chunks
// that are not yet in the ledger, and upserts them into Qdrant.
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
	"nvimrag/internal/embed"
	"nvimrag/internal/llm"
	"nvimrag/internal/storage"
	"nvimrag/internal/vectorstore"
)

func main() {
	force := flag.Bool("force", false, "re-embed every chunk, ignoring the ledger")
	batchSize := flag.Int("batch-size", 32, "chunks embedded per API call")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: embed [options]

Reads chunk batches from the data directory, embeds chunks that have not
been embedded before, and upserts them into the Qdrant collection. Chunk
identity makes re-runs idempotent.

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

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	store, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModelName, cfg.QdrantVectorSize)

	// Validate embedding client vector size (fail-fast)
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	color.Cyan("Embedding chunks into %s", cfg.QdrantCollection)

	summary, err := embed.NewPipeline(embed.Params{
		Embedder:   embedder,
		Store:      store,
		Ledger:     storage.NewLedgerRepo(db),
		ChunksDir:  cfg.ChunksDir(),
		Collection: cfg.QdrantCollection,
		VectorSize: cfg.QdrantVectorSize,
		BatchSize:  *batchSize,
		Force:      *force,
	}).Run(ctx)
	if err != nil {
		log.Fatalf("Embedding failed: %v", err)
	}

	color.Green("Embedded %d chunks from %d batches", summary.Embedded, summary.Batches)
	if summary.Skipped > 0 {
		fmt.Printf("  %d chunks already embedded\n", summary.Skipped)
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
