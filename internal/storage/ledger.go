package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ledger.go -package=mocks nvimrag/internal/storage Ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EmbeddedChunk records that one chunk has been embedded and upserted into
// the vector store under the given point ID.
type EmbeddedChunk struct {
	ChunkID    string // content-derived chunk identity (SHA-256 hex)
	PointID    string // vector store point UUID derived from ChunkID
	Source     string // "owner/repo" or "neovim-core/<file>"
	Kind       string // "vimdoc" or "markdown"
	EmbeddedAt time.Time
}

// Ledger defines the interface for the embedding ledger: which chunk IDs
// have already been embedded, so re-runs only pay for new content.
type Ledger interface {
	// Mark records a batch of chunks as embedded. Re-marking an existing
	// chunk ID updates its row.
	Mark(ctx context.Context, records []*EmbeddedChunk) error
	// FilterNew returns the subset of chunkIDs not yet in the ledger,
	// preserving input order.
	FilterNew(ctx context.Context, chunkIDs []string) ([]string, error)
	// DeleteBySource removes every ledger row for a source, forcing its
	// chunks to be re-embedded next run.
	DeleteBySource(ctx context.Context, source string) error
	// Count returns the total number of embedded chunks.
	Count(ctx context.Context) (int, error)
}

// LedgerRepo provides methods for embedding ledger operations.
// It implements the Ledger interface.
type LedgerRepo struct {
	db *sql.DB
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(db *sql.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// Mark records a batch of chunks as embedded inside one transaction.
func (r *LedgerRepo) Mark(ctx context.Context, records []*EmbeddedChunk) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO embedded_chunks (chunk_id, point_id, source, kind, embedded_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(chunk_id) DO UPDATE SET
		   point_id = excluded.point_id,
		   source = excluded.source,
		   kind = excluded.kind,
		   embedded_at = excluded.embedded_at`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare ledger insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for _, rec := range records {
		embeddedAt := rec.EmbeddedAt
		if embeddedAt.IsZero() {
			embeddedAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, rec.ChunkID, rec.PointID, rec.Source, rec.Kind, embeddedAt); err != nil {
			return fmt.Errorf("failed to insert ledger row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger batch: %w", err)
	}
	return nil
}

// FilterNew returns the subset of chunkIDs not yet in the ledger,
// preserving input order.
func (r *LedgerRepo) FilterNew(ctx context.Context, chunkIDs []string) ([]string, error) {
	fresh := make([]string, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		var exists int
		err := r.db.QueryRowContext(ctx,
			"SELECT 1 FROM embedded_chunks WHERE chunk_id = ?", id,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			fresh = append(fresh, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to query ledger: %w", err)
		}
	}
	return fresh, nil
}

// DeleteBySource removes every ledger row for a source.
func (r *LedgerRepo) DeleteBySource(ctx context.Context, source string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM embedded_chunks WHERE source = ?", source)
	if err != nil {
		return fmt.Errorf("failed to delete ledger rows by source: %w", err)
	}
	return nil
}

// Count returns the total number of embedded chunks.
func (r *LedgerRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embedded_chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ledger rows: %w", err)
	}
	return n, nil
}
