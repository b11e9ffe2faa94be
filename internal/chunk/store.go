package chunk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Batch is the persisted envelope around the chunks produced for one
// documentation source in one ingestion run.
type Batch struct {
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
	ChunkCount  int       `json:"chunk_count"`
	Chunks      []Chunk   `json:"chunks"`
}

// SaveBatch writes chunks for a source under a metadata envelope.
// chunk_count is always written equal to len(chunks). The write is a full
// file replace via a temp file and rename so a concurrent reader never sees
// a partial batch.
func SaveBatch(chunks []Chunk, source, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create chunk directory: %w", err)
	}

	batch := Batch{
		Source:      source,
		GeneratedAt: time.Now().UTC(),
		ChunkCount:  len(chunks),
		Chunks:      chunks,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(batch); err != nil {
		return fmt.Errorf("failed to encode chunk batch: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write chunk batch: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace chunk batch: %w", err)
	}
	return nil
}

// LoadBatch reads a persisted chunk batch. It accepts both the envelope
// format and the legacy bare chunk array; a bare array is returned as a
// Batch with an unknown (zero) timestamp.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk batch: %w", err)
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		chunks, err := UnmarshalChunkList(data)
		if err != nil {
			return nil, err
		}
		return &Batch{ChunkCount: len(chunks), Chunks: chunks}, nil
	}

	var raw struct {
		Source      string            `json:"source"`
		GeneratedAt time.Time         `json:"generated_at"`
		ChunkCount  int               `json:"chunk_count"`
		Chunks      []json.RawMessage `json:"chunks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode chunk batch: %w", err)
	}

	chunks := make([]Chunk, 0, len(raw.Chunks))
	for i, r := range raw.Chunks {
		c, err := UnmarshalChunk(r)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		chunks = append(chunks, c)
	}

	return &Batch{
		Source:      raw.Source,
		GeneratedAt: raw.GeneratedAt,
		ChunkCount:  raw.ChunkCount,
		Chunks:      chunks,
	}, nil
}

// LoadChunks reads just the chunk list from a batch file, either format.
func LoadChunks(path string) ([]Chunk, error) {
	batch, err := LoadBatch(path)
	if err != nil {
		return nil, err
	}
	return batch.Chunks, nil
}
