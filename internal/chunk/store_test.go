package chunk

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSaveBatch_LoadBatch_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "telescope.json")

	chunks := []Chunk{
		&VimdocChunk{
			Src:     "nvim-telescope/telescope.nvim",
			Heading: "TELESCOPE *telescope.nvim*",
			Tags:    []string{"telescope.nvim", "telescope"},
			Body:    "Telescope is a fuzzy finder.",
		},
		&MarkdownChunk{
			Src:      "nvim-telescope/telescope.nvim",
			Headings: []string{"Getting Started", "Installation"},
			Body:     "Install with your plugin manager.",
		},
		&MarkdownChunk{
			Src:  "nvim-telescope/telescope.nvim",
			Body: "Lead-in text with no heading.",
		},
	}

	if err := SaveBatch(chunks, "nvim-telescope/telescope.nvim", path); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}

	batch, err := LoadBatch(path)
	if err != nil {
		t.Fatalf("LoadBatch() error = %v", err)
	}

	if batch.Source != "nvim-telescope/telescope.nvim" {
		t.Errorf("LoadBatch() source = %q", batch.Source)
	}
	if batch.ChunkCount != len(chunks) {
		t.Errorf("LoadBatch() chunk_count = %d, want %d", batch.ChunkCount, len(chunks))
	}
	if len(batch.Chunks) != batch.ChunkCount {
		t.Errorf("LoadBatch() len(chunks) = %d, want %d", len(batch.Chunks), batch.ChunkCount)
	}
	if batch.GeneratedAt.IsZero() {
		t.Error("LoadBatch() generated_at should be set for envelope format")
	}

	got, ok := batch.Chunks[0].(*VimdocChunk)
	if !ok {
		t.Fatalf("chunk 0 has type %T, want *VimdocChunk", batch.Chunks[0])
	}
	if got.Heading != "TELESCOPE *telescope.nvim*" {
		t.Errorf("chunk 0 heading = %q", got.Heading)
	}
	if !reflect.DeepEqual(got.Tags, []string{"telescope.nvim", "telescope"}) {
		t.Errorf("chunk 0 tags = %v", got.Tags)
	}

	md, ok := batch.Chunks[1].(*MarkdownChunk)
	if !ok {
		t.Fatalf("chunk 1 has type %T, want *MarkdownChunk", batch.Chunks[1])
	}
	if !reflect.DeepEqual(md.Headings, []string{"Getting Started", "Installation"}) {
		t.Errorf("chunk 1 headings = %v", md.Headings)
	}

	// Field-identical chunks produce the same identity after a round trip.
	for i := range chunks {
		if ID(chunks[i], 0) != ID(batch.Chunks[i], 0) {
			t.Errorf("chunk %d identity changed across round trip", i)
		}
	}
}

func TestLoadBatch_LegacyBareList(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "legacy.json")

	legacy := `[
  {"type": "vimdoc", "source": "neovim-core/options", "heading": "OPTIONS", "tags": ["options"], "text": "Body text."},
  {"type": "markdown", "source": "folke/lazy.nvim", "headings": ["Usage"], "text": "More text."}
]`
	if err := os.WriteFile(path, []byte(legacy), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	batch, err := LoadBatch(path)
	if err != nil {
		t.Fatalf("LoadBatch() error = %v", err)
	}
	if !batch.GeneratedAt.IsZero() {
		t.Error("LoadBatch() legacy format should have unknown timestamp")
	}
	if batch.ChunkCount != 2 || len(batch.Chunks) != 2 {
		t.Fatalf("LoadBatch() chunk_count = %d, len = %d, want 2", batch.ChunkCount, len(batch.Chunks))
	}
	if batch.Chunks[0].Kind() != KindVimdoc || batch.Chunks[1].Kind() != KindMarkdown {
		t.Errorf("LoadBatch() kinds = %v, %v", batch.Chunks[0].Kind(), batch.Chunks[1].Kind())
	}
	if batch.Chunks[1].Text() != "More text." {
		t.Errorf("LoadBatch() chunk 1 text = %q", batch.Chunks[1].Text())
	}
}

func TestLoadBatch_UnknownType(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(path, []byte(`[{"type": "asciidoc", "source": "x", "text": "y"}]`), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := LoadBatch(path); err == nil {
		t.Error("LoadBatch() expected error for unknown chunk type")
	}
}

func TestSaveBatch_EmptyBatch(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "empty.json")

	if err := SaveBatch(nil, "o/r", path); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}
	batch, err := LoadBatch(path)
	if err != nil {
		t.Fatalf("LoadBatch() error = %v", err)
	}
	if batch.ChunkCount != 0 || len(batch.Chunks) != 0 {
		t.Errorf("LoadBatch() expected empty batch, got count %d", batch.ChunkCount)
	}
}
