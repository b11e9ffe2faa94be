package chunk

import (
	"testing"
)

func TestID_Deterministic(t *testing.T) {
	c1 := &VimdocChunk{
		Src:     "neovim-core/options",
		Heading: "SETTING OPTIONS *set-option*",
		Tags:    []string{"set-option", "E764"},
		Body:    "Options may be set with :set.",
	}
	c2 := &VimdocChunk{
		Src:     "neovim-core/options",
		Heading: "SETTING OPTIONS *set-option*",
		Tags:    []string{"set-option", "E764"},
		Body:    "Options may be set with :set.",
	}

	id1 := ID(c1, 0)
	id2 := ID(c2, 0)
	if id1 != id2 {
		t.Errorf("ID() not deterministic: %s != %s", id1, id2)
	}
	if len(id1) != 64 {
		t.Errorf("ID() length = %d, want 64 hex chars", len(id1))
	}
}

func TestID_CounterDisambiguates(t *testing.T) {
	c := &MarkdownChunk{
		Src:      "folke/lazy.nvim",
		Headings: []string{"Installation"},
		Body:     "Use the lazy spec.",
	}

	if ID(c, 0) == ID(c, 1) {
		t.Error("ID() with counters 0 and 1 should differ")
	}
	if ID(c, 1) != ID(c, 1) {
		t.Error("ID() with the same counter should be stable")
	}
}

func TestID_DiscriminatorsChangeID(t *testing.T) {
	base := &VimdocChunk{Src: "s", Heading: "H", Tags: []string{"a"}, Body: "text"}

	tests := []struct {
		name  string
		other Chunk
	}{
		{"different heading", &VimdocChunk{Src: "s", Heading: "H2", Tags: []string{"a"}, Body: "text"}},
		{"different tags", &VimdocChunk{Src: "s", Heading: "H", Tags: []string{"b"}, Body: "text"}},
		{"different source", &VimdocChunk{Src: "s2", Heading: "H", Tags: []string{"a"}, Body: "text"}},
		{"different kind", &MarkdownChunk{Src: "s", Headings: []string{"H"}, Body: "text"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ID(base, 0) == ID(tt.other, 0) {
				t.Error("ID() should differ")
			}
		})
	}
}

func TestAssignIDs_Duplicates(t *testing.T) {
	dup := func() Chunk {
		return &MarkdownChunk{Src: "o/r", Headings: []string{"Usage"}, Body: "same text"}
	}
	chunks := []Chunk{
		dup(),
		&MarkdownChunk{Src: "o/r", Headings: []string{"Usage"}, Body: "other text"},
		dup(),
		dup(),
	}

	ids := AssignIDs(chunks)
	if len(ids) != len(chunks) {
		t.Fatalf("AssignIDs() returned %d ids, want %d", len(ids), len(chunks))
	}

	seen := make(map[string]struct{})
	for i, id := range ids {
		if _, dup := seen[id]; dup {
			t.Errorf("AssignIDs() id %d is not unique: %s", i, id)
		}
		seen[id] = struct{}{}
	}

	// First occurrence keeps the counter-0 id; later duplicates advance.
	if ids[0] != ID(chunks[0], 0) {
		t.Error("first duplicate should keep the base id")
	}
	if ids[2] != ID(chunks[2], 1) {
		t.Error("second duplicate should use counter 1")
	}
	if ids[3] != ID(chunks[3], 2) {
		t.Error("third duplicate should use counter 2")
	}
}

func TestPointID_Deterministic(t *testing.T) {
	id := ID(&MarkdownChunk{Src: "o/r", Body: "text"}, 0)
	p1 := PointID(id)
	p2 := PointID(id)
	if p1 != p2 {
		t.Errorf("PointID() not deterministic: %s != %s", p1, p2)
	}
	if p1 == PointID("other") {
		t.Error("PointID() should differ for different chunk ids")
	}
	if len(p1) != 36 {
		t.Errorf("PointID() = %q, want canonical UUID form", p1)
	}
}
