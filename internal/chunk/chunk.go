package chunk

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the documentation format a chunk was segmented from.
type Kind string

const (
	// KindVimdoc is the plain-text Vim help format (==== section rules, *tag* markers).
	KindVimdoc Kind = "vimdoc"
	// KindMarkdown is CommonMark-style markdown (README files).
	KindMarkdown Kind = "markdown"
)

// Chunk is a minimal retrievable unit of documentation text plus its
// structural metadata. There is one concrete variant per Kind so that
// format-specific fields cannot be absent or misused.
type Chunk interface {
	// Kind returns the format discriminator.
	Kind() Kind
	// Source returns the origin document identifier (e.g. "folke/lazy.nvim").
	Source() string
	// Text returns the chunk body. Never empty on chunks produced by a segmenter.
	Text() string

	json.Marshaler
}

// VimdocChunk is a section (or sub-section fragment) of a Vim help file.
type VimdocChunk struct {
	Src     string
	Heading string   // First non-blank line of the section; may be empty.
	Tags    []string // *tag* markers from the heading line, in order of appearance.
	Body    string
}

func (c *VimdocChunk) Kind() Kind     { return KindVimdoc }
func (c *VimdocChunk) Source() string { return c.Src }
func (c *VimdocChunk) Text() string   { return c.Body }

// MarkdownChunk is a heading-scoped section of a markdown document.
type MarkdownChunk struct {
	Src      string
	Headings []string // Heading path from document root; empty for lead-in text.
	Body     string
}

func (c *MarkdownChunk) Kind() Kind     { return KindMarkdown }
func (c *MarkdownChunk) Source() string { return c.Src }
func (c *MarkdownChunk) Text() string   { return c.Body }

// vimdocJSON is the wire form of a VimdocChunk.
type vimdocJSON struct {
	Type    Kind     `json:"type"`
	Source  string   `json:"source"`
	Heading string   `json:"heading"`
	Tags    []string `json:"tags"`
	Text    string   `json:"text"`
}

// markdownJSON is the wire form of a MarkdownChunk.
type markdownJSON struct {
	Type     Kind     `json:"type"`
	Source   string   `json:"source"`
	Headings []string `json:"headings"`
	Text     string   `json:"text"`
}

// MarshalJSON implements json.Marshaler.
func (c *VimdocChunk) MarshalJSON() ([]byte, error) {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(vimdocJSON{
		Type:    KindVimdoc,
		Source:  c.Src,
		Heading: c.Heading,
		Tags:    tags,
		Text:    c.Body,
	})
}

// MarshalJSON implements json.Marshaler.
func (c *MarkdownChunk) MarshalJSON() ([]byte, error) {
	headings := c.Headings
	if headings == nil {
		headings = []string{}
	}
	return json.Marshal(markdownJSON{
		Type:     KindMarkdown,
		Source:   c.Src,
		Headings: headings,
		Text:     c.Body,
	})
}

// UnmarshalChunk decodes a single chunk record, dispatching on the "type"
// discriminator.
func UnmarshalChunk(data []byte) (Chunk, error) {
	var probe struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to read chunk type: %w", err)
	}

	switch probe.Type {
	case KindVimdoc:
		var v vimdocJSON
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("failed to decode vimdoc chunk: %w", err)
		}
		return &VimdocChunk{Src: v.Source, Heading: v.Heading, Tags: v.Tags, Body: v.Text}, nil
	case KindMarkdown:
		var m markdownJSON
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode markdown chunk: %w", err)
		}
		return &MarkdownChunk{Src: m.Source, Headings: m.Headings, Body: m.Text}, nil
	default:
		return nil, fmt.Errorf("unknown chunk type %q", probe.Type)
	}
}

// UnmarshalChunkList decodes an ordered list of chunk records.
func UnmarshalChunkList(data []byte) ([]Chunk, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode chunk list: %w", err)
	}

	chunks := make([]Chunk, 0, len(raw))
	for i, r := range raw {
		c, err := UnmarshalChunk(r)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}
