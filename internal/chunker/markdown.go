package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"nvimrag/internal/chunk"
)

// MarkdownChunker splits markdown documents into heading-scoped chunks
// using goldmark AST parsing.
type MarkdownChunker struct {
	parser goldmark.Markdown
}

// NewMarkdownChunker creates a markdown chunker.
func NewMarkdownChunker() *MarkdownChunker {
	return &MarkdownChunker{
		parser: goldmark.New(),
	}
}

// ChunkMarkdown parses markdown and emits one chunk per heading-scoped
// section, tagged with the heading path in effect when the section's text
// accumulated. Lead-in text before the first heading gets an empty path.
// Sections with no textual content (e.g. only HTML) produce no chunk.
func (c *MarkdownChunker) ChunkMarkdown(md, source string) []chunk.Chunk {
	src := []byte(md)
	doc := c.parser.Parser().Parse(text.NewReader(src))

	w := &markdownWalker{source: src, chunkSource: source}
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		w.visitBlock(n)
	}
	w.flush()

	return w.chunks
}

// markdownWalker is an explicit visitor over the block-level tree. It owns
// the heading stack and the text accumulated since the last heading
// boundary; block helpers return their contribution instead of mutating
// shared state.
type markdownWalker struct {
	source      []byte
	chunkSource string

	headings []string
	parts    []string
	chunks   []chunk.Chunk
}

// flush emits the accumulated section text under the current heading stack.
func (w *markdownWalker) flush() {
	body := strings.TrimSpace(strings.Join(w.parts, "\n"))
	w.parts = w.parts[:0]
	if body == "" {
		return
	}

	headings := make([]string, len(w.headings))
	copy(headings, w.headings)
	w.chunks = append(w.chunks, &chunk.MarkdownChunk{
		Src:      w.chunkSource,
		Headings: headings,
		Body:     body,
	})
}

// visitBlock handles one top-level block node.
func (w *markdownWalker) visitBlock(n ast.Node) {
	switch v := n.(type) {
	case *ast.Heading:
		// The section closes under the pre-update stack.
		w.flush()
		if len(w.headings) > v.Level-1 {
			w.headings = w.headings[:v.Level-1]
		}
		w.headings = append(w.headings, inlineText(v, w.source))

	case *ast.Paragraph:
		if t := strings.TrimSpace(inlineText(v, w.source)); t != "" {
			w.parts = append(w.parts, t)
		}

	case *ast.TextBlock:
		if t := strings.TrimSpace(inlineText(v, w.source)); t != "" {
			w.parts = append(w.parts, t)
		}

	case *ast.Blockquote:
		if t := blockquoteText(v, w.source); t != "" {
			w.parts = append(w.parts, t)
		}

	case *ast.FencedCodeBlock:
		lang := ""
		if l := v.Language(w.source); l != nil {
			lang = string(l)
		}
		w.parts = append(w.parts, fencedBlock(lang, rawLines(v, w.source)))

	case *ast.CodeBlock:
		// Indented code has no declared language.
		w.parts = append(w.parts, fencedBlock("", rawLines(v, w.source)))

	case *ast.List:
		if lines := listLines(v, w.source); len(lines) > 0 {
			w.parts = append(w.parts, strings.Join(lines, "\n"))
		}

	case *ast.HTMLBlock:
		// Raw HTML never contributes text.
	}
}

// fencedBlock wraps raw code content in a fenced-code marker annotated with
// the declared language.
func fencedBlock(lang, code string) string {
	return "```" + lang + "\n" + code + "\n```"
}

// rawLines returns the raw source lines of a code block, without the
// trailing newline.
func rawLines(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimRight(b.String(), "\n")
}

// blockquoteText extracts the inline text of a block quote's paragraphs.
func blockquoteText(quote *ast.Blockquote, source []byte) string {
	var parts []string
	for n := quote.FirstChild(); n != nil; n = n.NextSibling() {
		switch v := n.(type) {
		case *ast.Paragraph:
			if t := strings.TrimSpace(inlineText(v, source)); t != "" {
				parts = append(parts, t)
			}
		case *ast.Blockquote:
			if t := blockquoteText(v, source); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// listLines renders a list as one line per item, flattening nested lists.
func listLines(list *ast.List, source []byte) []string {
	var lines []string
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var parts []string
		var nested []string
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			switch v := c.(type) {
			case *ast.TextBlock:
				if t := strings.TrimSpace(inlineText(v, source)); t != "" {
					parts = append(parts, t)
				}
			case *ast.Paragraph:
				if t := strings.TrimSpace(inlineText(v, source)); t != "" {
					parts = append(parts, t)
				}
			case *ast.List:
				nested = append(nested, listLines(v, source)...)
			}
		}
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, " "))
		}
		lines = append(lines, nested...)
	}
	return lines
}

// inlineText extracts plain text from a node's inline content. Code spans
// are rendered as `code`, link text survives without its URL, and images
// and raw HTML are dropped.
func inlineText(n ast.Node, source []byte) string {
	var b strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.CodeSpan:
			b.WriteByte('`')
			for c := v.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					b.Write(t.Segment.Value(source))
				}
			}
			b.WriteByte('`')
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			b.Write(v.Label(source))
			return ast.WalkSkipChildren, nil
		case *ast.Image:
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return b.String()
}
