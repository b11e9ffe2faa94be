package chunker

import (
	"strings"
	"unicode"

	"nvimrag/internal/chunk"
)

const (
	// sectionRuleMinLen is the minimum run length for a ==== or ---- line to
	// count as a section boundary.
	sectionRuleMinLen = 10
	// maxBodyChars is the body size above which a section is re-split.
	// Character count stands in for a token budget (~1000 tokens).
	maxBodyChars = 4000
	// minFragmentChars drops noise fragments produced by re-splitting.
	minFragmentChars = 100
)

// VimdocChunker splits Vim help text into heading/tag/body chunks.
type VimdocChunker struct{}

// NewVimdocChunker creates a vimdoc chunker.
func NewVimdocChunker() *VimdocChunker {
	return &VimdocChunker{}
}

// ChunkVimdoc splits vimdoc text on full-line ==== / ---- section rules and
// emits one chunk per section, re-splitting oversized bodies on blank-line
// runs and subsection marker lines. Chunks appear in document order and
// never have empty text.
func (c *VimdocChunker) ChunkVimdoc(text, source string) []chunk.Chunk {
	var chunks []chunk.Chunk
	for _, section := range splitSections(text) {
		chunks = append(chunks, chunkSection(section, source)...)
	}
	return chunks
}

// splitSections scans line by line with two states: seeking the next
// boundary rule, or accumulating the current section. Only whole lines
// consisting solely of 10+ '=' or 10+ '-' are boundaries.
func splitSections(text string) []string {
	if text == "" {
		return nil
	}

	var sections []string
	var current []string

	flush := func() {
		section := strings.TrimSpace(strings.Join(current, "\n"))
		if section != "" {
			sections = append(sections, section)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		if isSectionRule(line) {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return sections
}

// isSectionRule reports whether the line is entirely a run of 10 or more
// '=' or '-' characters.
func isSectionRule(line string) bool {
	if len(line) < sectionRuleMinLen {
		return false
	}
	marker := line[0]
	if marker != '=' && marker != '-' {
		return false
	}
	for i := 1; i < len(line); i++ {
		if line[i] != marker {
			return false
		}
	}
	return true
}

// chunkSection extracts heading, tags, and body from one section and emits
// its chunks.
func chunkSection(section, source string) []chunk.Chunk {
	lines := strings.Split(section, "\n")

	heading := ""
	headingIdx := 0
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			heading = strings.TrimSpace(line)
			headingIdx = i
			break
		}
	}

	tags := extractTags(heading)
	body := strings.TrimSpace(strings.Join(lines[headingIdx+1:], "\n"))
	if body == "" {
		// Zero-length text chunks are never produced.
		return nil
	}

	if len(body) <= maxBodyChars {
		return []chunk.Chunk{&chunk.VimdocChunk{
			Src:     source,
			Heading: heading,
			Tags:    tags,
			Body:    body,
		}}
	}

	var chunks []chunk.Chunk
	for _, fragment := range splitFragments(body) {
		fragment = strings.TrimSpace(fragment)
		if len(fragment) < minFragmentChars {
			continue
		}
		chunks = append(chunks, &chunk.VimdocChunk{
			Src:     source,
			Heading: heading,
			Tags:    tags,
			Body:    fragment,
		})
	}
	return chunks
}

// extractTags returns the *tag* markers from a heading line, in order of
// appearance.
func extractTags(heading string) []string {
	var tags []string
	for {
		open := strings.IndexByte(heading, '*')
		if open < 0 {
			break
		}
		rest := heading[open+1:]
		close := strings.IndexByte(rest, '*')
		if close < 0 {
			break
		}
		if close > 0 {
			tags = append(tags, rest[:close])
		}
		heading = rest[close+1:]
	}
	return tags
}

// splitFragments re-splits an oversized body on blank-line runs and on
// conventional subsection marker lines (uppercase first letter, trailing
// '~'). The marker heuristic is best effort; real help files are not
// guaranteed to follow it.
func splitFragments(body string) []string {
	var fragments []string
	var current []string

	flush := func() {
		if len(current) > 0 {
			fragments = append(fragments, strings.Join(current, "\n"))
			current = current[:0]
		}
	}

	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if isSubsectionMarker(line) {
			// The marker line itself is a delimiter, not content.
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()

	return fragments
}

// isSubsectionMarker reports whether the line looks like a vimdoc
// subsection heading: starts with an uppercase letter and ends with '~'.
func isSubsectionMarker(line string) bool {
	if len(line) < 2 {
		return false
	}
	runes := []rune(line)
	return unicode.IsUpper(runes[0]) && runes[len(runes)-1] == '~'
}
