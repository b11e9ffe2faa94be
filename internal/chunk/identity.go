package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// partSeparator joins the identity fields before hashing. It is part of the
// persisted id format and must never change.
const partSeparator = "|||"

// pointNamespace is the fixed UUIDv5 namespace for vector-store point ids.
var pointNamespace = uuid.MustParse("8f1bafd3-36f2-4a52-9d3c-55e2a4b0c7de")

// ID computes the deterministic identifier for a chunk. Identical
// (source, kind, text, discriminators) always yield the identical id when
// counter is 0, across runs and processes. A nonzero counter disambiguates
// chunks that are byte-identical on all of those fields within one batch.
func ID(c Chunk, counter int) string {
	parts := []string{c.Source(), string(c.Kind()), c.Text()}

	switch v := c.(type) {
	case *VimdocChunk:
		if v.Heading != "" {
			parts = append(parts, v.Heading)
		}
		if len(v.Tags) > 0 {
			parts = append(parts, strings.Join(v.Tags, ","))
		}
	case *MarkdownChunk:
		if len(v.Headings) > 0 {
			parts = append(parts, strings.Join(v.Headings, " > "))
		}
	}

	if counter > 0 {
		parts = append(parts, strconv.Itoa(counter))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, partSeparator)))
	return hex.EncodeToString(sum[:])
}

// AssignIDs computes an id for every chunk in the batch, resolving true
// duplicates by scan order: the first occurrence gets counter 0, the next
// counter 1, and so on. Output order matches input order.
func AssignIDs(chunks []Chunk) []string {
	ids := make([]string, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))
	counters := make(map[string]int)

	for _, c := range chunks {
		base := ID(c, 0)
		id := base
		if _, dup := seen[base]; dup {
			counters[base]++
			id = ID(c, counters[base])
		}
		ids = append(ids, id)
		seen[id] = struct{}{}
	}
	return ids
}

// PointID derives a deterministic UUID from a chunk id, suitable as a
// vector-store point identifier.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}
