// Package fetch retrieves raw documentation content for a source, along
// with a format hint telling the pipeline which segmenter to apply.
package fetch

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_fetcher.go -package=mocks nvimrag/internal/fetch Fetcher

import "context"

// Format is the documentation format hint for fetched content.
type Format string

const (
	FormatVimdoc   Format = "vimdoc"
	FormatMarkdown Format = "markdown"
)

// File is one fetched document file.
type File struct {
	Name    string
	Content string
}

// Docs is the documentation set fetched for one repository: either the
// vimdoc help files from doc/, or the README as a markdown fallback.
type Docs struct {
	Format Format
	Files  []File
}

// Fetcher retrieves plugin documentation for an owner/repo pair.
type Fetcher interface {
	FetchDocs(ctx context.Context, owner, repo string) (*Docs, error)
}
