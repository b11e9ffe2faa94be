package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GitHubFetcher fetches plugin documentation through the GitHub contents
// API: .txt help files from the doc/ directory first, then the README.
type GitHubFetcher struct {
	BaseURL string
	Token   string
	client  *http.Client
}

// NewGitHubFetcher creates a fetcher. token may be empty for
// unauthenticated (rate-limited) access.
func NewGitHubFetcher(token string) *GitHubFetcher {
	return &GitHubFetcher{
		BaseURL: "https://api.github.com",
		Token:   token,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// FetchDocs returns the vimdoc help files for owner/repo if the repository
// has any, otherwise its README as markdown. It fails when neither exists.
func (f *GitHubFetcher) FetchDocs(ctx context.Context, owner, repo string) (*Docs, error) {
	helpFiles, err := f.fetchHelpFiles(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	if len(helpFiles) > 0 {
		return &Docs{Format: FormatVimdoc, Files: helpFiles}, nil
	}

	readme, err := f.fetchReadme(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	if readme != nil {
		return &Docs{Format: FormatMarkdown, Files: []File{*readme}}, nil
	}

	return nil, fmt.Errorf("no documentation found for %s/%s", owner, repo)
}

// contentEntry is one item of a GitHub contents listing.
type contentEntry struct {
	Name        string `json:"name"`
	DownloadURL string `json:"download_url"`
}

// fetchHelpFiles lists doc/ and downloads every .txt file. A missing doc/
// directory is not an error; it just yields no files.
func (f *GitHubFetcher) fetchHelpFiles(ctx context.Context, owner, repo string) ([]File, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/doc", f.BaseURL, owner, repo)

	var entries []contentEntry
	status, err := f.getJSON(ctx, url, &entries)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("listing doc/ for %s/%s: status %d", owner, repo, status)
	}

	var files []File
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name, ".txt") || entry.DownloadURL == "" {
			continue
		}
		content, err := f.download(ctx, entry.DownloadURL)
		if err != nil {
			return nil, fmt.Errorf("downloading %s: %w", entry.Name, err)
		}
		files = append(files, File{Name: entry.Name, Content: content})
	}
	return files, nil
}

// fetchReadme resolves the repository README and downloads it. A repository
// without a README yields nil.
func (f *GitHubFetcher) fetchReadme(ctx context.Context, owner, repo string) (*File, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/readme", f.BaseURL, owner, repo)

	var entry contentEntry
	status, err := f.getJSON(ctx, url, &entry)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("resolving README for %s/%s: status %d", owner, repo, status)
	}
	if entry.DownloadURL == "" {
		return nil, nil
	}

	content, err := f.download(ctx, entry.DownloadURL)
	if err != nil {
		return nil, fmt.Errorf("downloading README: %w", err)
	}
	return &File{Name: entry.Name, Content: content}, nil
}

// getJSON performs an authenticated GET and decodes a 2xx body into out.
func (f *GitHubFetcher) getJSON(ctx context.Context, url string, out any) (int, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// download fetches a raw file body.
func (f *GitHubFetcher) download(ctx context.Context, url string) (string, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	return string(body), nil
}

func (f *GitHubFetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.Token != "" {
		req.Header.Set("Authorization", "token "+f.Token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}
