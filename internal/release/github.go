package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const shortSHALen = 7

// GitHubLookup resolves versions through the GitHub REST API.
type GitHubLookup struct {
	BaseURL string
	Token   string
	client  *http.Client
}

// NewGitHubLookup creates a lookup client. token may be empty for
// unauthenticated (rate-limited) access.
func NewGitHubLookup(token string) *GitHubLookup {
	return &GitHubLookup{
		BaseURL: "https://api.github.com",
		Token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// LatestVersion returns the latest release tag for owner/repo, falling back
// to the abbreviated HEAD commit sha when the repository has no releases,
// and VersionUnknown when neither is resolvable.
func (g *GitHubLookup) LatestVersion(ctx context.Context, owner, repo string) (string, error) {
	var release struct {
		TagName string `json:"tag_name"`
	}
	status, err := g.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s/releases/latest", g.BaseURL, owner, repo), &release)
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusOK:
		if release.TagName != "" {
			return release.TagName, nil
		}
		return VersionUnknown, nil
	case http.StatusNotFound:
		// No releases; fall back to the latest commit.
	default:
		return VersionUnknown, nil
	}

	var commit struct {
		SHA string `json:"sha"`
	}
	status, err = g.getJSON(ctx, fmt.Sprintf("%s/repos/%s/%s/commits/HEAD", g.BaseURL, owner, repo), &commit)
	if err != nil {
		return "", err
	}
	if status == http.StatusOK && len(commit.SHA) >= shortSHALen {
		return commit.SHA[:shortSHALen], nil
	}
	return VersionUnknown, nil
}

// getJSON performs an authenticated GET and decodes a 2xx body into out.
// Non-2xx statuses are returned to the caller without decoding.
func (g *GitHubLookup) getJSON(ctx context.Context, url string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if g.Token != "" {
		req.Header.Set("Authorization", "token "+g.Token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
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
