package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/timqwees/qwees/internal/core/downloader"
)

// DefaultAPIBaseURL is the public GitHub REST endpoint.
const DefaultAPIBaseURL = "https://api.github.com"

// GitHubRelease is the part of the releases API response we use.
type GitHubRelease struct {
	TagName     string    `json:"tag_name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
}

// API talks to a GitHub-compatible REST endpoint.
type API struct {
	BaseURL string
	Client  *http.Client
}

// LatestReleaseTag returns the tag of the newest published release of
// owner/repo. Failures wrap downloader.ErrNetwork.
// See: https://docs.github.com/en/rest/releases/releases#get-the-latest-release
func (a *API) LatestReleaseTag(ctx context.Context, owner, repo string) (string, error) {
	base := a.BaseURL
	if base == "" {
		base = DefaultAPIBaseURL
	}
	client := a.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	apiURL := fmt.Sprintf("%s/repos/%s/%s/releases/latest", strings.TrimSuffix(base, "/"), owner, repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request to GitHub API: %w", downloader.ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "qwees-cli")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to call GitHub API (%s): %w", downloader.ErrNetwork, apiURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response body from GitHub API (%s): %w", downloader.ErrNetwork, apiURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: GitHub API request failed with status %s (%s): %s", downloader.ErrNetwork, resp.Status, apiURL, strings.TrimSpace(string(body)))
	}

	var rel GitHubRelease
	if err := json.Unmarshal(body, &rel); err != nil {
		return "", fmt.Errorf("%w: failed to unmarshal GitHub API response (%s): %w", downloader.ErrNetwork, apiURL, err)
	}
	if rel.TagName == "" {
		return "", fmt.Errorf("%w: no published release found for %s/%s", downloader.ErrNetwork, owner, repo)
	}
	return rel.TagName, nil
}
