// SPDX-License-Identifier: MPL-2.0

package installer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// DefaultAPIURL is the GitHub REST API root.
	DefaultAPIURL = "https://api.github.com"
	// DefaultOwner and DefaultRepo locate the static micromamba builds.
	DefaultOwner = "mamba-org"
	DefaultRepo  = "micromamba-releases"

	perPage  = 30
	maxPages = 3

	// maxJSONResponseBytes caps release metadata responses.
	maxJSONResponseBytes = 10 << 20
)

// ErrReleaseNotFound is returned when a requested release tag does not exist.
var ErrReleaseNotFound = errors.New("release not found")

type (
	// RateLimitError is returned when the GitHub API rate limit is exhausted.
	RateLimitError struct {
		Limit   int
		ResetAt time.Time
	}

	// Release is a published micromamba release and its downloadable files.
	Release struct {
		TagName    string  `json:"tag_name"`
		Prerelease bool    `json:"prerelease"`
		Draft      bool    `json:"draft"`
		Assets     []Asset `json:"assets"`
	}

	// Asset is a single downloadable file attached to a Release.
	Asset struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
	}

	// ReleaseClient reads release metadata and assets from a GitHub-compatible API.
	ReleaseClient struct {
		httpClient *http.Client
		baseURL    string
		owner      string
		repo       string
		token      string
		userAgent  string
	}

	// ClientOption configures a ReleaseClient during construction.
	ClientOption func(*ReleaseClient)
)

// Error formats the rate limit details as a human-readable message.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit of %d requests exhausted (resets at %s)",
		e.Limit, e.ResetAt.UTC().Format("15:04 UTC"))
}

// WithHTTPClient sets a custom HTTP client, useful for tests or proxies.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(rc *ReleaseClient) {
		rc.httpClient = c
	}
}

// WithBaseURL overrides the API base URL, for mirrors and test servers.
func WithBaseURL(base string) ClientOption {
	return func(rc *ReleaseClient) {
		if base != "" {
			rc.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithToken sets a token for authenticated requests (higher rate limit).
func WithToken(token string) ClientOption {
	return func(rc *ReleaseClient) {
		rc.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(rc *ReleaseClient) {
		rc.userAgent = ua
	}
}

// WithRepo overrides the release repository. Empty values keep the default.
func WithRepo(owner, repo string) ClientOption {
	return func(rc *ReleaseClient) {
		if owner != "" {
			rc.owner = owner
		}
		if repo != "" {
			rc.repo = repo
		}
	}
}

// NewReleaseClient creates a client for mamba-org/micromamba-releases on
// api.github.com unless options say otherwise.
func NewReleaseClient(opts ...ClientOption) *ReleaseClient {
	c := &ReleaseClient{
		httpClient: http.DefaultClient,
		baseURL:    DefaultAPIURL,
		owner:      DefaultOwner,
		repo:       DefaultRepo,
		userAgent:  "condathis/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListReleases returns published, non-prerelease releases ordered from the
// highest version down. Tags such as "2.0.5-0" are compared as "v2.0.5-0".
func (c *ReleaseClient) ListReleases(ctx context.Context) ([]Release, error) {
	next := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d", c.baseURL, c.owner, c.repo, perPage)

	var stable []Release
	for page := 0; page < maxPages && next != ""; page++ {
		var batch []Release
		hdr, err := c.getJSON(ctx, next, &batch)
		if err != nil {
			return nil, fmt.Errorf("listing releases: %w", err)
		}
		for _, r := range batch {
			if !r.Draft && !r.Prerelease {
				stable = append(stable, r)
			}
		}
		next = nextPageURL(hdr.Get("Link"))
	}

	slices.SortStableFunc(stable, func(a, b Release) int {
		return semver.Compare(canonicalTag(b.TagName), canonicalTag(a.TagName))
	})
	return stable, nil
}

// GetReleaseByTag fetches a single release. A 404 yields ErrReleaseNotFound.
func (c *ReleaseClient) GetReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	var r Release
	u := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", c.baseURL, c.owner, c.repo, url.PathEscape(tag))
	if _, err := c.getJSON(ctx, u, &r); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, fmt.Errorf("%w: %s/%s@%s", ErrReleaseNotFound, c.owner, c.repo, tag)
		}
		return nil, fmt.Errorf("getting release %s: %w", tag, err)
	}
	return &r, nil
}

// DownloadAsset streams the asset at assetURL. The caller closes the body.
func (c *ReleaseClient) DownloadAsset(ctx context.Context, assetURL string) (io.ReadCloser, error) {
	resp, err := c.do(ctx, assetURL, "application/octet-stream")
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", redactURL(assetURL), err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("downloading %s: unexpected status %d", redactURL(assetURL), resp.StatusCode)
	}
	return resp.Body, nil
}

var errNotFound = errors.New("not found")

func (c *ReleaseClient) getJSON(ctx context.Context, u string, dst any) (http.Header, error) {
	resp, err := c.do(ctx, u, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkRateLimit(resp); err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, errNotFound
	default:
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, redactURL(u))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(dst); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return resp.Header, nil
}

func (c *ReleaseClient) do(ctx context.Context, u, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)

	// Assets may redirect to a CDN; the token only goes to GitHub hosts.
	if c.token != "" && isGitHubHost(req.URL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}

// checkRateLimit reports a RateLimitError when X-RateLimit-Remaining is 0.
// Missing or malformed headers are not an error.
func checkRateLimit(resp *http.Response) error {
	rem, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	if err != nil || rem > 0 {
		return nil //nolint:nilerr // absent header means no limit info
	}
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck // best effort
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck // best effort
	return &RateLimitError{Limit: limit, ResetAt: time.Unix(resetUnix, 0)}
}

// nextPageURL extracts the rel="next" target from a Link header.
func nextPageURL(link string) string {
	for part := range strings.SplitSeq(link, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start, end := strings.Index(part, "<"), strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}

// canonicalTag prefixes "v" so release tags can be compared with semver.
func canonicalTag(tag string) string {
	if strings.HasPrefix(tag, "v") {
		return tag
	}
	return "v" + tag
}

// isGitHubHost reports whether reqURL targets the configured API host, or
// github.com when the API is api.github.com.
func isGitHubHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(reqURL.Host, base.Host) {
		return true
	}
	return strings.EqualFold(base.Host, "api.github.com") && strings.EqualFold(reqURL.Host, "github.com")
}

// redactURL strips the query and fragment for use in error messages.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// findAsset returns the asset with the given name, or nil.
func findAsset(assets []Asset, name string) *Asset {
	for i := range assets {
		if assets[i].Name == name {
			return &assets[i]
		}
	}
	return nil
}
