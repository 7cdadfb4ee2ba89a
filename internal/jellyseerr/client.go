// Package jellyseerr is a thin client for the request-management HTTP API.
package jellyseerr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DirectoryPageSize bounds user-directory lookups.
const DirectoryPageSize = 1000

// Client calls the Jellyseerr API with an API-key header.
type Client struct {
	baseURL string
	apiKey  string
	logger  *slog.Logger
	http    *http.Client
}

// NewClient creates a request-system client.
func NewClient(log *slog.Logger, baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("jellyseerr client: base url is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("jellyseerr client: api key is required")
	}
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  log.With(slog.String("client", "jellyseerr")),
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// BaseURL returns the configured server URL, for user-facing messages.
func (c *Client) BaseURL() string { return c.baseURL }

// Search looks up movies and TV shows matching the query.
func (c *Client) Search(ctx context.Context, query string) ([]MediaItem, error) {
	params := url.Values{"query": {query}}
	var parsed struct {
		Results []MediaItem `json:"results"`
	}
	if err := c.getJSON(ctx, "search", "/api/v1/search", params, &parsed); err != nil {
		return nil, err
	}
	return parsed.Results, nil
}

// DiscoverMovies returns currently popular movies.
func (c *Client) DiscoverMovies(ctx context.Context) ([]MediaItem, error) {
	var parsed struct {
		Results []MediaItem `json:"results"`
	}
	if err := c.getJSON(ctx, "discover movies", "/api/v1/discover/movies", nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Results, nil
}

// DiscoverTV returns currently popular TV shows.
func (c *Client) DiscoverTV(ctx context.Context) ([]MediaItem, error) {
	var parsed struct {
		Results []MediaItem `json:"results"`
	}
	if err := c.getJSON(ctx, "discover tv", "/api/v1/discover/tv", nil, &parsed); err != nil {
		return nil, err
	}
	return parsed.Results, nil
}

// CreateRequest files a media request on behalf of a request-system user.
// TV requests cover all seasons. A duplicate yields ErrAlreadyRequested.
func (c *Client) CreateRequest(ctx context.Context, mediaType string, tmdbID, userID int) error {
	payload := map[string]any{
		"mediaType": mediaType,
		"mediaId":   tmdbID,
		"userId":    userID,
	}
	if mediaType == "tv" {
		payload["seasons"] = "all"
	}
	resp, body, err := c.do(ctx, http.MethodPost, "/api/v1/request", nil, payload)
	if err != nil {
		return &RemoteError{Op: "create request", Err: err}
	}
	if resp.StatusCode == http.StatusConflict {
		return ErrAlreadyRequested
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteError{Op: "create request", Status: resp.StatusCode, Err: upstreamMessage(body)}
	}
	return nil
}

// ListRequests returns the requests made by the given request-system user,
// most recently added first.
func (c *Client) ListRequests(ctx context.Context, userID int) ([]Request, error) {
	params := url.Values{
		"take":        {"100"},
		"skip":        {"0"},
		"sort":        {"added"},
		"filter":      {"all"},
		"requestedBy": {strconv.Itoa(userID)},
	}
	var parsed struct {
		Results []Request `json:"results"`
	}
	if err := c.getJSON(ctx, "list requests", "/api/v1/request", params, &parsed); err != nil {
		return nil, err
	}
	return parsed.Results, nil
}

// ListUsers pages through the user directory (bounded at DirectoryPageSize).
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	params := url.Values{"take": {strconv.Itoa(DirectoryPageSize)}}
	var parsed struct {
		Results []User `json:"results"`
	}
	if err := c.getJSON(ctx, "list users", "/api/v1/user", params, &parsed); err != nil {
		return nil, err
	}
	return parsed.Results, nil
}

// ImportJellyfinUsers imports media-server accounts into the request system
// and returns the created directory entries.
func (c *Client) ImportJellyfinUsers(ctx context.Context, jellyfinUserIDs []string) ([]User, error) {
	payload := map[string]any{
		"jellyfinUserIds": jellyfinUserIDs,
	}
	resp, body, err := c.do(ctx, http.MethodPost, "/api/v1/user/import-from-jellyfin", nil, payload)
	if err != nil {
		return nil, &RemoteError{Op: "import users", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{Op: "import users", Status: resp.StatusCode, Err: upstreamMessage(body)}
	}

	var created []User
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, &RemoteError{Op: "import users", Err: err}
	}
	return created, nil
}

// MovieDetails fetches the detail record for a movie TMDB id.
func (c *Client) MovieDetails(ctx context.Context, tmdbID int) (MediaDetails, error) {
	var details MediaDetails
	err := c.getJSON(ctx, "movie details", "/api/v1/movie/"+strconv.Itoa(tmdbID), nil, &details)
	return details, err
}

// TVDetails fetches the detail record for a TV TMDB id.
func (c *Client) TVDetails(ctx context.Context, tmdbID int) (MediaDetails, error) {
	var details MediaDetails
	err := c.getJSON(ctx, "tv details", "/api/v1/tv/"+strconv.Itoa(tmdbID), nil, &details)
	return details, err
}

func (c *Client) getJSON(ctx context.Context, op, path string, params url.Values, out any) error {
	resp, body, err := c.do(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteError{Op: op, Status: resp.StatusCode, Err: upstreamMessage(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload any) (*http.Response, []byte, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

// upstreamMessage pulls the "message" field out of an error body when there
// is one, so operators see the upstream reason instead of raw JSON.
func upstreamMessage(body []byte) error {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		return fmt.Errorf("%s", parsed.Message)
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil
	}
	return fmt.Errorf("%s", text)
}
