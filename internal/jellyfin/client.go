// Package jellyfin is a thin client for the media-server HTTP API.
package jellyfin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client calls the Jellyfin API with a server token header.
type Client struct {
	baseURL string
	token   string
	logger  *slog.Logger
	http    *http.Client
}

// NewClient creates a media-server client.
func NewClient(log *slog.Logger, baseURL, token string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("jellyfin client: base url is required")
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("jellyfin client: api token is required")
	}
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		logger:  log.With(slog.String("client", "jellyfin")),
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// BaseURL returns the configured server URL, for user-facing messages.
func (c *Client) BaseURL() string { return c.baseURL }

// CreateUser creates a media-server account with the default bot policy and
// returns its id. A name collision yields ErrNameTaken.
func (c *Client) CreateUser(ctx context.Context, name, password string) (string, error) {
	payload := map[string]any{
		"Name":     name,
		"Password": password,
		"Policy":   DefaultPolicy(),
	}
	resp, body, err := c.do(ctx, http.MethodPost, "/Users/New", nil, payload)
	if err != nil {
		return "", &RemoteError{Op: "create user", Err: err}
	}
	if resp.StatusCode == http.StatusBadRequest && strings.Contains(string(body), "already exists") {
		return "", ErrNameTaken
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RemoteError{Op: "create user", Status: resp.StatusCode}
	}

	var parsed struct {
		ID string `json:"Id"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &RemoteError{Op: "create user", Err: err}
	}
	if parsed.ID == "" {
		return "", &RemoteError{Op: "create user", Err: fmt.Errorf("response carries no user id")}
	}
	return parsed.ID, nil
}

// Authenticate verifies credentials and returns the media-server user id.
// Rejected credentials yield ErrUnauthorized.
func (c *Client) Authenticate(ctx context.Context, username, password string) (string, error) {
	payload := map[string]string{
		"Username": username,
		"Pw":       password,
	}
	resp, body, err := c.do(ctx, http.MethodPost, "/Users/AuthenticateByName", nil, payload)
	if err != nil {
		return "", &RemoteError{Op: "authenticate", Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return "", ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RemoteError{Op: "authenticate", Status: resp.StatusCode}
	}

	var parsed struct {
		User struct {
			ID string `json:"Id"`
		} `json:"User"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &RemoteError{Op: "authenticate", Err: err}
	}
	if parsed.User.ID == "" {
		return "", &RemoteError{Op: "authenticate", Err: fmt.Errorf("response carries no user id")}
	}
	return parsed.User.ID, nil
}

// GetPolicy fetches the current access policy for a user.
func (c *Client) GetPolicy(ctx context.Context, userID string) (Policy, error) {
	resp, body, err := c.do(ctx, http.MethodGet, "/Users/"+url.PathEscape(userID), nil, nil)
	if err != nil {
		return Policy{}, &RemoteError{Op: "get policy", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Policy{}, &RemoteError{Op: "get policy", Status: resp.StatusCode}
	}

	var parsed struct {
		Policy Policy `json:"Policy"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Policy{}, &RemoteError{Op: "get policy", Err: err}
	}
	return parsed.Policy, nil
}

// SetPolicy writes the access policy for a user. Re-writing an unchanged
// policy is a no-op on the server side.
func (c *Client) SetPolicy(ctx context.Context, userID string, policy Policy) error {
	resp, _, err := c.do(ctx, http.MethodPost, "/Users/"+url.PathEscape(userID)+"/Policy", nil, policy)
	if err != nil {
		return &RemoteError{Op: "set policy", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteError{Op: "set policy", Status: resp.StatusCode}
	}
	return nil
}

// PlayedItems lists the movies and episodes the user has watched.
func (c *Client) PlayedItems(ctx context.Context, userID string) ([]PlayedItem, error) {
	query := url.Values{
		"Recursive":        {"true"},
		"IncludeItemTypes": {"Movie,Episode"},
		"Filters":          {"IsPlayed"},
		"Fields":           {"RunTimeTicks,UserData,SeriesName"},
	}
	resp, body, err := c.do(ctx, http.MethodGet, "/Users/"+url.PathEscape(userID)+"/Items", query, nil)
	if err != nil {
		return nil, &RemoteError{Op: "played items", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RemoteError{Op: "played items", Status: resp.StatusCode}
	}

	var parsed struct {
		Items []PlayedItem `json:"Items"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &RemoteError{Op: "played items", Err: err}
	}
	return parsed.Items, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (*http.Response, []byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
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
	req.Header.Set("X-Emby-Token", c.token)
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
