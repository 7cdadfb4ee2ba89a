package jellyseerr

import (
	"errors"
	"fmt"
	"strings"
)

// Errors surfaced by the request-system client.
var (
	// ErrAlreadyRequested reports a duplicate media request (upstream 409).
	ErrAlreadyRequested = errors.New("media already requested or available")
)

// RemoteError wraps a transport failure or an unexpected upstream status so
// raw HTTP errors never cross the client boundary.
type RemoteError struct {
	Op     string
	Status int
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("jellyseerr %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("jellyseerr %s: unexpected status %d", e.Op, e.Status)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// MediaItem is one search or discover result.
type MediaItem struct {
	ID           int    `json:"id"`
	MediaType    string `json:"mediaType"`
	Title        string `json:"title"`
	Name         string `json:"name"`
	ReleaseDate  string `json:"releaseDate"`
	FirstAirDate string `json:"firstAirDate"`
	Overview     string `json:"overview"`
	PosterPath   string `json:"posterPath"`
}

// DisplayTitle returns the movie title or the TV show name.
func (m MediaItem) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	if m.Name != "" {
		return m.Name
	}
	return "Unknown Title"
}

// Year extracts the release year, or "N/A" when the date is missing.
func (m MediaItem) Year() string {
	date := m.ReleaseDate
	if date == "" {
		date = m.FirstAirDate
	}
	if date == "" {
		return "N/A"
	}
	return strings.SplitN(date, "-", 2)[0]
}

// Request is one media request made through the request system.
type Request struct {
	ID        int    `json:"id"`
	Status    int    `json:"status"`
	CreatedAt string `json:"createdAt"`
	Media     struct {
		MediaType string `json:"mediaType"`
		TmdbID    int    `json:"tmdbId"`
	} `json:"media"`
}

// Request status codes as reported by the request system.
const (
	StatusPending            = 1
	StatusApproved           = 2
	StatusProcessing         = 3
	StatusPartiallyAvailable = 4
	StatusAvailable          = 5
)

// StatusLabel maps a request status code to a user-facing label.
func StatusLabel(status int) string {
	switch status {
	case StatusPending:
		return "⏳ Pending"
	case StatusApproved:
		return "✅ Approved"
	case StatusProcessing:
		return "⚙️ Processing"
	case StatusPartiallyAvailable:
		return "\U0001f5c2️ Partially Available"
	case StatusAvailable:
		return "\U0001f3ac Available"
	default:
		return "❓ Unknown"
	}
}

// User is one entry of the request-system user directory.
type User struct {
	ID               int    `json:"id"`
	Username         string `json:"username"`
	JellyfinUsername string `json:"jellyfinUsername"`
	JellyfinUserID   string `json:"jellyfinUserId"`
}

// DisplayName prefers the request-system username over the media-server one.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.JellyfinUsername
}

// MediaDetails is the detail record behind a request's TMDB id.
type MediaDetails struct {
	Title        string `json:"title"`
	Name         string `json:"name"`
	ReleaseDate  string `json:"releaseDate"`
	FirstAirDate string `json:"firstAirDate"`
	PosterPath   string `json:"posterPath"`
}

// DisplayTitle returns the movie title or the TV show name.
func (d MediaDetails) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	if d.Name != "" {
		return d.Name
	}
	return "Unknown Title"
}

// Year extracts the release year, or "Unknown Year" when missing.
func (d MediaDetails) Year() string {
	date := d.ReleaseDate
	if date == "" {
		date = d.FirstAirDate
	}
	if date == "" {
		return "Unknown Year"
	}
	return strings.SplitN(date, "-", 2)[0]
}
