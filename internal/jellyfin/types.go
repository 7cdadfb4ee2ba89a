package jellyfin

import (
	"errors"
	"fmt"
)

// Errors surfaced by the media-server client.
var (
	// ErrNameTaken reports a user-name collision on account creation.
	ErrNameTaken = errors.New("jellyfin user name already exists")
	// ErrUnauthorized reports rejected credentials on authentication.
	ErrUnauthorized = errors.New("jellyfin authentication failed")
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
		return fmt.Sprintf("jellyfin %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("jellyfin %s: unexpected status %d", e.Op, e.Status)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Policy is the subset of the Jellyfin user policy this system manages.
type Policy struct {
	IsAdministrator            bool `json:"IsAdministrator"`
	EnableUserPreferenceAccess bool `json:"EnableUserPreferenceAccess"`
	EnableMediaPlayback        bool `json:"EnableMediaPlayback"`
	EnableLiveTvAccess         bool `json:"EnableLiveTvAccess"`
	EnableLiveTvManagement     bool `json:"EnableLiveTvManagement"`
}

// DefaultPolicy is applied to accounts provisioned by the bot: playback on,
// admin and live TV off.
func DefaultPolicy() Policy {
	return Policy{
		IsAdministrator:            false,
		EnableUserPreferenceAccess: true,
		EnableMediaPlayback:        true,
		EnableLiveTvAccess:         false,
		EnableLiveTvManagement:     false,
	}
}

// PlayedItem is one watched library item, as returned by the items endpoint.
type PlayedItem struct {
	Name         string `json:"Name"`
	Type         string `json:"Type"`
	SeriesName   string `json:"SeriesName"`
	RunTimeTicks int64  `json:"RunTimeTicks"`
	UserData     struct {
		LastPlayedDate string `json:"LastPlayedDate"`
	} `json:"UserData"`
}

// DisplayName returns the item name, prefixed with the series for episodes.
func (i PlayedItem) DisplayName() string {
	if i.Type == "Episode" && i.SeriesName != "" {
		return i.SeriesName + " - " + i.Name
	}
	return i.Name
}
