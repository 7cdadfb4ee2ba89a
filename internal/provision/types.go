package provision

import (
	"errors"
	"fmt"

	"github.com/jellybridge/jellybridge/internal/linked"
)

// Errors surfaced by provisioning.
var (
	// ErrInvalidUsername reports a requested username that sanitizes to nothing.
	ErrInvalidUsername = errors.New("username contains no usable characters")
	// ErrAlreadyExists reports a media-server name collision; nothing was created.
	ErrAlreadyExists = errors.New("media-server account already exists")
)

// PartialFailureError reports that the media-server account was created but
// a later provisioning step failed, leaving external state inconsistent.
// Rollback is not attempted; an operator resolves this manually.
type PartialFailureError struct {
	Username       string
	JellyfinUserID string
	Step           string
	Err            error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("provisioning of %q stopped at %s (media-server account %s exists unlinked): %v",
		e.Username, e.Step, e.JellyfinUserID, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// Grant describes the optional time bound and role attached to an invite.
type Grant struct {
	DurationDays int
	GuildID      string
	RoleName     string
}

// Result reports a completed provisioning run. EchoedSecret is set only
// when the credentials DM could not be delivered; it is the caller's last
// chance to hand the secret over, since it is never persisted.
type Result struct {
	Account      linked.Account
	EchoedSecret string
	RoleGranted  bool
	RoleErr      error
	NotifyErr    error
}
