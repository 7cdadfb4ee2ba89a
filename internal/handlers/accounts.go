package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jellybridge/jellybridge/internal/linked"
)

// AccountStore is the linked-account surface the admin API exposes.
type AccountStore interface {
	List(ctx context.Context) ([]linked.Account, error)
	Delete(ctx context.Context, discordID string) error
}

// AccountsHandler serves the linked-account admin endpoints.
type AccountsHandler struct {
	store  AccountStore
	logger *slog.Logger
}

// NewAccountsHandler creates an accounts handler.
func NewAccountsHandler(log *slog.Logger, store AccountStore) *AccountsHandler {
	return &AccountsHandler{
		store:  store,
		logger: log.With(slog.String("handler", "accounts")),
	}
}

// Register mounts the account routes on the Echo instance.
func (h *AccountsHandler) Register(e *echo.Echo) {
	e.GET("/api/accounts", h.List)
	e.DELETE("/api/accounts/:discord_id", h.Delete)
}

// AccountResponse is the JSON shape of one linked account. The expiry and
// role fields are omitted for permanent links.
type AccountResponse struct {
	DiscordID        string     `json:"discord_id"`
	JellyseerrUserID string     `json:"jellyseerr_user_id"`
	JellyfinUserID   string     `json:"jellyfin_user_id"`
	Username         string     `json:"username"`
	CreatedAt        time.Time  `json:"created_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	GuildID          string     `json:"guild_id,omitempty"`
	RoleName         string     `json:"role_name,omitempty"`
}

// List returns every linked account.
func (h *AccountsHandler) List(c echo.Context) error {
	accounts, err := h.store.List(c.Request().Context())
	if err != nil {
		h.logger.Error("list accounts failed", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "failed to list accounts"})
	}

	out := make([]AccountResponse, 0, len(accounts))
	for _, account := range accounts {
		resp := AccountResponse{
			DiscordID:        account.DiscordID,
			JellyseerrUserID: account.JellyseerrUserID,
			JellyfinUserID:   account.JellyfinUserID,
			Username:         account.Username,
			CreatedAt:        account.CreatedAt,
			GuildID:          account.GuildID,
			RoleName:         account.RoleName,
		}
		if !account.Permanent() {
			expiresAt := account.ExpiresAt
			resp.ExpiresAt = &expiresAt
		}
		out = append(out, resp)
	}
	return c.JSON(http.StatusOK, out)
}

// Delete removes the link for a Discord id. Deleting a missing link still
// returns 204.
func (h *AccountsHandler) Delete(c echo.Context) error {
	discordID := c.Param("discord_id")
	if discordID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "discord_id is required"})
	}
	if err := h.store.Delete(c.Request().Context(), discordID); err != nil {
		h.logger.Error("delete account failed", slog.String("discord_id", discordID), slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "failed to delete account"})
	}
	return c.NoContent(http.StatusNoContent)
}
