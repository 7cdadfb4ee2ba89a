// Package linked persists the Discord identity to external account mapping.
package linked

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jellybridge/jellybridge/internal/db"
)

// Service is the linked-account store backed by the linked_accounts table.
type Service struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewService creates a linked-account store.
func NewService(log *slog.Logger, pool *pgxpool.Pool) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		pool:   pool,
		logger: log.With(slog.String("service", "linked")),
	}
}

const accountColumns = `discord_id, jellyseerr_user_id, jellyfin_user_id, username, created_at, expires_at, guild_id, role_name`

// Upsert inserts or fully overwrites the account keyed by its Discord id.
// Last write wins; there is no field merge.
func (s *Service) Upsert(ctx context.Context, account Account) error {
	if s.pool == nil {
		return errors.New("linked store not configured")
	}
	discordID := strings.TrimSpace(account.DiscordID)
	if discordID == "" {
		return errors.New("discord id is required")
	}
	if (account.GuildID == "") != (account.RoleName == "") {
		return ErrLonelyRoleMeta
	}
	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO linked_accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (discord_id) DO UPDATE SET
			jellyseerr_user_id = EXCLUDED.jellyseerr_user_id,
			jellyfin_user_id = EXCLUDED.jellyfin_user_id,
			username = EXCLUDED.username,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at,
			guild_id = EXCLUDED.guild_id,
			role_name = EXCLUDED.role_name`,
		discordID,
		db.TextToPg(account.JellyseerrUserID),
		db.TextToPg(account.JellyfinUserID),
		db.TextToPg(account.Username),
		db.TimeToPg(createdAt),
		db.TimeToPg(account.ExpiresAt),
		db.TextToPg(account.GuildID),
		db.TextToPg(account.RoleName),
	)
	if err != nil {
		return fmt.Errorf("upsert linked account: %w", err)
	}
	return nil
}

// Get returns the account for the given Discord id, or ErrNotFound.
func (s *Service) Get(ctx context.Context, discordID string) (Account, error) {
	if s.pool == nil {
		return Account{}, errors.New("linked store not configured")
	}
	row := s.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM linked_accounts
		WHERE discord_id = $1`,
		strings.TrimSpace(discordID),
	)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("get linked account: %w", err)
	}
	return account, nil
}

// Delete removes the account for the given Discord id. Deleting a missing
// key is not an error.
func (s *Service) Delete(ctx context.Context, discordID string) error {
	if s.pool == nil {
		return errors.New("linked store not configured")
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM linked_accounts WHERE discord_id = $1`,
		strings.TrimSpace(discordID),
	)
	if err != nil {
		return fmt.Errorf("delete linked account: %w", err)
	}
	return nil
}

// List returns every linked account, newest first.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	if s.pool == nil {
		return nil, errors.New("linked store not configured")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM linked_accounts
		ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list linked accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan linked account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list linked accounts: %w", err)
	}
	return accounts, nil
}

// ListDue returns every account whose expiry is set and at or before now.
// Order is unspecified.
func (s *Service) ListDue(ctx context.Context, now time.Time) ([]Account, error) {
	if s.pool == nil {
		return nil, errors.New("linked store not configured")
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM linked_accounts
		WHERE expires_at IS NOT NULL AND expires_at <= $1`,
		db.TimeToPg(now),
	)
	if err != nil {
		return nil, fmt.Errorf("list due accounts: %w", err)
	}
	defer rows.Close()

	var due []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due account: %w", err)
		}
		due = append(due, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list due accounts: %w", err)
	}
	return due, nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		discordID string
		seerrID   pgtype.Text
		finID     pgtype.Text
		username  pgtype.Text
		createdAt pgtype.Timestamptz
		expiresAt pgtype.Timestamptz
		guildID   pgtype.Text
		roleName  pgtype.Text
	)
	if err := row.Scan(&discordID, &seerrID, &finID, &username, &createdAt, &expiresAt, &guildID, &roleName); err != nil {
		return Account{}, err
	}
	account := Account{
		DiscordID:        discordID,
		JellyseerrUserID: db.TextToString(seerrID),
		JellyfinUserID:   db.TextToString(finID),
		Username:         db.TextToString(username),
		CreatedAt:        db.TimeFromPg(createdAt),
		ExpiresAt:        db.TimeFromPg(expiresAt),
		GuildID:          db.TextToString(guildID),
		RoleName:         db.TextToString(roleName),
	}
	// Rows written before the grant columns existed carry NULLs; a half
	// present pair is treated as no grant at all.
	if account.GuildID == "" || account.RoleName == "" {
		account.GuildID = ""
		account.RoleName = ""
	}
	return account, nil
}
