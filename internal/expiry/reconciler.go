// Package expiry reconciles time-bound accounts once their grant runs out.
package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jellybridge/jellybridge/internal/linked"
)

// Reconciler walks due accounts and revokes their access. Each account goes
// through role revocation, access disable, a courtesy DM, and link removal.
// Steps are isolated per account: a failing step is logged and the sweep
// moves on, except that a failed access disable keeps the link in place so
// the next sweep retries the whole account.
type Reconciler struct {
	store    Store
	media    MediaServer
	roles    RoleRevoker
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewReconciler creates a reconciler over the given collaborators.
func NewReconciler(log *slog.Logger, store Store, media MediaServer, roles RoleRevoker, notifier Notifier) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		store:    store,
		media:    media,
		roles:    roles,
		notifier: notifier,
		logger:   log.With(slog.String("service", "expiry")),
		now:      time.Now,
	}
}

// Sweep processes every account whose expiry has passed. It returns an error
// only when the due list itself cannot be read; per-account failures are
// reflected in the Report and retried on later sweeps.
func (r *Reconciler) Sweep(ctx context.Context) (Report, error) {
	now := r.now().UTC()
	due, err := r.store.ListDue(ctx, now)
	if err != nil {
		return Report{}, fmt.Errorf("list due accounts: %w", err)
	}

	report := Report{Due: len(due)}
	for _, account := range due {
		if r.reconcile(ctx, account) {
			report.Reconciled++
		} else {
			report.Deferred++
		}
	}

	if report.Due > 0 {
		r.logger.Info("expiry sweep finished",
			slog.Int("due", report.Due),
			slog.Int("reconciled", report.Reconciled),
			slog.Int("deferred", report.Deferred),
		)
	}
	return report, nil
}

// reconcile runs the revocation pipeline for one account. It reports whether
// the link was removed.
func (r *Reconciler) reconcile(ctx context.Context, account linked.Account) bool {
	log := r.logger.With(
		slog.String("discord_user", account.DiscordID),
		slog.String("username", account.Username),
	)

	if account.HasRoleGrant() {
		if err := r.roles.RevokeRole(ctx, account.GuildID, account.DiscordID, account.RoleName); err != nil {
			log.Warn("role revoke failed", slog.String("role", account.RoleName), slog.Any("error", err))
		}
	}

	disabled := true
	if err := r.disableAccess(ctx, account.JellyfinUserID); err != nil {
		log.Error("access disable failed, deferring unlink", slog.Any("error", err))
		disabled = false
	}

	if err := r.notifier.SendDM(ctx, account.DiscordID, expiryNotice(account)); err != nil {
		log.Warn("expiry DM failed", slog.Any("error", err))
	}

	if !disabled {
		return false
	}
	if err := r.store.Delete(ctx, account.DiscordID); err != nil {
		log.Error("unlink failed", slog.Any("error", err))
		return false
	}
	log.Info("expired account reconciled")
	return true
}

// disableAccess turns off media playback while keeping the account and its
// watch history intact.
func (r *Reconciler) disableAccess(ctx context.Context, jellyfinUserID string) error {
	policy, err := r.media.GetPolicy(ctx, jellyfinUserID)
	if err != nil {
		return err
	}
	if !policy.EnableMediaPlayback {
		return nil
	}
	policy.EnableMediaPlayback = false
	return r.media.SetPolicy(ctx, jellyfinUserID, policy)
}

func expiryNotice(account linked.Account) string {
	return "## Your media server access has expired ⏰\n\n" +
		"The access period for **" + account.Username + "** ended on **" +
		account.ExpiresAt.Format("2 Jan 2006") + "** and playback has been disabled.\n\n" +
		"If you would like to keep watching, ask an admin about extending your access."
}
