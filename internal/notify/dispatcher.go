// Package notify decides, per delivered message, whether the recipient was
// reachable live; if not, it triggers the external email collaborator.
// Everything here is best-effort: a failed notification is logged and
// swallowed, never surfaced to the sender.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/database"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/hub"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/identity"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/pkg/logger"
)

type Dispatcher struct {
	hub      *hub.Hub
	resolver *identity.Resolver
	mailer   Mailer

	// At most one email per sender/recipient pair per window; a burst of
	// messages should not become a burst of emails. Zero disables.
	debounceWindow time.Duration
}

func NewDispatcher(h *hub.Hub, resolver *identity.Resolver, mailer Mailer, debounceWindow time.Duration) *Dispatcher {
	return &Dispatcher{
		hub:            h,
		resolver:       resolver,
		mailer:         mailer,
		debounceWindow: debounceWindow,
	}
}

// MessageDelivered is called after a message is persisted and broadcast.
// It returns immediately; the email decision and send run detached so the
// sender's acknowledgment latency is never extended.
func (d *Dispatcher) MessageDelivered(recipientAccountID, recipientProfileID, senderProfileID string) {
	if d.hub.HasLiveSession(recipientAccountID) {
		return
	}
	go d.sendOfflineEmail(recipientProfileID, senderProfileID)
}

func (d *Dispatcher) sendOfflineEmail(recipientProfileID, senderProfileID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if !d.shouldNotify(senderProfileID, recipientProfileID) {
		return
	}

	email, err := d.resolver.ContactEmail(ctx, recipientProfileID)
	if err != nil {
		logger.Warn().Err(err).Str("profile", recipientProfileID).Msg("Notification skipped: no contact email")
		return
	}

	recipient, err := d.resolver.DisplayBundle(ctx, recipientProfileID)
	if err != nil {
		logger.Warn().Err(err).Str("profile", recipientProfileID).Msg("Notification skipped: recipient lookup failed")
		return
	}
	sender, err := d.resolver.DisplayBundle(ctx, senderProfileID)
	if err != nil {
		logger.Warn().Err(err).Str("profile", senderProfileID).Msg("Notification skipped: sender lookup failed")
		return
	}

	if err := d.mailer.SendNewMessageEmail(ctx, email, recipient.Name, sender.Name); err != nil {
		logger.Error().Err(err).
			Str("recipient", recipientProfileID).
			Str("sender", senderProfileID).
			Msg("Offline-message email failed")
		return
	}
	logger.Info().
		Str("recipient", recipientProfileID).
		Str("sender", senderProfileID).
		Msg("Offline-message email dispatched")
}

// shouldNotify consults the Redis counter used elsewhere for rate limiting.
// When Redis is unavailable the dispatcher fails open and sends — a
// duplicate email beats a silently dropped one.
func (d *Dispatcher) shouldNotify(senderProfileID, recipientProfileID string) bool {
	if d.debounceWindow <= 0 || database.Redis == nil {
		return true
	}

	key := fmt.Sprintf("mail_debounce:%s:%s", senderProfileID, recipientProfileID)
	allowed, err := database.CheckRateLimit(key, 1, d.debounceWindow)
	if err != nil {
		return true
	}
	return allowed
}
