// Package store holds the persistence components of the messaging core:
// the message log, the public-key directory and the derived conversation
// view. The database is the single serialization point — every mutation is
// a single guarded statement so concurrent devices cannot tear a write.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/models"
	apperrors "github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/pkg/errors"
	"gorm.io/gorm"
)

type MessageStore struct {
	db *gorm.DB
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

// CreateParams carries everything a send operation persists. Optional
// fields stay nil when the client did not supply them; key snapshots in
// particular must never block delivery by their absence.
type CreateParams struct {
	SenderProfileID   string
	ReceiverProfileID string
	Ciphertext        string
	IV                *string
	ClientToken       *string
	MessageType       string
	SenderPublicKey   *string
	ReceiverPublicKey *string
}

// Create persists a new message. Self-messaging is rejected here and again
// by the CHECK constraint on the table. A retried submission carrying the
// same client token returns the already-persisted row: the unique index on
// (sender, client token) keeps the copy count at one even when two devices
// race on the same retry.
func (s *MessageStore) Create(ctx context.Context, p CreateParams) (*models.SecureMessage, error) {
	if p.SenderProfileID == p.ReceiverProfileID {
		return nil, apperrors.ErrSelfMessage
	}

	if existing, ok := s.findByClientToken(ctx, p.SenderProfileID, p.ClientToken); ok {
		return existing, nil
	}

	messageType := p.MessageType
	if messageType == "" {
		messageType = models.MessageTypeText
	}

	msg := models.SecureMessage{
		SenderProfileID:   p.SenderProfileID,
		ReceiverProfileID: p.ReceiverProfileID,
		Content:           p.Ciphertext,
		IV:                p.IV,
		ClientID:          p.ClientToken,
		MessageType:       messageType,
		SenderPublicKey:   p.SenderPublicKey,
		ReceiverPublicKey: p.ReceiverPublicKey,
	}

	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		// Lost the duplicate-submission race: the other attempt's row is
		// the durable copy.
		if existing, ok := s.findByClientToken(ctx, p.SenderProfileID, p.ClientToken); ok {
			return existing, nil
		}
		return nil, apperrors.Storage("create message", err)
	}
	return &msg, nil
}

func (s *MessageStore) findByClientToken(ctx context.Context, senderProfileID string, token *string) (*models.SecureMessage, bool) {
	if token == nil || *token == "" {
		return nil, false
	}
	var msg models.SecureMessage
	err := s.db.WithContext(ctx).
		Where("sender_profile_id = ? AND client_id = ?", senderProfileID, *token).
		First(&msg).Error
	if err != nil {
		return nil, false
	}
	return &msg, true
}

// GetByID fetches one message regardless of its deleted state, for audit
// access and for mutation precondition checks.
func (s *MessageStore) GetByID(ctx context.Context, id string) (*models.SecureMessage, error) {
	var msg models.SecureMessage
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("get message", err)
	}
	return &msg, nil
}

// History returns an ascending-by-time page of the messages exchanged
// between exactly two profiles. Display callers pass includeDeleted=false;
// audit callers get the retained soft-deleted rows too.
func (s *MessageStore) History(ctx context.Context, profileA, profileB string, limit, offset int, includeDeleted bool) ([]models.SecureMessage, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	q := s.db.WithContext(ctx).
		Where("(sender_profile_id = ? AND receiver_profile_id = ?) OR (sender_profile_id = ? AND receiver_profile_id = ?)",
			profileA, profileB, profileB, profileA)
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}

	var messages []models.SecureMessage
	err := q.Order("sent_at asc, id asc").
		Limit(limit).
		Offset(offset).
		Preload("Sender").
		Preload("Receiver").
		Find(&messages).Error
	if err != nil {
		return nil, apperrors.Storage("load history", err)
	}
	return messages, nil
}

// MarkRead flips the read flag, receiver-only. The guard lives in the
// UPDATE's WHERE clause so two sessions racing on the same message cannot
// overwrite read_at. Re-reading an already-read message is a no-op success.
func (s *MessageStore) MarkRead(ctx context.Context, messageID, readerProfileID string) (*models.SecureMessage, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.SecureMessage{}).
		Where("id = ? AND receiver_profile_id = ? AND is_read = ?", messageID, readerProfileID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": &now,
		})
	if res.Error != nil {
		return nil, apperrors.Storage("mark read", res.Error)
	}

	msg, err := s.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		if msg.ReceiverProfileID != readerProfileID {
			return nil, apperrors.ErrNotAllowed
		}
		// Already read by another session of the same account.
	}
	return msg, nil
}

// SoftDelete hides a message from conversation views while retaining it
// for audit. Sender-only. Deleting twice returns the original deletion
// state rather than an error.
func (s *MessageStore) SoftDelete(ctx context.Context, messageID, deleterProfileID string) (*models.SecureMessage, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.SecureMessage{}).
		Where("id = ? AND sender_profile_id = ? AND is_deleted = ?", messageID, deleterProfileID, false).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": &now,
			"deleted_by": deleterProfileID,
		})
	if res.Error != nil {
		return nil, apperrors.Storage("soft delete", res.Error)
	}

	msg, err := s.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 && msg.SenderProfileID != deleterProfileID {
		return nil, apperrors.ErrNotAllowed
	}
	return msg, nil
}

// EditContent replaces the ciphertext, sender-only. The first edit snapshots
// the pre-edit ciphertext into original_content via COALESCE inside the same
// statement, so concurrent edits from two devices cannot lose the original.
// Editing a deleted message is rejected.
func (s *MessageStore) EditContent(ctx context.Context, messageID, editorProfileID, newCiphertext string, newIV *string) (*models.SecureMessage, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.SecureMessage{}).
		Where("id = ? AND sender_profile_id = ? AND is_deleted = ?", messageID, editorProfileID, false).
		Updates(map[string]interface{}{
			"original_content": gorm.Expr("COALESCE(original_content, content)"),
			"content":          newCiphertext,
			"iv":               newIV,
			"is_edited":        true,
			"edited_at":        &now,
		})
	if res.Error != nil {
		return nil, apperrors.Storage("edit message", res.Error)
	}

	if res.RowsAffected == 0 {
		msg, err := s.GetByID(ctx, messageID)
		if err != nil {
			return nil, err
		}
		if msg.SenderProfileID != editorProfileID {
			return nil, apperrors.ErrNotAllowed
		}
		return nil, apperrors.ErrMessageDeleted
	}

	return s.GetByID(ctx, messageID)
}
