package store

import (
	"context"

	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/identity"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/models"
	apperrors "github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/pkg/errors"
	"gorm.io/gorm"
)

// ConversationAggregator derives the inbox view from the message log.
// There is no conversation table: the view is recomputed per query and is
// therefore always consistent with the log.
type ConversationAggregator struct {
	db *gorm.DB
}

func NewConversationAggregator(db *gorm.DB) *ConversationAggregator {
	return &ConversationAggregator{db: db}
}

// ConversationEntry is one inbox row: a peer and the most recent
// non-deleted message exchanged with them.
type ConversationEntry struct {
	Peer        identity.DisplayBundle `json:"peer"`
	LastMessage models.SecureMessage   `json:"lastMessage"`
	Outgoing    bool                   `json:"outgoing"`
	UnreadCount int64                  `json:"unreadCount"`
}

// ListConversations partitions the profile's messages by peer, ranks each
// partition by recency and keeps rank 1. Equal timestamps are broken by
// id DESC to keep pagination stable.
func (a *ConversationAggregator) ListConversations(ctx context.Context, profileID string, limit, offset int) ([]ConversationEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
		WITH ranked AS (
			SELECT
				m.id,
				CASE WHEN m.sender_profile_id = ? THEN m.receiver_profile_id ELSE m.sender_profile_id END AS peer_id,
				ROW_NUMBER() OVER (
					PARTITION BY CASE WHEN m.sender_profile_id = ? THEN m.receiver_profile_id ELSE m.sender_profile_id END
					ORDER BY m.sent_at DESC, m.id DESC
				) AS rn,
				m.sent_at
			FROM messages m
			WHERE (m.sender_profile_id = ? OR m.receiver_profile_id = ?)
			  AND m.is_deleted = ?
		)
		SELECT
			r.id,
			r.peer_id,
			(SELECT count(*) FROM messages WHERE sender_profile_id = r.peer_id AND receiver_profile_id = ? AND is_read = ? AND is_deleted = ?) AS unread_count
		FROM ranked r
		WHERE r.rn = 1
		ORDER BY r.sent_at DESC, r.id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := a.db.WithContext(ctx).
		Raw(query, profileID, profileID, profileID, profileID, false, profileID, false, false, limit, offset).
		Rows()
	if err != nil {
		return nil, apperrors.Storage("list conversations", err)
	}
	defer rows.Close()

	type rankedRow struct {
		messageID string
		peerID    string
		unread    int64
	}
	var ranked []rankedRow
	for rows.Next() {
		var r rankedRow
		if err := rows.Scan(&r.messageID, &r.peerID, &r.unread); err != nil {
			return nil, apperrors.Storage("scan conversation row", err)
		}
		ranked = append(ranked, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("iterate conversation rows", err)
	}

	entries := make([]ConversationEntry, 0, len(ranked))
	for _, r := range ranked {
		var msg models.SecureMessage
		if err := a.db.WithContext(ctx).Where("id = ?", r.messageID).First(&msg).Error; err != nil {
			return nil, apperrors.Storage("load latest message", err)
		}

		var peer models.AlumniProfile
		if err := a.db.WithContext(ctx).Where("id = ?", r.peerID).First(&peer).Error; err != nil {
			return nil, apperrors.Storage("load peer profile", err)
		}

		entries = append(entries, ConversationEntry{
			Peer: identity.DisplayBundle{
				ProfileID:      peer.ID,
				Name:           peer.FullName(),
				ProfilePicture: peer.ProfilePicture,
			},
			LastMessage: msg,
			Outgoing:    msg.SenderProfileID == profileID,
			UnreadCount: r.unread,
		})
	}
	return entries, nil
}

// UnreadCountsByPeer groups the profile's unread inbound messages by
// sender, for badge rendering. Independent of the latest-message view.
func (a *ConversationAggregator) UnreadCountsByPeer(ctx context.Context, profileID string) (map[string]int64, error) {
	rows, err := a.db.WithContext(ctx).Model(&models.SecureMessage{}).
		Select("sender_profile_id, count(*) as cnt").
		Where("receiver_profile_id = ? AND is_read = ? AND is_deleted = ?", profileID, false, false).
		Group("sender_profile_id").
		Rows()
	if err != nil {
		return nil, apperrors.Storage("unread counts by peer", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var sender string
		var cnt int64
		if err := rows.Scan(&sender, &cnt); err != nil {
			return nil, apperrors.Storage("scan unread count row", err)
		}
		counts[sender] = cnt
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage("iterate unread count rows", err)
	}
	return counts, nil
}

// UnreadTotal is the badge number shown on the inbox icon.
func (a *ConversationAggregator) UnreadTotal(ctx context.Context, profileID string) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).Model(&models.SecureMessage{}).
		Where("receiver_profile_id = ? AND is_read = ? AND is_deleted = ?", profileID, false, false).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Storage("unread total", err)
	}
	return count, nil
}
