package store

import (
	"context"
	"testing"
	"time"

	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func seedThree(t *testing.T, db *gorm.DB) {
	for _, id := range []string{"a", "b", "c"} {
		db.Create(&models.Account{ID: "acct_" + id, Email: id + "@alumni.example"})
		db.Create(&models.AlumniProfile{ID: "prof_" + id, AccountID: "acct_" + id, FirstName: "P" + id})
	}
}

func msgAt(db *gorm.DB, id, sender, receiver, content string, at time.Time, read, deleted bool) {
	m := models.SecureMessage{
		ID:                id,
		SenderProfileID:   sender,
		ReceiverProfileID: receiver,
		Content:           content,
		MessageType:       models.MessageTypeText,
		IsRead:            read,
		IsDeleted:         deleted,
		SentAt:            at,
	}
	db.Create(&m)
}

func TestListConversations_OneEntryPerPeerMostRecent(t *testing.T) {
	db := setupTestDB(t)
	seedThree(t, db)
	agg := NewConversationAggregator(db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Conversation with b: three messages, latest is m3 (from b).
	msgAt(db, "m1", "prof_a", "prof_b", "c1", base, true, false)
	msgAt(db, "m2", "prof_b", "prof_a", "c2", base.Add(1*time.Minute), true, false)
	msgAt(db, "m3", "prof_b", "prof_a", "c3", base.Add(2*time.Minute), false, false)
	// Conversation with c: latest message was deleted, previous one stands.
	msgAt(db, "m4", "prof_a", "prof_c", "c4", base.Add(3*time.Minute), false, false)
	msgAt(db, "m5", "prof_a", "prof_c", "c5", base.Add(4*time.Minute), false, true)

	entries, err := agg.ListConversations(context.Background(), "prof_a", 20, 0)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)

	// Ordered by latest activity: c's surviving message m4 is older than b's m3.
	assert.Equal(t, "prof_b", entries[0].Peer.ProfileID)
	assert.Equal(t, "m3", entries[0].LastMessage.ID)
	assert.False(t, entries[0].Outgoing)
	assert.Equal(t, int64(1), entries[0].UnreadCount)

	assert.Equal(t, "prof_c", entries[1].Peer.ProfileID)
	assert.Equal(t, "m4", entries[1].LastMessage.ID)
	assert.True(t, entries[1].Outgoing)
	assert.Equal(t, int64(0), entries[1].UnreadCount)
}

func TestListConversations_TieBreakOnEqualTimestamps(t *testing.T) {
	db := setupTestDB(t)
	seedThree(t, db)
	agg := NewConversationAggregator(db)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Same peer, identical timestamps: the larger id wins rank 1.
	msgAt(db, "m_early", "prof_b", "prof_a", "first", at, true, false)
	msgAt(db, "m_late", "prof_b", "prof_a", "second", at, true, false)

	entries, err := agg.ListConversations(context.Background(), "prof_a", 20, 0)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "m_late", entries[0].LastMessage.ID)

	// Deterministic across repeated evaluations.
	again, err := agg.ListConversations(context.Background(), "prof_a", 20, 0)
	assert.NoError(t, err)
	assert.Equal(t, entries[0].LastMessage.ID, again[0].LastMessage.ID)
}

func TestListConversations_Pagination(t *testing.T) {
	db := setupTestDB(t)
	seedThree(t, db)
	agg := NewConversationAggregator(db)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msgAt(db, "p1", "prof_b", "prof_a", "x", base, true, false)
	msgAt(db, "p2", "prof_c", "prof_a", "y", base.Add(time.Minute), true, false)

	page1, err := agg.ListConversations(context.Background(), "prof_a", 1, 0)
	assert.NoError(t, err)
	page2, err := agg.ListConversations(context.Background(), "prof_a", 1, 1)
	assert.NoError(t, err)

	assert.Len(t, page1, 1)
	assert.Len(t, page2, 1)
	assert.Equal(t, "prof_c", page1[0].Peer.ProfileID)
	assert.Equal(t, "prof_b", page2[0].Peer.ProfileID)
}

func TestUnreadCounts_SumMatchesTotal(t *testing.T) {
	db := setupTestDB(t)
	seedThree(t, db)
	agg := NewConversationAggregator(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msgAt(db, "u1", "prof_b", "prof_a", "x", base, false, false)
	msgAt(db, "u2", "prof_b", "prof_a", "y", base.Add(time.Minute), false, false)
	msgAt(db, "u3", "prof_c", "prof_a", "z", base.Add(2*time.Minute), false, false)
	// Read and deleted messages count for nobody.
	msgAt(db, "u4", "prof_c", "prof_a", "w", base.Add(3*time.Minute), true, false)
	msgAt(db, "u5", "prof_c", "prof_a", "v", base.Add(4*time.Minute), false, true)
	// Outbound unread is the peer's problem, not prof_a's.
	msgAt(db, "u6", "prof_a", "prof_b", "q", base.Add(5*time.Minute), false, false)

	counts, err := agg.UnreadCountsByPeer(ctx, "prof_a")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), counts["prof_b"])
	assert.Equal(t, int64(1), counts["prof_c"])

	total, err := agg.UnreadTotal(ctx, "prof_a")
	assert.NoError(t, err)

	var sum int64
	for _, c := range counts {
		sum += c
	}
	assert.Equal(t, total, sum)
}
