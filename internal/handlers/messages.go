package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/hub"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/identity"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/notify"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/store"
	apperrors "github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/pkg/errors"
)

// MessageHandler is the REST surface over the messaging core, used by
// clients before/after a live session exists. Mutations fan out through
// the same hub as the live protocol so open sessions stay in sync.
type MessageHandler struct {
	hub        *hub.Hub
	resolver   *identity.Resolver
	messages   *store.MessageStore
	keys       *store.KeyDirectory
	convos     *store.ConversationAggregator
	dispatcher *notify.Dispatcher
}

func NewMessageHandler(h *hub.Hub, resolver *identity.Resolver, messages *store.MessageStore, keys *store.KeyDirectory, convos *store.ConversationAggregator, dispatcher *notify.Dispatcher) *MessageHandler {
	return &MessageHandler{
		hub:        h,
		resolver:   resolver,
		messages:   messages,
		keys:       keys,
		convos:     convos,
		dispatcher: dispatcher,
	}
}

// profileID resolves the caller's profile or writes the error response.
func (h *MessageHandler) profileID(c *gin.Context) (string, bool) {
	accountID := c.MustGet("accountId").(string)
	profileID, err := h.resolver.ProfileIDForAccount(c.Request.Context(), accountID)
	if err != nil {
		appErr := apperrors.ToAppError(err)
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return "", false
	}
	return profileID, true
}

func pagination(c *gin.Context, defaultLimit int) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetConversations GET /conversations
func (h *MessageHandler) GetConversations(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}
	limit, offset := pagination(c, 20)

	entries, err := h.convos.ListConversations(c.Request.Context(), profileID, limit, offset)
	if err != nil {
		appErr := apperrors.ToAppError(err)
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": entries})
}

// GetConversationHistory GET /conversations/:peerId
func (h *MessageHandler) GetConversationHistory(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}
	peerID := c.Param("peerId")
	limit, offset := pagination(c, 50)

	peer, err := h.resolver.DisplayBundle(c.Request.Context(), peerID)
	if err != nil {
		appErr := apperrors.ToAppError(err)
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}
	self, err := h.resolver.DisplayBundle(c.Request.Context(), profileID)
	if err != nil {
		appErr := apperrors.ToAppError(err)
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	// Display view: soft-deleted rows stay out; audit access goes through
	// direct message lookup, not this endpoint.
	messages, err := h.messages.History(c.Request.Context(), profileID, peerID, limit, offset, false)
	if err != nil {
		appErr := apperrors.ToAppError(err)
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":     messages,
		"participants": gin.H{"self": self, "peer": peer},
	})
}

type SendMessageRequest struct {
	ReceiverID  string  `json:"receiverId" binding:"required"`
	Content     string  `json:"content" binding:"required"`
	MessageType string  `json:"messageType"`
	IV          *string `json:"iv"`
	ClientID    *string `json:"clientId"`
}

// SendMessage POST /messages — the non-live equivalent of secure:send.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	ctx := c.Request.Context()
	accountID := c.MustGet("accountId").(string)

	target, err := h.resolver.ResolveTarget(ctx, req.ReceiverID)
	if err != nil {
		appErr := apperrors.ToAppError(err)
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	var senderKey, receiverKey *string
	if rec, err := h.keys.Fetch(ctx, accountID); err == nil {
		senderKey = &rec.PublicKey
	}
	if rec, err := h.keys.Fetch(ctx, target.AccountID); err == nil {
		receiverKey = &rec.PublicKey
	}

	msg, err := h.messages.Create(ctx, store.CreateParams{
		SenderProfileID:   profileID,
		ReceiverProfileID: target.ProfileID,
		Ciphertext:        req.Content,
		IV:                req.IV,
		ClientToken:       req.ClientID,
		MessageType:       req.MessageType,
		SenderPublicKey:   senderKey,
		ReceiverPublicKey: receiverKey,
	})
	if err != nil {
		appErr := apperrors.ToAppError(err)
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	payload := gin.H{
		"from":     profileID,
		"message":  msg,
		"clientId": req.ClientID,
	}
	h.hub.EmitToAccount(target.AccountID, "secure:receive", payload)
	h.hub.EmitToAccount(accountID, "secure:receive", payload)

	h.dispatcher.MessageDelivered(target.AccountID, target.ProfileID, profileID)

	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// MarkMessageRead PUT /messages/:id/read — receiver-only.
func (h *MessageHandler) MarkMessageRead(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}

	msg, err := h.messages.MarkRead(c.Request.Context(), c.Param("id"), profileID)
	if err != nil {
		appErr := apperrors.ToAppError(err)
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	// Tell the sender's sessions their message was read.
	if senderAccount, rerr := h.resolver.AccountIDForProfile(c.Request.Context(), msg.SenderProfileID); rerr == nil {
		h.hub.EmitToAccount(senderAccount, "message:read", gin.H{
			"messageId": msg.ID,
			"readAt":    msg.ReadAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// DeleteMessage DELETE /messages/:id — sender-only soft delete.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}

	msg, err := h.messages.SoftDelete(c.Request.Context(), c.Param("id"), profileID)
	if err != nil {
		appErr := apperrors.ToAppError(err)
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	payload := gin.H{
		"messageId": msg.ID,
		"deletedAt": msg.DeletedAt,
	}
	if receiverAccount, rerr := h.resolver.AccountIDForProfile(c.Request.Context(), msg.ReceiverProfileID); rerr == nil {
		h.hub.EmitToAccount(receiverAccount, "message:deleted", payload)
	}
	accountID := c.MustGet("accountId").(string)
	h.hub.EmitToAccount(accountID, "message:deleted", payload)

	c.JSON(http.StatusOK, gin.H{"messageId": msg.ID, "deletedAt": msg.DeletedAt})
}

// GetUnreadCount GET /unread/count
func (h *MessageHandler) GetUnreadCount(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}

	count, err := h.convos.UnreadTotal(c.Request.Context(), profileID)
	if err != nil {
		appErr := apperrors.ToAppError(err)
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// GetUnreadByConversation GET /unread/by-conversation
func (h *MessageHandler) GetUnreadByConversation(c *gin.Context) {
	profileID, ok := h.profileID(c)
	if !ok {
		return
	}

	counts, err := h.convos.UnreadCountsByPeer(c.Request.Context(), profileID)
	if err != nil {
		appErr := apperrors.ToAppError(err)
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"counts": counts})
}
