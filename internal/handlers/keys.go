package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/store"
	apperrors "github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/pkg/errors"
)

// KeyHandler exposes the public-key directory over REST.
type KeyHandler struct {
	keys *store.KeyDirectory
}

func NewKeyHandler(keys *store.KeyDirectory) *KeyHandler {
	return &KeyHandler{keys: keys}
}

type PublishKeyBody struct {
	PublicKey string `json:"publicKey" binding:"required"`
	Algorithm string `json:"algorithm"`
}

// PublishKey POST /keys — idempotent upsert of the caller's key.
func (h *KeyHandler) PublishKey(c *gin.Context) {
	accountID := c.MustGet("accountId").(string)

	var req PublishKeyBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	record, err := h.keys.Publish(c.Request.Context(), accountID, req.PublicKey, req.Algorithm)
	if err != nil {
		appErr := apperrors.ToAppError(err)
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": record})
}

// GetKey GET /keys/:accountId — anyone authenticated may fetch any
// account's key; that is what makes it a directory.
func (h *KeyHandler) GetKey(c *gin.Context) {
	record, err := h.keys.Fetch(c.Request.Context(), c.Param("accountId"))
	if err != nil {
		appErr := apperrors.ToAppError(err)
		c.JSON(appErr.Code, gin.H{"error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": record})
}
