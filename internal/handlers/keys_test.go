package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPublishKey_UpsertKeepsOneRow(t *testing.T) {
	env := setupEnv(t)

	w, c := request(t, "acct_a", "POST", "/api/keys", gin.H{"publicKey": "pk-v1"}, nil)
	env.keys.PublishKey(c)
	assert.Equal(t, http.StatusOK, w.Code)

	w, c = request(t, "acct_a", "POST", "/api/keys", gin.H{"publicKey": "pk-v2"}, nil)
	env.keys.PublishKey(c)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	env.db.Model(&models.UserPublicKey{}).Where("account_id = ?", "acct_a").Count(&count)
	assert.Equal(t, int64(1), count)

	var record models.UserPublicKey
	env.db.First(&record, "account_id = ?", "acct_a")
	assert.Equal(t, "pk-v2", record.PublicKey)
}

func TestGetKey_ByAccountID(t *testing.T) {
	env := setupEnv(t)

	_, c := request(t, "acct_b", "POST", "/api/keys", gin.H{"publicKey": "pk-b"}, nil)
	env.keys.PublishKey(c)

	w, c := request(t, "acct_a", "GET", "/api/keys/acct_b", nil,
		gin.Params{{Key: "accountId", Value: "acct_b"}})
	env.keys.GetKey(c)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Key models.UserPublicKey `json:"key"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "pk-b", resp.Key.PublicKey)
	assert.Equal(t, models.DefaultKeyAlgorithm, resp.Key.Algorithm)
}

func TestGetKey_NotPublished(t *testing.T) {
	env := setupEnv(t)

	w, c := request(t, "acct_a", "GET", "/api/keys/acct_b", nil,
		gin.Params{{Key: "accountId", Value: "acct_b"}})
	env.keys.GetKey(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendMessage_AttachesKeySnapshots(t *testing.T) {
	env := setupEnv(t)

	_, c := request(t, "acct_a", "POST", "/api/keys", gin.H{"publicKey": "pk-a"}, nil)
	env.keys.PublishKey(c)
	_, c = request(t, "acct_b", "POST", "/api/keys", gin.H{"publicKey": "pk-b"}, nil)
	env.keys.PublishKey(c)

	w, c := request(t, "acct_a", "POST", "/api/messages", gin.H{
		"receiverId": "prof_b", "content": "c1",
	}, nil)
	env.messages.SendMessage(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	var msg models.SecureMessage
	env.db.First(&msg)
	assert.Equal(t, "pk-a", *msg.SenderPublicKey)
	assert.Equal(t, "pk-b", *msg.ReceiverPublicKey)
}
