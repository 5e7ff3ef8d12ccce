package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message kinds. Attachment messages carry a ciphertext-wrapped storage
// reference in Content; the blob itself lives with the upload service.
const (
	MessageTypeText       = "text"
	MessageTypeAttachment = "attachment"
)

// SecureMessage is one end-to-end-encrypted direct message between two
// alumni profiles. The server never sees plaintext: Content and IV are
// opaque material produced by the clients.
type SecureMessage struct {
	ID string `gorm:"primaryKey;type:text" json:"id"`

	SenderProfileID   string `gorm:"index;uniqueIndex:idx_messages_sender_client;type:text;not null" json:"senderProfileId"`
	ReceiverProfileID string `gorm:"index;type:text;not null" json:"receiverProfileId"`

	// Ciphertext payload plus optional initialization-vector material.
	Content string  `gorm:"type:text;not null" json:"content"`
	IV      *string `gorm:"column:iv;type:text" json:"iv"`

	// Client-generated correlation token, echoed back on the ack so a
	// device can match the persisted row to its optimistic UI entry. The
	// unique index with the sender makes retried submissions collapse to
	// one durable row.
	ClientID *string `gorm:"uniqueIndex:idx_messages_sender_client;type:text" json:"clientId"`

	// Snapshots of both parties' published keys at send time, kept for
	// forward-secrecy auditing. Absence never blocks delivery.
	SenderPublicKey   *string `gorm:"type:text" json:"senderPublicKey"`
	ReceiverPublicKey *string `gorm:"type:text" json:"receiverPublicKey"`

	MessageType string `gorm:"type:text;default:'text';not null" json:"messageType"`

	IsRead bool       `gorm:"default:false" json:"isRead"`
	ReadAt *time.Time `json:"readAt"`

	// Soft delete: hidden from conversation views, retained for audit.
	IsDeleted bool       `gorm:"default:false;index" json:"isDeleted"`
	DeletedAt *time.Time `json:"deletedAt"`
	DeletedBy *string    `gorm:"type:text" json:"deletedBy"`

	// OriginalContent is written exactly once, on the first edit.
	IsEdited        bool       `gorm:"default:false" json:"isEdited"`
	EditedAt        *time.Time `json:"editedAt"`
	OriginalContent *string    `gorm:"type:text" json:"originalContent"`

	SentAt time.Time `gorm:"index;not null" json:"sentAt"`

	Sender   AlumniProfile `gorm:"foreignKey:SenderProfileID" json:"sender,omitempty"`
	Receiver AlumniProfile `gorm:"foreignKey:ReceiverProfileID" json:"receiver,omitempty"`
}

func (SecureMessage) TableName() string {
	return "messages"
}

func (m *SecureMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.SentAt.IsZero() {
		m.SentAt = time.Now()
	}
	return
}
