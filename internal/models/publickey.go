package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultKeyAlgorithm tags keys published by current clients.
const DefaultKeyAlgorithm = "RSA-OAEP-2048"

// UserPublicKey is the one key-exchange record an account may hold. The
// directory is a blind store: the blob is never parsed or validated here.
// Republishing overwrites the prior key (last write wins).
type UserPublicKey struct {
	ID        string `gorm:"primaryKey;type:text" json:"id"`
	AccountID string `gorm:"uniqueIndex;type:text;not null" json:"accountId"`

	PublicKey string `gorm:"type:text;not null" json:"publicKey"`
	Algorithm string `gorm:"type:text;default:'RSA-OAEP-2048';not null" json:"algorithm"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (UserPublicKey) TableName() string {
	return "public_keys"
}

func (k *UserPublicKey) BeforeCreate(tx *gorm.DB) (err error) {
	if k.ID == "" {
		k.ID = uuid.New().String()
	}
	return
}
