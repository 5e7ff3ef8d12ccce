package store

import (
	"context"
	"errors"
	"time"

	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/models"
	apperrors "github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KeyDirectory is a blind store for key-exchange material: one opaque
// public-key blob per account, upserted on publish. Concurrent publishes
// from multiple devices race at the upsert; last write wins.
type KeyDirectory struct {
	db *gorm.DB
}

func NewKeyDirectory(db *gorm.DB) *KeyDirectory {
	return &KeyDirectory{db: db}
}

// Publish stores or replaces the account's key. Idempotent from the
// client's perspective; no server-side validation of the key material.
func (d *KeyDirectory) Publish(ctx context.Context, accountID, publicKey, algorithm string) (*models.UserPublicKey, error) {
	if algorithm == "" {
		algorithm = models.DefaultKeyAlgorithm
	}

	record := models.UserPublicKey{
		AccountID: accountID,
		PublicKey: publicKey,
		Algorithm: algorithm,
	}

	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"public_key": publicKey,
			"algorithm":  algorithm,
			"updated_at": time.Now(),
		}),
	}).Create(&record).Error
	if err != nil {
		return nil, apperrors.Storage("publish key", err)
	}

	return d.Fetch(ctx, accountID)
}

// Fetch returns the account's current key record, or ErrNotFound if the
// account never published one.
func (d *KeyDirectory) Fetch(ctx context.Context, accountID string) (*models.UserPublicKey, error) {
	var record models.UserPublicKey
	err := d.db.WithContext(ctx).Where("account_id = ?", accountID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Storage("fetch key", err)
	}
	return &record, nil
}
