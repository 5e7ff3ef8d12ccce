package store

import (
	"context"
	"testing"

	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/models"
	apperrors "github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPublishTwice_SingleRowLastWriteWins(t *testing.T) {
	db := setupTestDB(t)
	d := NewKeyDirectory(db)
	ctx := context.Background()

	first, err := d.Publish(ctx, "acct_a", "key-v1", "")
	assert.NoError(t, err)
	assert.Equal(t, "key-v1", first.PublicKey)
	assert.Equal(t, models.DefaultKeyAlgorithm, first.Algorithm)

	second, err := d.Publish(ctx, "acct_a", "key-v2", "X25519")
	assert.NoError(t, err)
	assert.Equal(t, "key-v2", second.PublicKey)
	assert.Equal(t, "X25519", second.Algorithm)

	var count int64
	db.Model(&models.UserPublicKey{}).Where("account_id = ?", "acct_a").Count(&count)
	assert.Equal(t, int64(1), count, "republishing must not create a second row")
}

func TestFetch_NotFound(t *testing.T) {
	db := setupTestDB(t)
	d := NewKeyDirectory(db)

	_, err := d.Fetch(context.Background(), "acct_missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPublish_IsolatedPerAccount(t *testing.T) {
	db := setupTestDB(t)
	d := NewKeyDirectory(db)
	ctx := context.Background()

	d.Publish(ctx, "acct_a", "key-a", "")
	d.Publish(ctx, "acct_b", "key-b", "")

	got, err := d.Fetch(ctx, "acct_b")
	assert.NoError(t, err)
	assert.Equal(t, "key-b", got.PublicKey)
}
