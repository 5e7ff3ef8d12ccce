package identity

import (
	"context"
	"fmt"
	"testing"

	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/models"
	apperrors "github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/pkg/errors"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	if err := db.AutoMigrate(&models.Account{}, &models.AlumniProfile{}); err != nil {
		t.Fatalf("Failed to migrate test DB: %v", err)
	}
	return db
}

func seed(t *testing.T, db *gorm.DB) {
	db.Create(&models.Account{ID: "acct_1", Email: "one@alumni.example"})
	db.Create(&models.Account{ID: "acct_2", Email: "two@alumni.example"})
	db.Create(&models.AlumniProfile{
		ID: "prof_1", AccountID: "acct_1",
		FirstName: "Asha", LastName: "Verma", ProfilePicture: "https://cdn.example/a.png",
	})
	// acct_2 has no profile: onboarding not finished.
}

func TestProfileIDForAccount(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)
	r := NewResolver(db)
	ctx := context.Background()

	profileID, err := r.ProfileIDForAccount(ctx, "acct_1")
	assert.NoError(t, err)
	assert.Equal(t, "prof_1", profileID)

	_, err = r.ProfileIDForAccount(ctx, "acct_2")
	assert.ErrorIs(t, err, apperrors.ErrNoProfile)
}

func TestAccountIDForProfile(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)
	r := NewResolver(db)
	ctx := context.Background()

	accountID, err := r.AccountIDForProfile(ctx, "prof_1")
	assert.NoError(t, err)
	assert.Equal(t, "acct_1", accountID)

	_, err = r.AccountIDForProfile(ctx, "prof_unknown")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestResolveTarget_AcceptsEitherNamespace(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)
	r := NewResolver(db)
	ctx := context.Background()

	byProfile, err := r.ResolveTarget(ctx, "prof_1")
	assert.NoError(t, err)
	assert.Equal(t, Resolved{AccountID: "acct_1", ProfileID: "prof_1"}, byProfile)

	byAccount, err := r.ResolveTarget(ctx, "acct_1")
	assert.NoError(t, err)
	assert.Equal(t, byProfile, byAccount)

	// An account without a profile cannot receive messages.
	_, err = r.ResolveTarget(ctx, "acct_2")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = r.ResolveTarget(ctx, "garbage")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDisplayBundleAndContactEmail(t *testing.T) {
	db := setupTestDB(t)
	seed(t, db)
	r := NewResolver(db)
	ctx := context.Background()

	bundle, err := r.DisplayBundle(ctx, "prof_1")
	assert.NoError(t, err)
	assert.Equal(t, "Asha Verma", bundle.Name)
	assert.Equal(t, "https://cdn.example/a.png", bundle.ProfilePicture)

	email, err := r.ContactEmail(ctx, "prof_1")
	assert.NoError(t, err)
	assert.Equal(t, "one@alumni.example", email)

	_, err = r.ContactEmail(ctx, "prof_unknown")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
