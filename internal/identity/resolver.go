// Package identity translates between the two identifier namespaces the
// platform carries: account IDs (authentication) and alumni-profile IDs
// (directory). Messaging entities store profile IDs only, so every inbound
// account-scoped call passes through here before touching the message log.
package identity

import (
	"context"
	"errors"

	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/models"
	apperrors "github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/pkg/errors"
	"gorm.io/gorm"
)

type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ProfileIDForAccount returns the profile owned by the account, or
// ErrNoProfile when the account exists but onboarding has not created one
// yet. The caller must treat ErrNoProfile as a permanent precondition
// failure, not a retryable error.
func (r *Resolver) ProfileIDForAccount(ctx context.Context, accountID string) (string, error) {
	var profile models.AlumniProfile
	err := r.db.WithContext(ctx).
		Select("id").
		Where("account_id = ?", accountID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperrors.ErrNoProfile
	}
	if err != nil {
		return "", apperrors.Storage("resolve profile for account", err)
	}
	return profile.ID, nil
}

// AccountIDForProfile is the reverse mapping, used to key broadcast rooms
// and key-directory lookups from a profile-scoped message.
func (r *Resolver) AccountIDForProfile(ctx context.Context, profileID string) (string, error) {
	var profile models.AlumniProfile
	err := r.db.WithContext(ctx).
		Select("account_id").
		Where("id = ?", profileID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperrors.ErrNotFound
	}
	if err != nil {
		return "", apperrors.Storage("resolve account for profile", err)
	}
	return profile.AccountID, nil
}

// Resolved is a normalized identity pair.
type Resolved struct {
	AccountID string
	ProfileID string
}

// ResolveTarget accepts either a profile ID or an account ID — clients send
// whichever they have on hand — and normalizes to both. Profile IDs are
// tried first since they are what conversation views hand out.
func (r *Resolver) ResolveTarget(ctx context.Context, id string) (Resolved, error) {
	accountID, err := r.AccountIDForProfile(ctx, id)
	if err == nil {
		return Resolved{AccountID: accountID, ProfileID: id}, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return Resolved{}, err
	}

	profileID, err := r.ProfileIDForAccount(ctx, id)
	if errors.Is(err, apperrors.ErrNoProfile) {
		// The id matched neither namespace, or the account has no profile.
		// Either way the target cannot receive messages.
		return Resolved{}, apperrors.ErrNotFound
	}
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{AccountID: id, ProfileID: profileID}, nil
}

// DisplayBundle carries the directory attributes attached to fan-out
// payloads so recipients can render the conversation without a second
// profile fetch.
type DisplayBundle struct {
	ProfileID      string `json:"profileId"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
}

func (r *Resolver) DisplayBundle(ctx context.Context, profileID string) (DisplayBundle, error) {
	var profile models.AlumniProfile
	err := r.db.WithContext(ctx).
		Select("id", "first_name", "last_name", "profile_picture").
		Where("id = ?", profileID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DisplayBundle{}, apperrors.ErrNotFound
	}
	if err != nil {
		return DisplayBundle{}, apperrors.Storage("load display bundle", err)
	}
	return DisplayBundle{
		ProfileID:      profile.ID,
		Name:           profile.FullName(),
		ProfilePicture: profile.ProfilePicture,
	}, nil
}

// ContactEmail returns the account email behind a profile, for the
// notification dispatcher.
func (r *Resolver) ContactEmail(ctx context.Context, profileID string) (string, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Select("accounts.email").
		Joins("JOIN alumni_profiles ON alumni_profiles.account_id = accounts.id").
		Where("alumni_profiles.id = ?", profileID).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperrors.ErrNotFound
	}
	if err != nil {
		return "", apperrors.Storage("load contact email", err)
	}
	return account.Email, nil
}
