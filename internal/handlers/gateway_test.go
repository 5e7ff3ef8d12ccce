package handlers

import (
	"context"
	"testing"

	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/identity"
	"github.com/stretchr/testify/assert"
)

func TestSendRequestValidation(t *testing.T) {
	assert.Error(t, (&SendRequest{Ciphertext: "c1"}).Validate())
	assert.Error(t, (&SendRequest{TargetID: "prof_b"}).Validate())
	assert.NoError(t, (&SendRequest{TargetID: "prof_b", Ciphertext: "c1"}).Validate())
}

func TestEditRequestValidation(t *testing.T) {
	assert.Error(t, (&EditRequest{NewCiphertext: "c2"}).Validate())
	assert.Error(t, (&EditRequest{MessageID: "m1"}).Validate())
	assert.NoError(t, (&EditRequest{MessageID: "m1", NewCiphertext: "c2"}).Validate())
}

func TestSessionProfileCache(t *testing.T) {
	env := setupEnv(t)
	resolver := identity.NewResolver(env.db)
	ctx := context.Background()

	// A session opened before onboarding starts empty and self-heals once
	// the profile exists.
	sess := newSession("acct_new", "")
	_, err := sess.ensureProfile(ctx, resolver)
	assert.Error(t, err)

	sess2 := newSession("acct_a", "")
	profileID, err := sess2.ensureProfile(ctx, resolver)
	assert.NoError(t, err)
	assert.Equal(t, "prof_a", profileID)

	// Cached after the first successful resolution.
	again, err := sess2.ensureProfile(ctx, resolver)
	assert.NoError(t, err)
	assert.Equal(t, profileID, again)

	sess.close()
	sess2.close()
}

func TestSessionDispatchPreservesOrder(t *testing.T) {
	sess := newSession("acct_a", "prof_a")
	defer sess.close()

	results := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		i := i
		sess.dispatch(func() { results <- i })
	}

	assert.Equal(t, 1, <-results)
	assert.Equal(t, 2, <-results)
	assert.Equal(t, 3, <-results)
}
