package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	tok, err := NewAccessToken(testSecret, "alice", []string{"ADMIN", "MEMBER"}, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)
	assert.WithinDuration(t, time.Now().UTC().Add(time.Hour), tok.Exp, 5*time.Second)

	claims, err := ParseAccessToken(testSecret, tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, []string{"ADMIN", "MEMBER"}, claims.Roles)
}

func TestAccessTokenZeroTTLIsExpired(t *testing.T) {
	tok, err := NewAccessToken(testSecret, "bob", []string{"MEMBER"}, 0)
	require.NoError(t, err)

	_, err = ParseAccessToken(testSecret, tok.Token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAccessTokenWrongSecret(t *testing.T) {
	tok, err := NewAccessToken(testSecret, "carol", []string{"MEMBER"}, time.Hour)
	require.NoError(t, err)

	_, err = ParseAccessToken("a-different-secret", tok.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAccessTokenTampered(t *testing.T) {
	tok, err := NewAccessToken(testSecret, "dave", []string{"MEMBER"}, time.Hour)
	require.NoError(t, err)

	// Flip a character in the signature segment.
	raw := tok.Token
	tampered := raw[:len(raw)-2] + "xx"
	_, err = ParseAccessToken(testSecret, tampered)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestAccessTokenGarbageIsMalformed(t *testing.T) {
	_, err := ParseAccessToken(testSecret, "not.a.jwt at all")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestRolesFromClaimSkipsNonStrings(t *testing.T) {
	roles := rolesFromClaim([]interface{}{"ADMIN", 42, "", "MEMBER"})
	assert.Equal(t, []string{"ADMIN", "MEMBER"}, roles)

	assert.Nil(t, rolesFromClaim("ADMIN"))
	assert.Nil(t, rolesFromClaim(nil))
}
