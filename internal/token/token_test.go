package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyRoundTrip(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)
	verifier := NewVerifier(codec)

	raw, err := codec.Issue(42, "user@example.com")
	require.NoError(t, err)

	claims, err := verifier.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestVerifyDeterministic(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)
	verifier := NewVerifier(codec)

	raw, err := codec.Issue(7, "a@b.c")
	require.NoError(t, err)

	first, err := verifier.Verify(raw)
	require.NoError(t, err)

	second, err := verifier.Verify(raw)
	require.NoError(t, err)

	assert.Equal(t, first.UserID, second.UserID)
	assert.Equal(t, first.Email, second.Email)
}

func TestVerifyMissingToken(t *testing.T) {
	verifier := NewVerifier(NewCodec("test-secret", time.Hour))

	_, err := verifier.Verify("")
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestVerifyMalformedToken(t *testing.T) {
	verifier := NewVerifier(NewCodec("test-secret", time.Hour))

	_, err := verifier.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrBadCredential)
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewCodec("issuer-secret", time.Hour)
	verifier := NewVerifier(NewCodec("other-secret", time.Hour))

	raw, err := issuer.Issue(1, "a@b.c")
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	assert.ErrorIs(t, err, ErrBadCredential)
}

func TestVerifyExpiredToken(t *testing.T) {
	codec := NewCodec("test-secret", -time.Minute)
	verifier := NewVerifier(codec)

	raw, err := codec.Issue(1, "a@b.c")
	require.NoError(t, err)

	_, err = verifier.Verify(raw)
	assert.ErrorIs(t, err, ErrBadCredential)
}

func TestVerifyTamperedToken(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)
	verifier := NewVerifier(codec)

	raw, err := codec.Issue(1, "a@b.c")
	require.NoError(t, err)

	tampered := raw[:len(raw)-2] + "xx"

	_, err = verifier.Verify(tampered)
	assert.ErrorIs(t, err, ErrBadCredential)
}
