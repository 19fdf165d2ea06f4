package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk/helpdesk-service/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 60)
	account := &domain.Account{ID: 42, RoleKind: domain.RoleKindAgent}

	token, expiresAt, err := tm.GenerateToken(account)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.AccountID)
	assert.Equal(t, domain.RoleKindAgent, claims.Kind)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	tm := NewTokenManager("secret-a", 60)
	other := NewTokenManager("secret-b", 60)

	token, _, err := tm.GenerateToken(&domain.Account{ID: 1, RoleKind: domain.RoleKindRequester})
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	require.Error(t, err)
}

func TestPasswordHashAndCompare(t *testing.T) {
	hash, err := HashPassword("hunter22", 4)
	require.NoError(t, err)

	require.NoError(t, ComparePassword(hash, "hunter22"))
	require.Error(t, ComparePassword(hash, "nope"))
}
