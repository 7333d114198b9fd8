package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_RoundTrip(t *testing.T) {
	svc := New("secret", time.Hour)

	token, err := svc.GenerateToken(42, "provider", 7)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "provider", claims.Role)
	assert.Equal(t, int64(7), claims.ProviderID)
}

func TestService_RejectsForeignAndExpired(t *testing.T) {
	token, err := New("other", time.Hour).GenerateToken(1, "customer", 0)
	require.NoError(t, err)
	_, err = New("secret", time.Hour).ValidateToken(token)
	assert.Error(t, err)

	expired, err := New("secret", -time.Minute).GenerateToken(1, "customer", 0)
	require.NoError(t, err)
	_, err = New("secret", time.Hour).ValidateToken(expired)
	assert.Error(t, err)
}
