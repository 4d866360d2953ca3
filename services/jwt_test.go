package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chat-server/models"
)

func TestJWT_RoundTrip(t *testing.T) {
	token, err := GenerateToken(models.User{ID: "user-1", Username: "alice"})
	require.NoError(t, err)

	userID, err := ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
}

func TestJWT_InvalidToken(t *testing.T) {
	_, err := ParseToken("not-a-token")
	require.Error(t, err)

	_, err = ParseToken("")
	require.Error(t, err)
}
