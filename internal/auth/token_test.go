package auth

import (
	"errors"
	"testing"
	"time"

	"internship-portal/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("secret", "portal", time.Hour)
	userID := uuid.New()

	token, err := issuer.Issue(userID, models.RoleTPO)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleTPO, claims.Role)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestParse_Rejects(t *testing.T) {
	issuer := NewIssuer("secret", "portal", time.Hour)
	token, err := issuer.Issue(uuid.New(), models.RoleAdmin)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewIssuer("other", "portal", time.Hour).Parse(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		_, err := NewIssuer("secret", "elsewhere", time.Hour).Parse(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		late := NewIssuer("secret", "portal", time.Hour)
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Parse(token)
		assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not-a-token")
		assert.Error(t, err)
	})
}
