package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_IssueVerify(t *testing.T) {
	m := NewManager("secret", "creator-chat", time.Minute)

	token, err := m.Issue(42, "creator")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "creator", claims.Role)
}

func TestManager_Expired(t *testing.T) {
	m := NewManager("secret", "", -time.Minute)

	token, err := m.Issue(42, "")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestManager_WrongSecret(t *testing.T) {
	token, err := NewManager("one", "", time.Minute).Issue(1, "")
	require.NoError(t, err)

	_, err = NewManager("two", "", time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_SubjectFallback(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Subject:   "17",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	got, err := NewManager("secret", "", time.Minute).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(17), got.UserID)
}

func TestManager_NonNumericSubject(t *testing.T) {
	claims := jwt.RegisteredClaims{Subject: "alice"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewManager("secret", "", time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
