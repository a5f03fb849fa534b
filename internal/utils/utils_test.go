package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenClaims(t *testing.T) {
	t.Parallel()

	at, err := NewAccessToken("test-secret", 42, "student", 15)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), at.Exp, 5*time.Second)

	tok, err := jwt.Parse(at.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, tok.Valid)

	claims := tok.Claims.(jwt.MapClaims)
	require.Equal(t, float64(42), claims["sub"])
	require.Equal(t, "student", claims["role"])
}

func TestRefreshTokenHashing(t *testing.T) {
	t.Parallel()

	rt, err := NewRefreshToken(7)
	require.NoError(t, err)
	require.Len(t, rt.Raw, 96)

	// Same raw hashes the same, different raws differ.
	require.Equal(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw))
	other, err := NewRefreshToken(7)
	require.NoError(t, err)
	require.NotEqual(t, HashRefreshRaw(rt.Raw), HashRefreshRaw(other.Raw))
}

func TestOTPRoundtrip(t *testing.T) {
	t.Parallel()

	code, err := RandomOTPCode()
	require.NoError(t, err)
	require.Len(t, code, 6)

	hash := HashOTP(code)
	require.True(t, VerifyOTP(hash, code))

	wrong := "000000"
	if code == wrong {
		wrong = "000001"
	}
	require.False(t, VerifyOTP(hash, wrong))
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	h, err := HashPassword("hunter2hunter2", 4)
	require.NoError(t, err)
	require.True(t, VerifyPassword(h, "hunter2hunter2"))
	require.False(t, VerifyPassword(h, "wrong"))
}
