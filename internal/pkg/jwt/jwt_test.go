package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := New("secret", time.Hour)

	token, expires, err := svc.GenerateToken(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.AccountID)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestValidate_Rejects(t *testing.T) {
	svc := New("secret", time.Hour)
	token, _, err := svc.GenerateToken(1)
	require.NoError(t, err)

	_, err = New("other", time.Hour).ValidateToken(token)
	assert.Error(t, err)

	expired := New("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.GenerateToken(1)
	require.NoError(t, err)
	_, err = svc.ValidateToken(old)
	assert.Error(t, err)

	none := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, Claims{AccountID: 1})
	unsigned, err := none.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ValidateToken(unsigned)
	assert.Error(t, err)

	_, err = svc.ValidateToken("garbage")
	assert.Error(t, err)
}
