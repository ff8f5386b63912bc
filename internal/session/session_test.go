package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email: "pat@example.com",
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestFromTokenReadsClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	sess, err := FromToken("Bearer " + signedToken(t, exp))
	require.NoError(t, err)

	assert.Equal(t, "user-123", sess.Subject)
	assert.Equal(t, "pat@example.com", sess.Label())
	assert.True(t, sess.ExpiresAt.Equal(exp))
	assert.False(t, sess.Expired(time.Now()))
	assert.True(t, sess.Expired(exp.Add(time.Minute)))
}

func TestFromTokenOpaque(t *testing.T) {
	sess, err := FromToken("not-a-jwt")
	require.NoError(t, err)
	assert.Equal(t, "not-a-jwt", sess.BearerToken())
	assert.Equal(t, "signed in", sess.Label())
	assert.False(t, sess.Expired(time.Now()))
}

func TestFromTokenEmpty(t *testing.T) {
	_, err := FromToken("  ")
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestNilSession(t *testing.T) {
	var sess *Session
	assert.Equal(t, "", sess.BearerToken())
	assert.Equal(t, "signed out", sess.Label())
}

func TestStoreRoundTrip(t *testing.T) {
	st, err := Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	got, err := st.Load()
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, st.Save(&Session{Token: "abc", Email: "a@b.c"}))
	got, err = st.Load()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "abc", got.Token)

	require.NoError(t, st.Clear())
	got, err = st.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLedger(t *testing.T) {
	st, err := Open(t.TempDir())
	require.NoError(t, err)
	defer st.Close()

	_, seen, err := st.Submitted("abc")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, st.MarkSubmitted("abc", "12"))
	id, seen, err := st.Submitted("abc")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, "12", id.String())
}
