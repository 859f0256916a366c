package hasher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestLegacySHA256IsDeterministic(t *testing.T) {
	h := LegacySHA256{}
	for _, p := range []string{"", "password", "hunter22", "päss wörd"} {
		first, err := h.Hash(p)
		require.NoError(t, err)
		second, err := h.Hash(p)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Len(t, first, 64)
	}
}

func TestLegacySHA256MatchesStoredDigests(t *testing.T) {
	h := LegacySHA256{}
	assert.Equal(t, "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8", h.Sum("password"))
	assert.True(t, h.Verify("password", "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"))
	assert.False(t, h.Verify("Password", "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"))
}

func TestBcryptHasher(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	digest, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.True(t, isBcrypt(digest))
	assert.True(t, h.Verify("secret123", digest))
	assert.False(t, h.Verify("secret124", digest))

	// Records written before the switch still verify.
	legacy := LegacySHA256{}.Sum("secret123")
	assert.True(t, h.Verify("secret123", legacy))
	assert.False(t, h.Verify("nope", legacy))
}

func TestNew(t *testing.T) {
	h, err := New("")
	require.NoError(t, err)
	assert.IsType(t, LegacySHA256{}, h)

	h, err = New("BCRYPT")
	require.NoError(t, err)
	assert.IsType(t, BcryptHasher{}, h)

	_, err = New("md5")
	assert.Error(t, err)
}
