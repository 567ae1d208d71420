package secrets

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vouch/pkg/domain-errors"
)

var testKey = bytes.Repeat([]byte("k"), 32)

func TestSealer(t *testing.T) {
	s, err := New(testKey, []byte("hash-key"))
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		sealed, err := s.Seal("12345678901")
		require.NoError(t, err)
		assert.NotContains(t, string(sealed), "12345678901")

		plain, err := s.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, "12345678901", plain)
	})

	t.Run("nonce differs per seal", func(t *testing.T) {
		a, _ := s.Seal("12345678901")
		b, _ := s.Seal("12345678901")
		assert.NotEqual(t, a, b)
	})

	t.Run("tampered ciphertext rejected", func(t *testing.T) {
		sealed, _ := s.Seal("12345678901")
		sealed[len(sealed)-1] ^= 0xff
		_, err := s.Open(sealed)
		assert.Error(t, err)
	})

	t.Run("hash is deterministic and keyed", func(t *testing.T) {
		assert.Equal(t, s.Hash("12345678901"), s.Hash("12345678901"))
		other, _ := New(testKey, []byte("other"))
		assert.NotEqual(t, s.Hash("12345678901"), other.Hash("12345678901"))
	})
}

func TestNewRejectsBadKeys(t *testing.T) {
	_, err := New([]byte("short"), []byte("h"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = New(testKey, nil)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
