// Package secrets seals NIN digits at rest and derives the keyed hash used to
// detect the same NIN being verified for two users.
package secrets

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	dErrors "vouch/pkg/domain-errors"
)

// Sealer encrypts with XChaCha20-Poly1305. Ciphertext layout is nonce || sealed.
type Sealer struct {
	aead    cipher.AEAD
	hashKey []byte
}

func New(encryptionKey, hashKey []byte) (*Sealer, error) {
	if len(encryptionKey) != chacha20poly1305.KeySize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("encryption key must be %d bytes", chacha20poly1305.KeySize))
	}
	if len(hashKey) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "hash key cannot be empty")
	}
	aead, err := chacha20poly1305.NewX(encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("could not initialise cipher: %w", err)
	}
	return &Sealer{aead: aead, hashKey: append([]byte(nil), hashKey...)}, nil
}

// Seal encrypts plaintext with a fresh random nonce.
func (s *Sealer) Seal(plaintext string) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("could not generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(sealed []byte) (string, error) {
	if len(sealed) < s.aead.NonceSize()+s.aead.Overhead() {
		return "", errors.New("ciphertext too short")
	}
	nonce, ct := sealed[:s.aead.NonceSize()], sealed[s.aead.NonceSize():]
	pt, err := s.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", fmt.Errorf("could not decrypt: %w", err)
	}
	return string(pt), nil
}

// Hash is a deterministic HMAC-SHA256 of value, hex encoded.
func (s *Sealer) Hash(value string) string {
	mac := hmac.New(sha256.New, s.hashKey)
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
