package util

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/aead/chacha20poly1305"
)

// GenerateBase64Key generates a secure random key and returns it base64
// URL-encoded. PASETO v2 local encrypts with XChaCha20-Poly1305, so the
// key must match that cipher's key size.
func GenerateBase64Key(size int) (string, error) {
	if size != chacha20poly1305.KeySize {
		return "", fmt.Errorf("PASETO v2 local requires a %d-byte key", chacha20poly1305.KeySize)
	}

	key := make([]byte, size)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate random key: %w", err)
	}

	return base64.URLEncoding.EncodeToString(key), nil
}
