package cardutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrCiphertextInvalid reports a blob that is malformed, truncated, or failed
// authentication. Callers treat it as possible tampering, never as empty data.
var ErrCiphertextInvalid = errors.New("ciphertext invalid or tampered")

// Cipher performs authenticated symmetric encryption of sensitive card fields.
// Each Encrypt call uses a fresh random nonce, so equal plaintexts never
// produce equal blobs.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher creates a Cipher from a 16-, 24-, or 32-byte AES key.
func NewCipher(key []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt encrypts data and returns a self-contained base64 blob:
// nonce || ciphertext || tag.
func (c *Cipher) Encrypt(data string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(data), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. It returns ErrCiphertextInvalid for malformed
// input and for authentication failures.
func (c *Cipher) Decrypt(blob string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertextInvalid, err)
	}
	if len(raw) < c.aead.NonceSize() {
		return "", fmt.Errorf("%w: blob too short", ErrCiphertextInvalid)
	}
	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertextInvalid, err)
	}
	return string(plaintext), nil
}

// MaskNumber produces the display form of a card number: all but the last
// four digits replaced by the fixed mask. It is one-way and needs no key.
func MaskNumber(raw string) string {
	if len(raw) < 4 {
		return "****"
	}
	return "**** **** **** " + raw[len(raw)-4:]
}
