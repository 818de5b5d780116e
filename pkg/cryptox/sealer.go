package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/hkdf"
)

// MasterKeyEnv is consulted by LoadKeyMaterial when no key file is given.
const MasterKeyEnv = "NATIVEAUTH_MASTER_KEY"

// ErrCiphertextTooShort is returned by Open for input shorter than a nonce.
var ErrCiphertextTooShort = errors.New("cryptox: ciphertext too short")

// Sealer encrypts small values with AES-256-GCM under a key derived from
// caller supplied key material. Output layout: nonce || ciphertext || tag.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives a 32 byte key from material with HKDF-SHA256. info
// separates keys derived from the same material for different purposes.
func NewSealer(material []byte, info string) (*Sealer, error) {
	if len(material) == 0 {
		return nil, errors.New("cryptox: empty key material")
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, material, nil, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: gcm}, nil
}

// Seal encrypts plaintext with a fresh random nonce.
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal.
func (s *Sealer) Open(data []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(data) < n {
		return nil, ErrCiphertextTooShort
	}

	plaintext, err := s.aead.Open(nil, data[:n], data[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}

// LoadKeyMaterial reads key material from path, or from MasterKeyEnv when
// path is empty. It returns nil, nil when neither is set.
func LoadKeyMaterial(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read master key file: %w", err)
		}
		return data, nil
	}
	if v := os.Getenv(MasterKeyEnv); v != "" {
		return []byte(v), nil
	}
	return nil, nil
}
