package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// Sizes used by the secret envelope. The IV is 16 bytes rather than the usual
// 12 byte GCM nonce because existing rows were written that way.
const (
	KeySize = 32
	IVSize  = 16
	TagSize = 16
)

const (
	envelopeSeparator = ":"
	hkdfSalt          = "bartab-mfa-secret-cipher"
	hkdfInfo          = "totp-secret-encryption"
)

var (
	// ErrCrypto is returned when an envelope cannot be parsed or fails
	// authentication. Callers should treat it as corruption or tampering.
	ErrCrypto = errors.New("cryptox: invalid or tampered envelope")

	ErrInvalidKey = errors.New("cryptox: invalid encryption key")
)

// SecretCipher encrypts short secrets (TOTP seeds) with AES-256-GCM and
// serialises them as "iv:tag:ciphertext" in lowercase hex.
type SecretCipher struct {
	aead cipher.AEAD
}

// NewSecretCipher builds a cipher from a raw 32-byte key.
func NewSecretCipher(key []byte) (*SecretCipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &SecretCipher{aead: gcm}, nil
}

// Encrypt seals plaintext under a fresh random IV.
func (c *SecretCipher) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	// Seal returns ciphertext with the tag appended
	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	return strings.Join([]string{
		hex.EncodeToString(iv),
		hex.EncodeToString(tag),
		hex.EncodeToString(ciphertext),
	}, envelopeSeparator), nil
}

// Decrypt opens an envelope produced by Encrypt. Any parse or authentication
// failure is reported as ErrCrypto.
func (c *SecretCipher) Decrypt(envelope string) (string, error) {
	parts := strings.Split(envelope, envelopeSeparator)
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: expected 3 fields, got %d", ErrCrypto, len(parts))
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != IVSize {
		return "", fmt.Errorf("%w: bad iv", ErrCrypto)
	}

	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != TagSize {
		return "", fmt.Errorf("%w: bad tag", ErrCrypto)
	}

	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext", ErrCrypto)
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := c.aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	return string(plaintext), nil
}

// ParseHexKey decodes a 64 character hex string into a 32-byte key.
func ParseHexKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if len(s) != KeySize*2 {
		return nil, fmt.Errorf("%w: expected %d hex characters, got %d", ErrInvalidKey, KeySize*2, len(s))
	}

	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// DeriveKey stretches arbitrary key material into a 32-byte key with
// HKDF-SHA256.
func DeriveKey(material []byte) ([]byte, error) {
	if len(material) == 0 {
		return nil, fmt.Errorf("%w: empty key material", ErrInvalidKey)
	}

	reader := hkdf.New(sha256.New, material, []byte(hkdfSalt), []byte(hkdfInfo))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// LoadKeyFile reads a key from disk. A file holding exactly 64 hex characters
// is used as-is, anything else goes through DeriveKey.
func LoadKeyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read master key file: %w", err)
	}

	if key, err := ParseHexKey(string(data)); err == nil {
		return key, nil
	}

	return DeriveKey(data)
}
