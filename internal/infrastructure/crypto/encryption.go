package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

// TokenCipher protects gateway payment tokens at rest. Tokens never leave the
// service in plaintext once stored.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(sealed string) (string, error)
}

// AESTokenCipher is an AES-256-GCM TokenCipher. The nonce is prepended to the
// ciphertext so a sealed token is a single opaque string.
type AESTokenCipher struct {
	key []byte
}

func NewAESTokenCipher(hexKey string) (*AESTokenCipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.New("invalid token encryption key format")
	}
	if len(key) != 32 {
		return nil, errors.New("token encryption key must be 32 bytes (64 hex chars)")
	}
	return &AESTokenCipher{key: key}, nil
}

func (c *AESTokenCipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *AESTokenCipher) Decrypt(sealedB64 string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(sealedB64)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(sealed) < gcm.NonceSize() {
		return "", errors.New("sealed token too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
