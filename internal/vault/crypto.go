package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for passphrase key derivation.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024 // 64 MB
	argonThreads = 4
	argonKeyLen  = 32 // AES-256
	saltLen      = 16
	ivLen        = 16 // stored blobs carry a 16-byte IV, not the 12-byte GCM default
	tagLen       = 16
)

// passphraseSalt is fixed so the same passphrase always yields the key that
// encrypted the stored blobs.
var passphraseSalt = func() []byte {
	sum := sha256.Sum256([]byte("netwarden-vault"))
	return sum[:saltLen]
}()

// DeriveKEK derives a 32-byte key from a passphrase and salt using Argon2id.
func DeriveKEK(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// ParseKey turns the configured vault.key into an AES-256 key. A 64-char
// hex string is used as-is; anything else is treated as a passphrase.
func ParseKey(configured string) ([]byte, error) {
	if configured == "" {
		return nil, ErrNoKey
	}
	if len(configured) == 2*argonKeyLen {
		if raw, err := hex.DecodeString(configured); err == nil {
			return raw, nil
		}
	}
	return DeriveKEK(configured, passphraseSalt), nil
}

// GenerateKey returns a random AES-256 key encoded as hex.
func GenerateKey() (string, error) {
	key := make([]byte, argonKeyLen)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

// ZeroBytes overwrites a byte slice with zeros.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivLen)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

// encrypt performs AES-256-GCM encryption and returns the ciphertext, IV
// and auth tag as separate slices.
func encrypt(key, plaintext []byte) (ciphertext, iv, tag []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, nil, err
	}

	iv = make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, nil, fmt.Errorf("generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - tagLen
	return sealed[:split], iv, sealed[split:], nil
}

// decrypt reverses encrypt.
func decrypt(key, ciphertext, iv, tag []byte) ([]byte, error) {
	if len(iv) != ivLen {
		return nil, fmt.Errorf("iv length %d, want %d", len(iv), ivLen)
	}
	if len(tag) != tagLen {
		return nil, errors.New("auth tag has wrong length")
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
