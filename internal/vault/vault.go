// Package vault encrypts device passwords for storage and resolves the
// stored blobs back into credentials for the collectors.
package vault

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HerbHall/netwarden/pkg/models"
	"go.uber.org/zap"
)

// ErrNoKey is returned when encryption is requested without a configured key.
var ErrNoKey = errors.New("vault key not configured")

// Blob is the JSON document stored in a device's password_encrypted column.
type Blob struct {
	Encrypted   string `json:"encrypted"`
	IV          string `json:"iv,omitempty"`
	AuthTag     string `json:"authTag,omitempty"`
	IsEncrypted bool   `json:"isEncrypted"`
}

// Vault holds the AES-256 key in memory. A Vault without a key still
// resolves plaintext blobs.
type Vault struct {
	key    []byte
	logger *zap.Logger
}

// New creates a Vault from the configured key. An empty key is allowed.
func New(configuredKey string, logger *zap.Logger) (*Vault, error) {
	v := &Vault{logger: logger}
	if configuredKey == "" {
		logger.Warn("vault key not configured, only plaintext credentials can be resolved")
		return v, nil
	}
	key, err := ParseKey(configuredKey)
	if err != nil {
		return nil, err
	}
	v.key = key
	return v, nil
}

// HasKey reports whether encrypted blobs can be produced and read.
func (v *Vault) HasKey() bool {
	return len(v.key) > 0
}

// EncryptPassword returns the JSON blob to store for a plaintext password.
func (v *Vault) EncryptPassword(plain string) (string, error) {
	if !v.HasKey() {
		return "", ErrNoKey
	}
	ciphertext, iv, tag, err := encrypt(v.key, []byte(plain))
	if err != nil {
		return "", fmt.Errorf("encrypt password: %w", err)
	}
	data, err := json.Marshal(Blob{
		Encrypted:   hex.EncodeToString(ciphertext),
		IV:          hex.EncodeToString(iv),
		AuthTag:     hex.EncodeToString(tag),
		IsEncrypted: true,
	})
	if err != nil {
		return "", fmt.Errorf("marshal blob: %w", err)
	}
	return string(data), nil
}

// DecryptPassword decodes a stored blob. Plaintext forms (a bare JSON string
// or a blob with isEncrypted false) are returned unchanged.
func (v *Vault) DecryptPassword(stored string) (string, error) {
	var plain string
	if err := json.Unmarshal([]byte(stored), &plain); err == nil {
		return plain, nil
	}

	var blob Blob
	if err := json.Unmarshal([]byte(stored), &blob); err != nil {
		return "", fmt.Errorf("parse blob: %w", err)
	}
	if !blob.IsEncrypted {
		return blob.Encrypted, nil
	}
	if !v.HasKey() {
		return "", ErrNoKey
	}

	ciphertext, err := hex.DecodeString(blob.Encrypted)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	iv, err := hex.DecodeString(blob.IV)
	if err != nil {
		return "", fmt.Errorf("decode iv: %w", err)
	}
	tag, err := hex.DecodeString(blob.AuthTag)
	if err != nil {
		return "", fmt.Errorf("decode auth tag: %w", err)
	}

	out, err := decrypt(v.key, ciphertext, iv, tag)
	if err != nil {
		return "", err
	}
	defer ZeroBytes(out)
	return string(out), nil
}

// ResolveCredentials returns the device's credentials and whether both a
// username and a password are available. Decode and decrypt failures are
// logged and reported as absent credentials.
func (v *Vault) ResolveCredentials(d *models.Device) (models.Credentials, bool) {
	if d == nil || !d.HasStoredCredentials() {
		return models.Credentials{}, false
	}

	password, err := v.DecryptPassword(d.PasswordEncrypted)
	if err != nil {
		v.logger.Warn("credential decryption failed, treating device as ping-only",
			zap.String("device_id", d.ID),
			zap.String("device_name", d.Name),
			zap.Error(err),
		)
		return models.Credentials{}, false
	}

	creds := models.Credentials{Username: d.Username, Password: password}
	return creds, creds.Complete()
}
