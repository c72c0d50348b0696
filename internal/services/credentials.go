package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ruralpay/supplycredit/internal/config"
	"golang.org/x/crypto/argon2"
)

const saltLength = 16

// CredentialHasher hashes API key secrets with argon2id. Stored hashes have
// the form base64(salt)$base64(hash).
type CredentialHasher struct {
	params config.Argon2Config
}

func NewCredentialHasher(params config.Argon2Config) *CredentialHasher {
	return &CredentialHasher{params: params}
}

func (h *CredentialHasher) Hash(secret string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := h.derive(secret, salt)
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func (h *CredentialHasher) Verify(secret, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}

	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(secret), salt, h.params.Time, h.params.Memory, h.params.Threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, computed) == 1
}

func (h *CredentialHasher) derive(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLength)
}

// GenerateAPIKey returns a fresh "<id>.<secret>" key together with the
// hash to store for it.
func (h *CredentialHasher) GenerateAPIKey(id string) (key, hash string, err error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	secret := hex.EncodeToString(raw)
	hash, err = h.Hash(secret)
	if err != nil {
		return "", "", err
	}
	return id + "." + secret, hash, nil
}

// splitAPIKey separates "<id>.<secret>".
func splitAPIKey(raw string) (id, secret string, ok bool) {
	id, secret, found := strings.Cut(strings.TrimSpace(raw), ".")
	if !found || id == "" || secret == "" {
		return "", "", false
	}
	return id, secret, true
}
