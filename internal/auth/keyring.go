package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidKey is returned when an API key is malformed, unknown, or
	// fails the secret check.
	ErrInvalidKey = errors.New("auth: invalid api key")
)

// Key is an issued credential. The secret is never stored; only its bcrypt
// hash survives issuance.
type Key struct {
	ID         string
	Identity   string
	SecretHash []byte
	CreatedAt  time.Time
}

// Store persists issued keys.
type Store interface {
	Put(ctx context.Context, key Key) error
	Get(ctx context.Context, keyID string) (Key, error)
}

// Keyring issues and verifies API keys of the form "keyID.secret". The
// secret half is random, shown exactly once at issuance, and compared
// against a bcrypt hash on every request.
type Keyring struct {
	store Store
}

func NewKeyring(store Store) *Keyring {
	return &Keyring{store: store}
}

// Issue mints a key bound to the given identity and returns the plaintext
// credential. The plaintext cannot be recovered afterwards.
func (k *Keyring) Issue(ctx context.Context, identity string) (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	secret := hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	key := Key{
		ID:         uuid.NewString(),
		Identity:   identity,
		SecretHash: hash,
		CreatedAt:  time.Now().UTC(),
	}
	if err := k.store.Put(ctx, key); err != nil {
		return "", err
	}
	return key.ID + "." + secret, nil
}

// Verify checks a presented credential and returns the identity it was
// issued to.
func (k *Keyring) Verify(ctx context.Context, credential string) (string, error) {
	keyID, secret, ok := strings.Cut(credential, ".")
	if !ok || keyID == "" || secret == "" {
		return "", ErrInvalidKey
	}

	key, err := k.store.Get(ctx, keyID)
	if err != nil {
		return "", ErrInvalidKey
	}
	if err := bcrypt.CompareHashAndPassword(key.SecretHash, []byte(secret)); err != nil {
		return "", ErrInvalidKey
	}
	return key.Identity, nil
}
