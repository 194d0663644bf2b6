package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"

	"formarter/compliance/pkg/config"
)

var (
	// ErrMissingKey is returned when a request carries no API key.
	ErrMissingKey = errors.New("missing API key")

	// ErrInvalidKey is returned for unknown or disabled keys.
	ErrInvalidKey = errors.New("invalid API key")
)

// Principal identifies the caller behind an accepted key.
type Principal struct {
	// KeyName is the configured name of the key, never the key itself.
	KeyName string
}

type digestKey struct {
	name   string
	digest [sha256.Size]byte
}

// KeySet validates API keys. It is immutable and safe for concurrent use.
type KeySet struct {
	keys []digestKey
}

// NewKeySet builds a key set from configuration, skipping disabled and
// empty keys.
func NewKeySet(keys []config.APIKey) *KeySet {
	ks := &KeySet{}
	for _, k := range keys {
		if k.Disabled || k.Key == "" {
			continue
		}
		ks.keys = append(ks.keys, digestKey{name: k.Name, digest: sha256.Sum256([]byte(k.Key))})
	}
	return ks
}

// Len returns the number of enabled keys.
func (ks *KeySet) Len() int {
	return len(ks.keys)
}

// Validate returns the principal for key. Every configured key is compared
// so the time taken does not depend on which key matched.
func (ks *KeySet) Validate(key string) (*Principal, error) {
	if key == "" {
		return nil, ErrMissingKey
	}
	digest := sha256.Sum256([]byte(key))

	var match *Principal
	for _, k := range ks.keys {
		if subtle.ConstantTimeCompare(digest[:], k.digest[:]) == 1 && match == nil {
			match = &Principal{KeyName: k.name}
		}
	}
	if match == nil {
		return nil, ErrInvalidKey
	}
	return match, nil
}
