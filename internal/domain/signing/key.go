// Package signing provides per-contest signing-key material and event
// signatures. Keys are deterministically derived from a master secret so
// every instance of the service derives identical material for the same
// contest and rotation window.
package signing

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

var ErrMasterKeyMissing = errors.New("signing master key is not configured")

// KeyData holds one contest signing key and its validity window
// [ValidFrom, ValidTo).
type KeyData struct {
	KeyID      string
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
	ValidFrom  time.Time
	ValidTo    time.Time
}

// ExpiredAt reports whether the key is no longer usable at the instant.
func (k *KeyData) ExpiredAt(at time.Time) bool {
	return !at.Before(k.ValidTo)
}

// Generator derives contest keys from a master secret.
type Generator struct {
	masterKey []byte
	validity  time.Duration
}

// NewGenerator creates a key generator. validity bounds each key's window.
func NewGenerator(masterKey []byte, validity time.Duration) (*Generator, error) {
	if len(masterKey) == 0 {
		return nil, ErrMasterKeyMissing
	}
	if validity <= 0 {
		validity = 24 * time.Hour
	}
	return &Generator{masterKey: masterKey, validity: validity}, nil
}

// Generate derives the signing key for a contest valid from the given
// instant. Derivation is keyed by contest id and window start, so re-deriving
// for the same window yields the same key pair.
func (g *Generator) Generate(contestID uuid.UUID, validFrom time.Time) (*KeyData, error) {
	validFrom = validFrom.UTC()
	info := []byte("contest-signing:" + contestID.String() + ":" + validFrom.Format(time.RFC3339))
	reader := hkdf.New(sha256.New, g.masterKey, nil, info)

	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(reader, seed); err != nil {
		return nil, err
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	sum := sha256.Sum256(pub)
	return &KeyData{
		KeyID:      hex.EncodeToString(sum[:8]),
		PrivateKey: priv,
		PublicKey:  pub,
		ValidFrom:  validFrom,
		ValidTo:    validFrom.Add(g.validity),
	}, nil
}
