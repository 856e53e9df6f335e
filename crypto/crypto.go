// Package crypto provides the symmetric channel primitives and the per-curve
// asymmetric operations used by commands and attestation.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"

	"github.com/status-im/cardsdk-go/sdkerrors"
)

// KeyPair holds raw key material for an ephemeral protocol key pair.
type KeyPair struct {
	PrivateKey []byte
	PublicKey  []byte
}

// GenerateRandomBytes returns count cryptographically secure random bytes.
// Used for challenges and ephemeral session keys, never for wallet keys
// (those are generated on the card and never leave it).
func GenerateRandomBytes(count int) ([]byte, error) {
	buf := make([]byte, count)
	if _, err := rand.Read(buf); err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.CodeFailedToGenerateRandom, err)
	}
	return buf, nil
}

func Sha256(data []byte) []byte {
	digest := sha256.Sum256(data)
	return digest[:]
}

func Sha512(data []byte) []byte {
	digest := sha512.Sum512(data)
	return digest[:]
}
