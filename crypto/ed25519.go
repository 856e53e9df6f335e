package crypto

import (
	"crypto/ed25519"

	"github.com/status-im/cardsdk-go/sdkerrors"
)

// Ed25519 wallets sign the sha512 digest of the message, not the message
// itself; the card firmware pre-hashes the same way.

func SignEd25519(seed, message []byte) ([]byte, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, sdkerrors.NewWithMessage(sdkerrors.CodeCryptoError, "ed25519 seed must be 32 bytes")
	}
	return ed25519.Sign(ed25519.NewKeyFromSeed(seed), Sha512(message)), nil
}

func VerifyEd25519(publicKey, message, signature []byte) (bool, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return false, sdkerrors.NewWithMessage(sdkerrors.CodeCryptoError, "ed25519 public key must be 32 bytes")
	}
	if len(signature) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), Sha512(message), signature), nil
}
