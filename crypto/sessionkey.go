package crypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/text/unicode/norm"
)

const sessionKeyRounds = 50

// HashUserCode derives the stored form of a user-entered code: sha256 over
// the NFKD-normalized UTF-8 bytes. Normalizing first means the same
// passphrase typed on any platform hashes identically.
func HashUserCode(code string) []byte {
	return Sha256([]byte(norm.NFKD.String(code)))
}

// DeriveSessionKey computes the symmetric session key from the curve shared
// secret negotiated with the card, the hashed access code and the card's
// hardware identifier: sha256(secret ‖ pbkdf2-sha256(accessCodeHash, uid, 50)).
func DeriveSessionKey(sharedSecret, accessCodeHash, uid []byte) []byte {
	protocolKey := pbkdf2.Key(accessCodeHash, uid, sessionKeyRounds, 32, sha256.New)
	return Sha256(append(append([]byte{}, sharedSecret...), protocolKey...))
}
