package crypto

import (
	"crypto/sha256"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"

	"github.com/status-im/cardsdk-go/sdkerrors"
)

// BLS12-381 G2 wallets use the EIP-2333 key generation scheme instead of
// BIP32: hkdf_mod_r over the seed with the hashed keygen salt.
// https://eips.ethereum.org/EIPS/eip-2333#hkdf_mod_r-1

const blsKeyLength = 48

var blsCurveOrder, _ = new(big.Int).SetString(
	"52435875175126190479447740508185965837690552500527637822603658699938581184513", 10)

// BlsKeygenSalt is sha256("BLS-SIG-KEYGEN-SALT-"), per keygen version 4.
var blsKeygenSalt = Sha256([]byte("BLS-SIG-KEYGEN-SALT-"))

// GenerateBLSPrivateKey derives a 32-byte BLS12-381 secret key from input key
// material (the master seed for a master key).
func GenerateBLSPrivateKey(inputKeyMaterial []byte) ([]byte, error) {
	return blsKeyGen(inputKeyMaterial, blsKeygenSalt, nil)
}

func blsKeyGen(ikm, salt, keyInfo []byte) ([]byte, error) {
	// The zero-key case re-salts and retries; in practice this never loops.
	for attempt := 0; attempt < 255; attempt++ {
		ikmPadded := append(append([]byte{}, ikm...), 0x00)
		prk := hkdf.Extract(sha256.New, ikmPadded, salt)

		info := append(append([]byte{}, keyInfo...), 0x00, blsKeyLength)
		okm := make([]byte, blsKeyLength)
		if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, info), okm); err != nil {
			return nil, sdkerrors.Wrap(sdkerrors.CodeCryptoError, err)
		}

		sk := new(big.Int).SetBytes(okm)
		sk.Mod(sk, blsCurveOrder)
		if sk.Sign() != 0 {
			out := make([]byte, 32)
			sk.FillBytes(out)
			return out, nil
		}

		salt = Sha256(salt)
	}
	return nil, sdkerrors.NewWithMessage(sdkerrors.CodeCryptoError, "bls key generation did not converge")
}
