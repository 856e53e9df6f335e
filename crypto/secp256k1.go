package crypto

import (
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/status-im/cardsdk-go/sdkerrors"
)

// GenerateSecp256k1KeyPair returns an ephemeral key pair with the public key
// in uncompressed form, as the card expects during channel negotiation.
func GenerateSecp256k1KeyPair() (KeyPair, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return KeyPair{}, sdkerrors.Wrap(sdkerrors.CodeCryptoError, err)
	}
	return KeyPair{
		PrivateKey: ethcrypto.FromECDSA(key),
		PublicKey:  ethcrypto.FromECDSAPub(&key.PublicKey),
	}, nil
}

// Secp256k1SharedSecret computes the ECDH x-coordinate between our private
// key and the card's public contribution (compressed or uncompressed).
func Secp256k1SharedSecret(privateKey, publicKey []byte) ([]byte, error) {
	priv, err := ethcrypto.ToECDSA(privateKey)
	if err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.CodeCryptoError, err)
	}
	pub, err := parseSecp256k1PublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	x, _ := ethcrypto.S256().ScalarMult(pub.X(), pub.Y(), priv.D.Bytes())

	secret := make([]byte, 32)
	x.FillBytes(secret)
	return secret, nil
}

// SignSecp256k1 signs sha256(message) and returns a canonical 64-byte r‖s
// signature with low S.
func SignSecp256k1(privateKey, message []byte) ([]byte, error) {
	priv, err := ethcrypto.ToECDSA(privateKey)
	if err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.CodeCryptoError, err)
	}
	sig, err := ethcrypto.Sign(Sha256(message), priv)
	if err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.CodeCryptoError, err)
	}
	// Drop the recovery id; ethcrypto already produces low-S signatures.
	return sig[:64], nil
}

// VerifySecp256k1 checks a 64-byte r‖s signature over sha256(message).
// The card may emit high-S signatures, so S is normalized before the check.
func VerifySecp256k1(publicKey, message, signature []byte) (bool, error) {
	if len(signature) != 64 {
		return false, sdkerrors.NewWithMessage(sdkerrors.CodeCryptoError, "secp256k1 signature must be 64 bytes")
	}
	pub, err := parseSecp256k1PublicKey(publicKey)
	if err != nil {
		return false, err
	}

	var r, s btcec.ModNScalar
	if overflow := r.SetByteSlice(signature[:32]); overflow {
		return false, nil
	}
	if overflow := s.SetByteSlice(NormalizeSecp256k1S(signature[32:])); overflow {
		return false, nil
	}
	return btcecdsa.NewSignature(&r, &s).Verify(Sha256(message), pub), nil
}

// NormalizeSecp256k1S maps a 32-byte S scalar into the canonical low half of
// the curve order.
func NormalizeSecp256k1S(s []byte) []byte {
	n := ethcrypto.S256().Params().N
	half := new(big.Int).Rsh(n, 1)

	v := new(big.Int).SetBytes(s)
	if v.Cmp(half) > 0 {
		v.Sub(n, v)
	}
	out := make([]byte, 32)
	v.FillBytes(out)
	return out
}

// RecoverSecp256k1PublicKey recovers the compressed signer public key from a
// 65-byte recoverable signature (r‖s‖v) over sha256(message).
func RecoverSecp256k1PublicKey(message, signature []byte) ([]byte, error) {
	pub, err := ethcrypto.SigToPub(Sha256(message), signature)
	if err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.CodeCryptoError, err)
	}
	return ethcrypto.CompressPubkey(pub), nil
}

// CompressSecp256k1PublicKey converts a public key to its 33-byte compressed
// form; already-compressed keys pass through after validation.
func CompressSecp256k1PublicKey(publicKey []byte) ([]byte, error) {
	pub, err := parseSecp256k1PublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	return pub.SerializeCompressed(), nil
}

// DecompressSecp256k1PublicKey converts a public key to its 65-byte
// uncompressed form.
func DecompressSecp256k1PublicKey(publicKey []byte) ([]byte, error) {
	pub, err := parseSecp256k1PublicKey(publicKey)
	if err != nil {
		return nil, err
	}
	return pub.SerializeUncompressed(), nil
}

func parseSecp256k1PublicKey(publicKey []byte) (*btcec.PublicKey, error) {
	pub, err := btcec.ParsePubKey(publicKey)
	if err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.CodeCryptoError, err)
	}
	return pub, nil
}
