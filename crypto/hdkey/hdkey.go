package hdkey

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"math/big"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/status-im/cardsdk-go/crypto"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/types"
)

// ExtendedPrivateKey is a BIP32/SLIP-10 node: 32 bytes of key material plus
// the chain code.
type ExtendedPrivateKey struct {
	PrivateKey []byte
	ChainCode  []byte
}

// ExtendedPublicKey is the public counterpart, used to verify keys the card
// derives on its side.
type ExtendedPublicKey struct {
	PublicKey []byte
	ChainCode []byte
}

var curveHMACKeys = map[types.EllipticCurve]string{
	types.CurveSecp256k1:     "Bitcoin seed",
	types.CurveSecp256r1:     "Nist256p1 seed",
	types.CurveEd25519Slip10: "ed25519 seed",
}

// MakeMasterKey derives the BIP32/SLIP-10 master node from a seed for the
// given curve. BLS12-381 wallets use the EIP-2333 scheme instead, which has
// no chain code.
func MakeMasterKey(seed []byte, curve types.EllipticCurve) (*ExtendedPrivateKey, error) {
	if curve == types.CurveBls12381G2 {
		key, err := crypto.GenerateBLSPrivateKey(seed)
		if err != nil {
			return nil, err
		}
		return &ExtendedPrivateKey{PrivateKey: key, ChainCode: []byte{}}, nil
	}

	hmacKey, ok := curveHMACKeys[curve]
	if !ok {
		return nil, sdkerrors.New(sdkerrors.CodeUnsupportedCurve)
	}

	if len(seed) < 16 || len(seed) > 64 {
		return nil, sdkerrors.NewWithMessage(sdkerrors.CodeCryptoError, "seed must be between 128 and 512 bits")
	}

	data := seed
	for {
		mac := hmac.New(sha512.New, []byte(hmacKey))
		mac.Write(data)
		i := mac.Sum(nil)
		il, ir := i[:32], i[32:]

		// SLIP-10: an out-of-range key for weierstrass curves retries on
		// the whole HMAC output. Not applicable to ed25519.
		if curve == types.CurveEd25519Slip10 || privateKeyInRange(il, curve) {
			return &ExtendedPrivateKey{PrivateKey: il, ChainCode: ir}, nil
		}
		data = i
	}
}

// ExtendedPublic computes the public node for a private one.
func (k *ExtendedPrivateKey) ExtendedPublic(curve types.EllipticCurve) (*ExtendedPublicKey, error) {
	switch curve {
	case types.CurveSecp256k1:
		priv, err := ethcrypto.ToECDSA(k.PrivateKey)
		if err != nil {
			return nil, sdkerrors.Wrap(sdkerrors.CodeCryptoError, err)
		}
		return &ExtendedPublicKey{
			PublicKey: ethcrypto.CompressPubkey(&priv.PublicKey),
			ChainCode: k.ChainCode,
		}, nil
	case types.CurveEd25519, types.CurveEd25519Slip10:
		return &ExtendedPublicKey{
			PublicKey: ed25519.NewKeyFromSeed(k.PrivateKey).Public().(ed25519.PublicKey),
			ChainCode: k.ChainCode,
		}, nil
	default:
		return nil, sdkerrors.New(sdkerrors.CodeUnsupportedCurve)
	}
}

// DeriveChild derives a non-hardened secp256k1 child public key. Hardened
// indices cannot be derived from a public key and fail accordingly; the card
// performs hardened derivation internally.
func (k *ExtendedPublicKey) DeriveChild(index uint32) (*ExtendedPublicKey, error) {
	if index >= HardenedOffset {
		return nil, sdkerrors.NewWithMessage(sdkerrors.CodeCryptoError,
			"hardened derivation is not possible from a public key")
	}

	key := hdkeychain.NewExtendedKey(
		chaincfg.MainNetParams.HDPublicKeyID[:],
		k.PublicKey, k.ChainCode,
		[]byte{0x00, 0x00, 0x00, 0x00}, 0, 0, false)
	child, err := key.Derive(index)
	if err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.CodeCryptoError, err)
	}
	pub, err := child.ECPubKey()
	if err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.CodeCryptoError, err)
	}
	return &ExtendedPublicKey{
		PublicKey: pub.SerializeCompressed(),
		ChainCode: child.ChainCode(),
	}, nil
}

// DerivePath applies every node of path in sequence.
func (k *ExtendedPublicKey) DerivePath(path DerivationPath) (*ExtendedPublicKey, error) {
	current := k
	for _, node := range path.Nodes {
		next, err := current.DeriveChild(node)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func privateKeyInRange(key []byte, curve types.EllipticCurve) bool {
	k := new(big.Int).SetBytes(key)
	if k.Sign() == 0 {
		return false
	}
	switch curve {
	case types.CurveSecp256k1:
		return k.Cmp(ethcrypto.S256().Params().N) < 0
	case types.CurveSecp256r1:
		return k.Cmp(nistP256Order) < 0
	default:
		return true
	}
}

var nistP256Order, _ = new(big.Int).SetString(
	"ffffffff00000000ffffffffffffffffbce6faada7179e84f3b9cac2fc632551", 16)
