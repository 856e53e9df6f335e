package crypto

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"math/big"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/status-im/cardsdk-go/sdkerrors"
)

// negateScalar returns N - s on the secp256k1 group order.
func negateScalar(s []byte) []byte {
	n := ethcrypto.S256().Params().N
	v := new(big.Int).Sub(n, new(big.Int).SetBytes(s))
	out := make([]byte, 32)
	v.FillBytes(out)
	return out
}

func ed25519PublicFromSeed(t *testing.T, seed []byte) []byte {
	t.Helper()
	return ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
}

func TestECDH(t *testing.T) {
	host, err := GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	card, err := GenerateSecp256k1KeyPair()
	require.NoError(t, err)

	secretA, err := Secp256k1SharedSecret(host.PrivateKey, card.PublicKey)
	require.NoError(t, err)
	secretB, err := Secp256k1SharedSecret(card.PrivateKey, host.PublicKey)
	require.NoError(t, err)

	assert.Equal(t, secretA, secretB)
	assert.Len(t, secretA, 32)
}

func TestECDHWithCompressedKey(t *testing.T) {
	host, err := GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	card, err := GenerateSecp256k1KeyPair()
	require.NoError(t, err)

	compressed, err := CompressSecp256k1PublicKey(card.PublicKey)
	require.NoError(t, err)

	full, err := Secp256k1SharedSecret(host.PrivateKey, card.PublicKey)
	require.NoError(t, err)
	short, err := Secp256k1SharedSecret(host.PrivateKey, compressed)
	require.NoError(t, err)
	assert.Equal(t, full, short)
}

func TestSignVerifySecp256k1(t *testing.T) {
	pair, err := GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	message := []byte("attest this")

	signature, err := SignSecp256k1(pair.PrivateKey, message)
	require.NoError(t, err)
	require.Len(t, signature, 64)

	ok, err := VerifySecp256k1(pair.PublicKey, message, signature)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifySecp256k1(pair.PublicKey, []byte("another message"), signature)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyAcceptsHighS(t *testing.T) {
	// cards may emit high-S signatures; verification normalizes first
	pair, err := GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	message := []byte("high-s tolerance")

	signature, err := SignSecp256k1(pair.PrivateKey, message)
	require.NoError(t, err)

	// flip S into the high half: s' = N - s
	highS := append([]byte{}, signature...)
	copy(highS[32:], negateScalar(signature[32:]))

	ok, err := VerifySecp256k1(pair.PublicKey, message, highS)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNormalizeSIdempotent(t *testing.T) {
	pair, err := GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	signature, err := SignSecp256k1(pair.PrivateKey, []byte("msg"))
	require.NoError(t, err)

	s := signature[32:]
	assert.Equal(t, s, NormalizeSecp256k1S(s))
	assert.Equal(t, s, NormalizeSecp256k1S(negateScalar(s)))
}

func TestRecoverSecp256k1PublicKey(t *testing.T) {
	pair, err := GenerateSecp256k1KeyPair()
	require.NoError(t, err)
	message := []byte("recover me")

	priv, err := ethcrypto.ToECDSA(pair.PrivateKey)
	require.NoError(t, err)
	signature, err := ethcrypto.Sign(Sha256(message), priv)
	require.NoError(t, err)
	require.Len(t, signature, 65)

	recovered, err := RecoverSecp256k1PublicKey(message, signature)
	require.NoError(t, err)
	compressed, err := CompressSecp256k1PublicKey(pair.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, compressed, recovered)
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	pair, err := GenerateSecp256k1KeyPair()
	require.NoError(t, err)

	compressed, err := CompressSecp256k1PublicKey(pair.PublicKey)
	require.NoError(t, err)
	require.Len(t, compressed, 33)

	decompressed, err := DecompressSecp256k1PublicKey(compressed)
	require.NoError(t, err)
	assert.Equal(t, pair.PublicKey, decompressed)
}

func TestSignVerifyEd25519(t *testing.T) {
	seed := bytes.Repeat([]byte{0x11}, 32)
	message := []byte("ed25519 message")

	signature, err := SignEd25519(seed, message)
	require.NoError(t, err)

	pub := ed25519PublicFromSeed(t, seed)
	ok, err := VerifyEd25519(pub, message, signature)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyEd25519(pub, []byte("tampered"), signature)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAESRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x24}, 32)
	plaintext := []byte("short")

	ciphertext, err := EncryptAES(key, plaintext)
	require.NoError(t, err)
	assert.Zero(t, len(ciphertext)%16)

	decrypted, err := DecryptAES(key, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestAESDeterministic(t *testing.T) {
	key := bytes.Repeat([]byte{0x24}, 32)
	data := []byte("resend me unchanged")

	first, err := EncryptAES(key, data)
	require.NoError(t, err)
	second, err := EncryptAES(key, data)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAESBadCiphertext(t *testing.T) {
	key := bytes.Repeat([]byte{0x24}, 32)

	_, err := DecryptAES(key, []byte{0x01, 0x02})
	assert.True(t, sdkerrors.HasCode(err, sdkerrors.CodeInvalidResponseAPDU))

	wrongKey := bytes.Repeat([]byte{0x25}, 32)
	ciphertext, err := EncryptAES(key, []byte("payload data here"))
	require.NoError(t, err)
	_, err = DecryptAES(wrongKey, ciphertext)
	assert.Error(t, err)
}

func TestCrc16(t *testing.T) {
	// CRC-16/CCITT with zero init over the classic check string
	assert.Equal(t, uint16(0x31C3), Crc16([]byte("123456789")))
	assert.Equal(t, uint16(0x0000), Crc16(nil))
}

func TestHashUserCode(t *testing.T) {
	expected, _ := hex.DecodeString("91b4d142823f7d20c5f08df69122de43f35f057a988d9619f6d3138485c9a203")
	assert.Equal(t, expected, HashUserCode("000000"))

	// NFKD: the precomposed and decomposed forms hash identically
	assert.Equal(t, HashUserCode("caf\u00e9"), HashUserCode("cafe\u0301"))
}

func TestDeriveSessionKey(t *testing.T) {
	secret := bytes.Repeat([]byte{0x01}, 32)
	accessCode := HashUserCode("000000")
	uid := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	key := DeriveSessionKey(secret, accessCode, uid)
	require.Len(t, key, 32)

	// stable for the same inputs, different for a different uid
	assert.Equal(t, key, DeriveSessionKey(secret, accessCode, uid))
	assert.NotEqual(t, key, DeriveSessionKey(secret, accessCode, []byte{0x00}))
}

func TestGenerateRandomBytes(t *testing.T) {
	a, err := GenerateRandomBytes(16)
	require.NoError(t, err)
	b, err := GenerateRandomBytes(16)
	require.NoError(t, err)
	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}

func TestGenerateBLSPrivateKey(t *testing.T) {
	seed := bytes.Repeat([]byte{0x33}, 32)

	key, err := GenerateBLSPrivateKey(seed)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	// deterministic in the seed
	again, err := GenerateBLSPrivateKey(seed)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	other, err := GenerateBLSPrivateKey(bytes.Repeat([]byte{0x34}, 32))
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}
