package wif

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/status-im/cardsdk-go/sdkerrors"
)

// the classic example key from the WIF documentation
const exampleKeyHex = "0c28fca386c7a227600b2fe50b7cae11ec86d3bf1fbe471be89827e19d72aa1d"

func exampleKey(t *testing.T) []byte {
	t.Helper()
	key, err := hex.DecodeString(exampleKeyHex)
	require.NoError(t, err)
	return key
}

func TestEncodeCompressed(t *testing.T) {
	encoded := EncodeCompressed(exampleKey(t), Mainnet)
	assert.Equal(t, "KwdMAjGmerYanjeui5SHS7JkmpZvVipYvB2LJGU1ZxJwYvP98617", encoded)
}

func TestDecodeCompressed(t *testing.T) {
	key, err := Decode("KwdMAjGmerYanjeui5SHS7JkmpZvVipYvB2LJGU1ZxJwYvP98617")
	require.NoError(t, err)
	assert.Equal(t, exampleKey(t), key)
}

func TestDecodeUncompressed(t *testing.T) {
	key, err := Decode("5HueCGU8rMjxEXxiPuD5BDku4MkFqeZyd4dZ1jvhTVqvbTLvyTJ")
	require.NoError(t, err)
	assert.Equal(t, exampleKey(t), key)
}

func TestEncodeDecodeTestnet(t *testing.T) {
	key, err := Decode(EncodeCompressed(exampleKey(t), Testnet))
	require.NoError(t, err)
	assert.Equal(t, exampleKey(t), key)
}

func TestDecodeBadChecksum(t *testing.T) {
	// last character flipped
	_, err := Decode("KwdMAjGmerYanjeui5SHS7JkmpZvVipYvB2LJGU1ZxJwYvP98618")
	assert.True(t, sdkerrors.HasCode(err, sdkerrors.CodeDecodingFailed))
}

func TestDecodeUnknownPrefix(t *testing.T) {
	_, err := Decode(CheckEncode(append(exampleKey(t), compressedSuffix), 0x42))
	assert.True(t, sdkerrors.HasCode(err, sdkerrors.CodeDecodingFailed))
}

func TestCheckEncodeRoundTrip(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	decoded, version, err := CheckDecode(CheckEncode(payload, 0x00))
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
	assert.Equal(t, byte(0x00), version)
}
