package apdu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/status-im/cardsdk-go/crypto"
	"github.com/status-im/cardsdk-go/sdkerrors"
)

func TestCommandSerialize(t *testing.T) {
	cmd := NewCommand(InsRead, []byte{0x10, 0x02, 0xAA, 0xBB})
	frame := cmd.Serialize()

	assert.Equal(t, []byte{0xF2, 0x00, 0x04, 0x10, 0x02, 0xAA, 0xBB}, frame)
}

func TestCommandSerializeEmptyPayload(t *testing.T) {
	frame := NewCommand(InsOpenSession, nil).Serialize()
	assert.Equal(t, []byte{0xFF, 0x00, 0x00}, frame)
}

func TestParseResponse(t *testing.T) {
	resp, err := ParseResponse([]byte{0x01, 0x02, 0x03, 0x90, 0x00})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, resp.Data)
	assert.Equal(t, SwProcessCompleted, resp.Sw())
}

func TestParseResponseTooShort(t *testing.T) {
	_, err := ParseResponse([]byte{0x90})
	assert.True(t, sdkerrors.HasCode(err, sdkerrors.CodeInvalidResponseAPDU))
}

func TestStatusWordMapping(t *testing.T) {
	cases := map[StatusWord]sdkerrors.Code{
		SwErrorProcessing:  sdkerrors.CodeErrorProcessingCommand,
		SwInvalidParams:    sdkerrors.CodeInvalidParams,
		SwNeedEncryption:   sdkerrors.CodeNeedEncryption,
		SwInvalidState:     sdkerrors.CodeInvalidState,
		SwInsNotSupported:  sdkerrors.CodeInsNotSupported,
		SwFileNotFound:     sdkerrors.CodeFileNotFound,
		SwWalletNotFound:   sdkerrors.CodeWalletNotFound,
		StatusWord(0x1234): sdkerrors.CodeUnknownStatus,
	}
	for sw, code := range cases {
		assert.True(t, sdkerrors.HasCode(sw.ToError(), code), "status %04x", uint16(sw))
	}

	assert.NoError(t, SwProcessCompleted.ToError())
	assert.True(t, SwPins12Changed.IsSuccess())
	assert.True(t, SwPins12Changed.IsPinsChanged())
	assert.False(t, SwInvalidParams.IsSuccess())
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	cmd := NewCommand(InsSign, []byte{0x50, 0x03, 0x01, 0x02, 0x03})

	encrypted, err := cmd.Encrypt(key)
	require.NoError(t, err)
	assert.Equal(t, InsSign, encrypted.Ins)
	assert.NotEqual(t, cmd.Data, encrypted.Data)
	// AES blocks
	assert.Zero(t, len(encrypted.Data)%16)

	resp := &Response{Data: encrypted.Data, SW1: 0x90, SW2: 0x00}
	decrypted, err := resp.Decrypt(key)
	require.NoError(t, err)
	assert.Equal(t, cmd.Data, decrypted.Data)
	assert.Equal(t, SwProcessCompleted, decrypted.Sw())
}

func TestEncryptIsDeterministic(t *testing.T) {
	// A security-delay resend must be byte-identical to the original frame.
	key := bytes.Repeat([]byte{0x42}, 32)
	cmd := NewCommand(InsSign, []byte{0x50, 0x03, 0x01, 0x02, 0x03})

	first, err := cmd.Encrypt(key)
	require.NoError(t, err)
	second, err := cmd.Encrypt(key)
	require.NoError(t, err)
	assert.Equal(t, first.Serialize(), second.Serialize())
	assert.True(t, first.Equal(second))
}

func TestDecryptWrongKey(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	wrongKey := bytes.Repeat([]byte{0x43}, 32)
	cmd := NewCommand(InsSign, bytes.Repeat([]byte{0x07}, 48))

	encrypted, err := cmd.Encrypt(key)
	require.NoError(t, err)

	resp := &Response{Data: encrypted.Data, SW1: 0x90, SW2: 0x00}
	_, err = resp.Decrypt(wrongKey)
	require.Error(t, err)
	// wrong key surfaces as bad padding, a garbage length or a checksum
	// mismatch, never as a silently wrong payload
	code := sdkerrors.FromError(err).Code
	assert.Contains(t, []sdkerrors.Code{
		sdkerrors.CodeFailedToDecryptAPDU,
		sdkerrors.CodeInvalidResponseAPDU,
	}, code)
}

func TestDecryptMalformedCiphertext(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	// not a block multiple: malformed frame, not a key problem
	resp := &Response{Data: []byte{0x01, 0x02, 0x03}, SW1: 0x90, SW2: 0x00}
	_, err := resp.Decrypt(key)
	assert.True(t, sdkerrors.HasCode(err, sdkerrors.CodeInvalidResponseAPDU))
}

func TestDecryptChecksumDetectsTampering(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	payload := []byte{0x10, 0x02, 0xAA, 0xBB}

	// build a packet with a wrong crc by hand
	packet := make([]byte, 4, 4+len(payload))
	packet[0], packet[1] = 0x00, byte(len(payload))
	checksum := crypto.Crc16(payload) ^ 0xFFFF
	packet[2], packet[3] = byte(checksum>>8), byte(checksum)
	packet = append(packet, payload...)

	ciphertext, err := crypto.EncryptAES(key, packet)
	require.NoError(t, err)
	resp := &Response{Data: ciphertext, SW1: 0x90, SW2: 0x00}
	_, err = resp.Decrypt(key)
	assert.True(t, sdkerrors.HasCode(err, sdkerrors.CodeFailedToDecryptAPDU))
}
