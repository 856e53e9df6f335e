// Package wif provides Base58Check and Wallet Import Format encodings for
// exported keys. These are pure value codecs with no session dependency.
package wif

import (
	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/status-im/cardsdk-go/sdkerrors"
)

type NetworkType int

const (
	Mainnet NetworkType = iota
	Testnet
)

const compressedSuffix = 0x01

func (n NetworkType) prefix() byte {
	if n == Testnet {
		return 0xEF
	}
	return 0x80
}

// EncodeCompressed encodes a 32-byte private key as compressed WIF.
func EncodeCompressed(privateKey []byte, network NetworkType) string {
	payload := append(append([]byte{}, privateKey...), compressedSuffix)
	return base58.CheckEncode(payload, network.prefix())
}

// Decode extracts the raw private key from a WIF string, compressed or not.
func Decode(encoded string) ([]byte, error) {
	payload, version, err := base58.CheckDecode(encoded)
	if err != nil {
		return nil, sdkerrors.NewWithMessage(sdkerrors.CodeDecodingFailed, "invalid wif string")
	}
	if version != Mainnet.prefix() && version != Testnet.prefix() {
		return nil, sdkerrors.NewWithMessage(sdkerrors.CodeDecodingFailed, "unknown wif network prefix")
	}
	if len(payload) == 33 && payload[32] == compressedSuffix {
		payload = payload[:32]
	}
	if len(payload) != 32 {
		return nil, sdkerrors.NewWithMessage(sdkerrors.CodeDecodingFailed, "invalid wif payload length")
	}
	return payload, nil
}

// CheckEncode and CheckDecode expose plain Base58Check for callers that
// export other key kinds.
func CheckEncode(payload []byte, version byte) string {
	return base58.CheckEncode(payload, version)
}

func CheckDecode(encoded string) ([]byte, byte, error) {
	payload, version, err := base58.CheckDecode(encoded)
	if err != nil {
		return nil, 0, sdkerrors.NewWithMessage(sdkerrors.CodeDecodingFailed, "invalid base58check string")
	}
	return payload, version, nil
}
