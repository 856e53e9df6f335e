package apdu

import (
	"encoding/binary"

	"github.com/status-im/cardsdk-go/crypto"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/tlv"
)

// Response is one reply frame: the payload followed by the two status bytes.
type Response struct {
	Data []byte
	SW1  byte
	SW2  byte
}

// ParseResponse splits a raw reply into payload and status word.
func ParseResponse(raw []byte) (*Response, error) {
	if len(raw) < 2 {
		return nil, sdkerrors.New(sdkerrors.CodeInvalidResponseAPDU)
	}
	data := make([]byte, len(raw)-2)
	copy(data, raw[:len(raw)-2])
	return &Response{
		Data: data,
		SW1:  raw[len(raw)-2],
		SW2:  raw[len(raw)-1],
	}, nil
}

// Sw returns the combined status word.
func (r *Response) Sw() StatusWord {
	return StatusWord(uint16(r.SW1)<<8 | uint16(r.SW2))
}

// Decrypt unwraps an encrypted payload: AES decrypt, then verify the embedded
// length and crc16 before exposing the TLV bytes. A checksum mismatch after a
// successful unpad means the session key is wrong, which is reported
// distinctly from a malformed frame.
func (r *Response) Decrypt(key []byte) (*Response, error) {
	if len(r.Data) == 0 {
		return r, nil
	}

	packet, err := crypto.DecryptAES(key, r.Data)
	if err != nil {
		return nil, err
	}
	if len(packet) < 4 {
		return nil, sdkerrors.New(sdkerrors.CodeInvalidResponseAPDU)
	}

	length := int(binary.BigEndian.Uint16(packet[0:2]))
	checksum := binary.BigEndian.Uint16(packet[2:4])
	payload := packet[4:]
	if length > len(payload) {
		return nil, sdkerrors.New(sdkerrors.CodeInvalidResponseAPDU)
	}
	payload = payload[:length]

	if crypto.Crc16(payload) != checksum {
		return nil, sdkerrors.NewWithMessage(sdkerrors.CodeFailedToDecryptAPDU,
			"response checksum mismatch, session key is not valid")
	}
	return &Response{Data: payload, SW1: r.SW1, SW2: r.SW2}, nil
}

// Tlv decodes the payload into records.
func (r *Response) Tlv() (tlv.Tlvs, error) {
	return tlv.Decode(r.Data)
}
