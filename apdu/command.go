// Package apdu frames commands and responses for the card link. A command is
// `INS ‖ LEN(2, BE) ‖ TLV*`; a response is `DATA ‖ SW1 ‖ SW2`. When link
// encryption is active the TLV payload travels inside an AES packet carrying
// its own length and checksum.
package apdu

import (
	"encoding/binary"

	"github.com/status-im/cardsdk-go/crypto"
)

// Ins is the instruction byte selecting the card operation.
type Ins byte

const (
	InsUnknown          Ins = 0x00
	InsReadFileData     Ins = 0xD1
	InsWriteFileData    Ins = 0xD0
	InsWriteUserData    Ins = 0xE0
	InsReadUserData     Ins = 0xE2
	InsPersonalize      Ins = 0xF1
	InsRead             Ins = 0xF2
	InsAttestCardKey    Ins = 0xF3
	InsAttestCardUnique Ins = 0xF4
	InsWriteIssuerData  Ins = 0xF6
	InsReadIssuerData   Ins = 0xF7
	InsCreateWallet     Ins = 0xF8
	InsAttestWalletKey  Ins = 0xF9
	InsSetUserCode      Ins = 0xFA
	InsSign             Ins = 0xFB
	InsPurgeWallet      Ins = 0xFC
	InsDepersonalize    Ins = 0xFD
	InsActivate         Ins = 0xFE
	InsOpenSession      Ins = 0xFF
)

// Command is one request frame. Data is the serialized TLV payload.
type Command struct {
	Ins  Ins
	Data []byte
}

func NewCommand(ins Ins, data []byte) *Command {
	return &Command{Ins: ins, Data: data}
}

// Serialize produces the plain wire frame.
func (c *Command) Serialize() []byte {
	frame := make([]byte, 3, 3+len(c.Data))
	frame[0] = byte(c.Ins)
	binary.BigEndian.PutUint16(frame[1:3], uint16(len(c.Data)))
	return append(frame, c.Data...)
}

// Encrypt wraps the TLV payload in an encrypted packet and returns a new
// command carrying the ciphertext. The plaintext packet prepends the payload
// length and its crc16 so the receiver can tell a wrong key from a damaged
// frame. Encryption is deterministic: encrypting the same command under the
// same key yields an identical frame, which the security-delay resend relies
// on.
func (c *Command) Encrypt(key []byte) (*Command, error) {
	packet := make([]byte, 4, 4+len(c.Data))
	binary.BigEndian.PutUint16(packet[0:2], uint16(len(c.Data)))
	binary.BigEndian.PutUint16(packet[2:4], crypto.Crc16(c.Data))
	packet = append(packet, c.Data...)

	ciphertext, err := crypto.EncryptAES(key, packet)
	if err != nil {
		return nil, err
	}
	return &Command{Ins: c.Ins, Data: ciphertext}, nil
}

// Equal reports whether two commands would produce the same wire frame.
func (c *Command) Equal(other *Command) bool {
	if c.Ins != other.Ins || len(c.Data) != len(other.Data) {
		return false
	}
	return string(c.Data) == string(other.Data)
}
