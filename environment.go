// Package cardsdk is the host-side engine for a contactless smart-card
// wallet: it frames commands, drives the reader session, negotiates link
// encryption and runs the attestation workflow.
package cardsdk

import (
	"bytes"

	"github.com/status-im/cardsdk-go/crypto"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/types"
)

// EncryptionMode is the link encryption level. The card advertises which
// levels it accepts; the host escalates one level at a time when the card
// answers needEncryption.
type EncryptionMode byte

const (
	EncryptionModeNone   EncryptionMode = 0x00
	EncryptionModeFast   EncryptionMode = 0x01
	EncryptionModeStrong EncryptionMode = 0x02
)

// Next returns the mode to try after the card rejected the current one.
func (m EncryptionMode) Next() (EncryptionMode, bool) {
	switch m {
	case EncryptionModeNone:
		return EncryptionModeFast, true
	case EncryptionModeFast:
		return EncryptionModeStrong, true
	default:
		return m, false
	}
}

// UserCodeType selects which card secret a code unlocks: the access code
// gates every command, the passcode gates state-changing ones.
type UserCodeType int

const (
	UserCodeAccessCode UserCodeType = iota
	UserCodePasscode
)

const (
	defaultAccessCode = "000000"
	defaultPasscode   = "000"
)

// UserCode is the hashed form of a user secret. Value is sha256 over the
// NFKD-normalized text; the clear text never leaves the entry point.
type UserCode struct {
	Type  UserCodeType
	Value []byte
}

// NewUserCode hashes a clear-text code.
func NewUserCode(codeType UserCodeType, code string) UserCode {
	return UserCode{Type: codeType, Value: crypto.HashUserCode(code)}
}

// DefaultUserCode is the well-known factory code for cards whose owner never
// set one.
func DefaultUserCode(codeType UserCodeType) UserCode {
	if codeType == UserCodePasscode {
		return NewUserCode(codeType, defaultPasscode)
	}
	return NewUserCode(codeType, defaultAccessCode)
}

// IsDefault reports whether the code equals the factory default.
func (c UserCode) IsDefault() bool {
	return bytes.Equal(c.Value, DefaultUserCode(c.Type).Value)
}

// CardFilter rejects cards the host application does not serve.
type CardFilter struct {
	// AllowedTypes restricts firmware types; empty allows everything.
	AllowedTypes []types.FirmwareType
	// BatchIDs restricts manufacturing batches; empty allows everything.
	BatchIDs []string
	// MaxFirmwareVersion rejects newer cards than the host understands;
	// zero value disables the check.
	MaxFirmwareVersion types.FirmwareVersion
}

// Allow checks the filter against a card snapshot.
func (f CardFilter) Allow(card *types.Card) error {
	if len(f.AllowedTypes) > 0 {
		ok := false
		for _, t := range f.AllowedTypes {
			if card.FirmwareVersion.Type == t {
				ok = true
				break
			}
		}
		if !ok {
			return sdkerrors.New(sdkerrors.CodeWrongCardType)
		}
	}
	if len(f.BatchIDs) > 0 {
		ok := false
		for _, b := range f.BatchIDs {
			if card.BatchID == b {
				ok = true
				break
			}
		}
		if !ok {
			return sdkerrors.New(sdkerrors.CodeWrongCardType)
		}
	}
	if f.MaxFirmwareVersion.Major != 0 && !f.MaxFirmwareVersion.AtLeast(card.FirmwareVersion) {
		return sdkerrors.New(sdkerrors.CodeWrongCardType)
	}
	return nil
}

// Config is resolved once when the session is constructed; nothing in it is
// re-read afterwards.
type Config struct {
	Filter          CardFilter
	AttestationMode types.AttestationMode
	// HandleErrors enables host-side translation of wrong-code card
	// statuses into wrongAccessCode/wrongPasscode.
	HandleErrors bool
}

func DefaultConfig() Config {
	return Config{
		AttestationMode: types.AttestationModeNormal,
		HandleErrors:    true,
	}
}

// SessionEnvironment is the mutable per-tap state shared by every command
// running in one session.
type SessionEnvironment struct {
	Card           *types.Card
	EncryptionMode EncryptionMode
	// EncryptionKey is the negotiated session key; nil until the first
	// open-session round trip, cleared on tag loss.
	EncryptionKey []byte
	// UID is the hardware identifier of the connected tag, the salt of the
	// session-key derivation.
	UID        []byte
	AccessCode UserCode
	Passcode   UserCode
	Config     Config
}

func NewSessionEnvironment(config Config) *SessionEnvironment {
	return &SessionEnvironment{
		AccessCode: DefaultUserCode(UserCodeAccessCode),
		Passcode:   DefaultUserCode(UserCodePasscode),
		Config:     config,
	}
}

// ResetCodes drops entered user codes back to the factory defaults.
func (e *SessionEnvironment) ResetCodes() {
	e.AccessCode = DefaultUserCode(UserCodeAccessCode)
	e.Passcode = DefaultUserCode(UserCodePasscode)
}
