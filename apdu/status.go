package apdu

import "github.com/status-im/cardsdk-go/sdkerrors"

// StatusWord is the two-byte status the card appends to every response.
type StatusWord uint16

const (
	SwProcessCompleted StatusWord = 0x9000
	SwPin1Changed      StatusWord = 0x9001
	SwPin2Changed      StatusWord = 0x9002
	SwPins12Changed    StatusWord = 0x9003
	SwPin3Changed      StatusWord = 0x9004
	SwPins13Changed    StatusWord = 0x9005
	SwPins23Changed    StatusWord = 0x9006
	SwPins123Changed   StatusWord = 0x9007
	SwSecurityDelay    StatusWord = 0x9789
	SwErrorProcessing  StatusWord = 0x6286
	SwInvalidParams    StatusWord = 0x6A86
	SwNeedEncryption   StatusWord = 0x6982
	SwNeedPause        StatusWord = 0x6986
	SwInvalidState     StatusWord = 0x6985
	SwInsNotSupported  StatusWord = 0x6D00
	SwFileNotFound     StatusWord = 0x6A82
	SwWalletNotFound   StatusWord = 0x6A88
	SwUnknown          StatusWord = 0x0000
)

// IsSuccess reports whether the status word completes the command. The
// pins-changed family is a success that additionally tells the host which
// user codes now differ from their defaults.
func (sw StatusWord) IsSuccess() bool {
	return sw == SwProcessCompleted || sw.IsPinsChanged()
}

func (sw StatusWord) IsPinsChanged() bool {
	return sw >= SwPin1Changed && sw <= SwPins123Changed
}

// ToError maps a non-success status word onto the error taxonomy. Success
// words map to nil; a word outside the table is unknownStatus.
func (sw StatusWord) ToError() error {
	if sw.IsSuccess() {
		return nil
	}
	switch sw {
	case SwSecurityDelay, SwNeedPause:
		return nil // handled by the transceive loop, never surfaced
	case SwErrorProcessing:
		return sdkerrors.New(sdkerrors.CodeErrorProcessingCommand)
	case SwInvalidParams:
		return sdkerrors.New(sdkerrors.CodeInvalidParams)
	case SwNeedEncryption:
		return sdkerrors.New(sdkerrors.CodeNeedEncryption)
	case SwInvalidState:
		return sdkerrors.New(sdkerrors.CodeInvalidState)
	case SwInsNotSupported:
		return sdkerrors.New(sdkerrors.CodeInsNotSupported)
	case SwFileNotFound:
		return sdkerrors.New(sdkerrors.CodeFileNotFound)
	case SwWalletNotFound:
		return sdkerrors.New(sdkerrors.CodeWalletNotFound)
	default:
		return sdkerrors.New(sdkerrors.CodeUnknownStatus)
	}
}
