// Package sdkerrors defines the closed set of errors produced by the SDK.
// Every error carries a stable numeric code, grouped in bands by origin:
// 1xxxx transport, 2xxxx framing, 3xxxx card status, 4xxxx business logic,
// 5xxxx SDK misuse, 9xxxx low-level reader. Codes are shared across platform
// SDKs and must not be renumbered.
package sdkerrors

import (
	"encoding/json"
	"fmt"
)

type Code int

const (
	// 1xxxx transport errors
	CodeUnsupportedCommand Code = 10003
	CodeUnsupportedDevice  Code = 10004
	CodeSessionInactive    Code = 10005
	CodeReaderStuck        Code = 10006
	CodeReaderTimeout      Code = 10007
	CodeReaderError        Code = 10008

	// 2xxxx framing errors
	CodeSerializeCommandFailed       Code = 20001
	CodeDeserializeAPDUFailed        Code = 20002
	CodeEncodingFailedTypeMismatch   Code = 20003
	CodeEncodingFailed               Code = 20004
	CodeDecodingFailedMissingTag     Code = 20005
	CodeDecodingFailedTypeMismatch   Code = 20006
	CodeDecodingFailed               Code = 20007
	CodeFailedToEncryptAPDU          Code = 20008
	CodeFailedToDecryptAPDU          Code = 20009
	CodeFailedToEstablishEncryption  Code = 20010
	CodeInvalidResponseAPDU          Code = 20011
	CodeFailedToBuildCommandAPDU     Code = 20012

	// 3xxxx card status errors
	CodeUnknownStatus          Code = 30001
	CodeErrorProcessingCommand Code = 30002
	CodeInvalidState           Code = 30003
	CodeInsNotSupported        Code = 30004
	CodeInvalidParams          Code = 30005
	CodeNeedEncryption         Code = 30006
	CodeFileNotFound           Code = 30007
	CodeWalletNotFound         Code = 30008

	// 4xxxx business logic errors
	CodeNotPersonalized             Code = 40001
	CodeNotActivated                Code = 40002
	CodeWalletIsPurged              Code = 40003
	CodePasscodeRequired            Code = 40004
	CodeVerificationFailed          Code = 40005
	CodeDataSizeTooLarge            Code = 40006
	CodeMissingCounter              Code = 40007
	CodeOverwritingDataIsProhibited Code = 40008
	CodeDataCannotBeWritten         Code = 40009
	CodeMissingIssuerPublicKey      Code = 40010
	CodeCardVerificationFailed      Code = 40011
	CodeWrongAccessCode             Code = 40012
	CodeWrongPasscode               Code = 40013

	CodeAlreadyPersonalized Code = 40101

	CodeAccessCodeRequired        Code = 40401
	CodeWalletCannotBeCreated     Code = 40403
	CodeWalletAlreadyCreated      Code = 40405
	CodeAlreadyCreated            Code = 40501
	CodeUnsupportedCurve          Code = 40502
	CodeMaxNumberOfWalletsCreated Code = 40503
	CodePurgeWalletProhibited     Code = 40601

	CodeAccessCodeCannotBeChanged Code = 40801
	CodePasscodeCannotBeChanged   Code = 40802
	CodeAccessCodeCannotBeDefault Code = 40803
	CodeAccessCodeTooShort        Code = 40805

	CodeNoRemainingSignatures  Code = 40901
	CodeEmptyHashes            Code = 40902
	CodeSignHashesNotAvailable Code = 40905

	CodeExtendedDataSizeTooLarge Code = 41101

	// 5xxxx SDK errors
	CodeUnknownError                 Code = 50001
	CodeUserCancelled                Code = 50002
	CodeBusy                         Code = 50003
	CodeMissingPreflightRead         Code = 50004
	CodeWrongCardNumber              Code = 50005
	CodeWrongCardType                Code = 50006
	CodeCardError                    Code = 50007
	CodeNotSupportedFirmwareVersion  Code = 50008
	CodeFailedToGenerateRandom       Code = 50010
	CodeCryptoError                  Code = 50011
	CodeUnderlying                   Code = 50012

	// 9xxxx low-level reader errors
	CodeReaderUnsupportedFeature Code = 90003
	CodeTagLost                  Code = 90008
	CodeRetryExceeded            Code = 90009
	CodeTagResponseError         Code = 90010
	CodeSessionInvalidated       Code = 90011
	CodeTagNotConnected          Code = 90012
	CodeSessionTimeout           Code = 90013
)

var descriptions = map[Code]string{
	CodeUnsupportedCommand:          "command is not supported by this tag type",
	CodeUnsupportedDevice:           "device does not support the required reader features",
	CodeSessionInactive:             "session is inactive, start it before sending commands",
	CodeReaderStuck:                 "reader is stuck and needs a restart",
	CodeReaderTimeout:               "reader session timed out",
	CodeReaderError:                 "reader error",
	CodeSerializeCommandFailed:      "failed to serialize command",
	CodeDeserializeAPDUFailed:       "failed to deserialize response apdu",
	CodeEncodingFailedTypeMismatch:  "tlv encoding failed: type mismatch",
	CodeEncodingFailed:              "tlv encoding failed",
	CodeDecodingFailedMissingTag:    "tlv decoding failed: missing tag",
	CodeDecodingFailedTypeMismatch:  "tlv decoding failed: type mismatch",
	CodeDecodingFailed:              "tlv decoding failed",
	CodeFailedToEncryptAPDU:         "failed to encrypt apdu",
	CodeFailedToDecryptAPDU:         "failed to decrypt apdu",
	CodeFailedToEstablishEncryption: "failed to establish encryption with the card",
	CodeInvalidResponseAPDU:         "invalid response apdu",
	CodeFailedToBuildCommandAPDU:    "failed to build command apdu",
	CodeUnknownStatus:               "unknown status word",
	CodeErrorProcessingCommand:      "card reported an internal processing error",
	CodeInvalidState:                "command cannot be executed in the current state of the card",
	CodeInsNotSupported:             "instruction is not supported by the card",
	CodeInvalidParams:               "wrong or insufficient command parameters",
	CodeNeedEncryption:              "card requires an encrypted channel",
	CodeFileNotFound:                "file not found",
	CodeWalletNotFound:              "wallet not found",
	CodeNotPersonalized:             "card is not personalized",
	CodeNotActivated:                "card is not activated",
	CodeWalletIsPurged:              "wallet is purged",
	CodePasscodeRequired:            "passcode required",
	CodeVerificationFailed:          "verification failed",
	CodeDataSizeTooLarge:            "data size is too large",
	CodeMissingCounter:              "the card requires a protection counter",
	CodeOverwritingDataIsProhibited: "overwriting data is prohibited",
	CodeDataCannotBeWritten:         "data cannot be written",
	CodeMissingIssuerPublicKey:      "issuer public key is required",
	CodeCardVerificationFailed:      "card verification failed",
	CodeWrongAccessCode:             "wrong access code",
	CodeWrongPasscode:               "wrong passcode",
	CodeAlreadyPersonalized:         "card is already personalized",
	CodeAccessCodeRequired:          "access code required",
	CodeWalletCannotBeCreated:       "wallet cannot be created",
	CodeWalletAlreadyCreated:        "wallet already created",
	CodeAlreadyCreated:              "wallet already created",
	CodeUnsupportedCurve:            "curve is not supported by this card",
	CodeMaxNumberOfWalletsCreated:   "the maximum number of wallets is created",
	CodePurgeWalletProhibited:       "purging the wallet is prohibited",
	CodeAccessCodeCannotBeChanged:   "access code cannot be changed",
	CodePasscodeCannotBeChanged:     "passcode cannot be changed",
	CodeAccessCodeCannotBeDefault:   "access code cannot be the default value",
	CodeAccessCodeTooShort:          "access code is too short",
	CodeNoRemainingSignatures:       "no remaining signatures",
	CodeEmptyHashes:                 "nothing to sign: empty hashes",
	CodeSignHashesNotAvailable:      "hash signing is not available",
	CodeExtendedDataSizeTooLarge:    "extended data size is too large",
	CodeUnknownError:                "unknown error",
	CodeUserCancelled:               "the user cancelled the operation",
	CodeBusy:                        "another session is already active",
	CodeMissingPreflightRead:        "preflight read is required before this command",
	CodeWrongCardNumber:             "wrong card: the tapped card has a different card id",
	CodeWrongCardType:               "this card type is not accepted",
	CodeCardError:                   "the card response is missing essential fields",
	CodeNotSupportedFirmwareVersion: "the card firmware does not support this operation",
	CodeFailedToGenerateRandom:      "failed to generate a random sequence",
	CodeCryptoError:                 "low-level crypto operation failed",
	CodeUnderlying:                  "underlying error",
	CodeReaderUnsupportedFeature:    "reader feature is not supported",
	CodeTagLost:                     "tag connection lost",
	CodeRetryExceeded:               "reader retry count exceeded",
	CodeTagResponseError:            "tag response error",
	CodeSessionInvalidated:          "reader session was invalidated",
	CodeTagNotConnected:             "tag is not connected",
	CodeSessionTimeout:              "reader session timed out",
}

// Error is one member of the closed taxonomy. Message, when set, carries
// a human-readable detail (decode failures name the offending tag, wrong-card
// errors name the expected card id). Cause preserves the underlying error for
// errors.Is/As chains.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func New(code Code) *Error {
	return &Error{Code: code}
}

func NewWithMessage(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, cause error) *Error {
	if e, ok := cause.(*Error); ok {
		return e
	}
	return &Error{Code: code, Cause: cause}
}

// Underlying wraps an out-of-taxonomy error without losing it.
func Underlying(cause error) *Error {
	if e, ok := cause.(*Error); ok {
		return e
	}
	return &Error{Code: CodeUnderlying, Cause: cause}
}

func (e *Error) Error() string {
	desc := e.Description()
	return fmt.Sprintf("cardsdk: %s (code %d)", desc, e.Code)
}

// Description returns the human-readable text without the code suffix.
func (e *Error) Description() string {
	if e.Message != "" {
		return e.Message
	}
	if d, ok := descriptions[e.Code]; ok {
		return d
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return descriptions[CodeUnknownError]
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches two taxonomy errors by code, so sentinel comparisons like
// errors.Is(err, sdkerrors.New(sdkerrors.CodeBusy)) work regardless of the
// attached message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// HasCode reports whether err is a taxonomy error with the given code.
func HasCode(err error, code Code) bool {
	e := FromError(err)
	return e != nil && e.Code == code
}

// FromError extracts the taxonomy error from err's chain, or nil.
func FromError(err error) *Error {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = u.Unwrap()
	}
	return nil
}

type wireError struct {
	Code                 int    `json:"code"`
	LocalizedDescription string `json:"localizedDescription"`
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireError{Code: int(e.Code), LocalizedDescription: e.Description()})
}

func (e *Error) UnmarshalJSON(data []byte) error {
	var w wireError
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Code = Code(w.Code)
	e.Message = w.LocalizedDescription
	return nil
}
