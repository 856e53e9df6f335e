package cardsdk

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/status-im/cardsdk-go/apdu"
	"github.com/status-im/cardsdk-go/crypto"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/tlv"
	"github.com/status-im/cardsdk-go/types"
)

// maxIssuerDataSize is the card's issuer data slot capacity.
const maxIssuerDataSize = 512

// IssuerDataResponse is the issuer slot content with its authenticity proof.
type IssuerDataResponse struct {
	CardID    string
	Data      []byte
	Signature []byte
	// Counter is present when the card protects the slot against replay.
	Counter *int
}

// ReadIssuerDataCommand reads the issuer-signed data slot and verifies the
// issuer signature against the issuer key from the card snapshot.
type ReadIssuerDataCommand struct{}

func NewReadIssuerDataCommand() *ReadIssuerDataCommand {
	return &ReadIssuerDataCommand{}
}

func (c *ReadIssuerDataCommand) Serialize(env *SessionEnvironment) (*apdu.Command, error) {
	payload, err := tlv.NewBuilder().
		AppendRaw(tlv.TagPin, env.AccessCode.Value).
		Append(tlv.TagCardID, env.Card.CardID).
		Serialize()
	if err != nil {
		return nil, err
	}
	return apdu.NewCommand(apdu.InsReadIssuerData, payload), nil
}

func (c *ReadIssuerDataCommand) Deserialize(env *SessionEnvironment, resp *apdu.Response) (*IssuerDataResponse, error) {
	items, err := resp.Tlv()
	if err != nil {
		return nil, err
	}
	d := tlv.NewDecoder(items)

	result := &IssuerDataResponse{
		CardID:    d.OptionalString(tlv.TagCardID),
		Data:      d.OptionalBytes(tlv.TagIssuerData),
		Signature: d.OptionalBytes(tlv.TagIssuerDataSignature),
	}
	if n, ok := d.OptionalInt(tlv.TagIssuerDataCounter); ok {
		result.Counter = &n
	}

	if len(result.Data) > 0 && len(env.Card.Issuer.PublicKey) > 0 {
		ok, err := verifyIssuerSignature(env.Card, result.Data, result.Counter, result.Signature)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, sdkerrors.New(sdkerrors.CodeVerificationFailed)
		}
	}
	return result, nil
}

// WriteIssuerDataCommand replaces the issuer data slot. The payload must be
// signed by the issuer key; on replay-protected cards the signature also
// covers a strictly increasing counter.
type WriteIssuerDataCommand struct {
	data      []byte
	signature []byte
	counter   *int
}

func NewWriteIssuerDataCommand(data, signature []byte) *WriteIssuerDataCommand {
	return &WriteIssuerDataCommand{data: data, signature: signature}
}

// WithCounter attaches the replay counter.
func (c *WriteIssuerDataCommand) WithCounter(counter int) *WriteIssuerDataCommand {
	c.counter = &counter
	return c
}

func (c *WriteIssuerDataCommand) PerformPreCheck(card *types.Card) error {
	if len(c.data) > maxIssuerDataSize {
		return sdkerrors.New(sdkerrors.CodeDataSizeTooLarge)
	}
	if card.Settings.IsIssuerDataProtectedAgainstReplay() && c.counter == nil {
		return sdkerrors.New(sdkerrors.CodeMissingCounter)
	}
	if len(card.Issuer.PublicKey) > 0 {
		ok, err := verifyIssuerSignature(card, c.data, c.counter, c.signature)
		if err != nil {
			return err
		}
		if !ok {
			return sdkerrors.New(sdkerrors.CodeVerificationFailed)
		}
	}
	return nil
}

// MapError reinterprets invalidParams: on a replay-protected card it means
// the counter did not advance, so the write was rejected.
func (c *WriteIssuerDataCommand) MapError(card *types.Card, err error) error {
	if sdkerrors.HasCode(err, sdkerrors.CodeInvalidParams) &&
		card != nil && card.Settings.IsIssuerDataProtectedAgainstReplay() {
		return sdkerrors.New(sdkerrors.CodeDataCannotBeWritten)
	}
	return err
}

func (c *WriteIssuerDataCommand) Serialize(env *SessionEnvironment) (*apdu.Command, error) {
	builder := tlv.NewBuilder().
		AppendRaw(tlv.TagPin, env.AccessCode.Value).
		Append(tlv.TagCardID, env.Card.CardID).
		AppendRaw(tlv.TagIssuerData, c.data).
		AppendRaw(tlv.TagIssuerDataSignature, c.signature)
	if c.counter != nil {
		builder.Append(tlv.TagIssuerDataCounter, *c.counter)
	}
	payload, err := builder.Serialize()
	if err != nil {
		return nil, err
	}
	return apdu.NewCommand(apdu.InsWriteIssuerData, payload), nil
}

func (c *WriteIssuerDataCommand) Deserialize(env *SessionEnvironment, resp *apdu.Response) (*IssuerDataResponse, error) {
	items, err := resp.Tlv()
	if err != nil {
		return nil, err
	}
	d := tlv.NewDecoder(items)
	return &IssuerDataResponse{
		CardID:  d.OptionalString(tlv.TagCardID),
		Data:    c.data,
		Counter: c.counter,
	}, nil
}

// verifyIssuerSignature checks the issuer signature over
// cardId ‖ data [‖ counter]; the counter is covered only when present.
func verifyIssuerSignature(card *types.Card, data []byte, counter *int, signature []byte) (bool, error) {
	cardIDBytes, err := hex.DecodeString(card.CardID)
	if err != nil {
		return false, sdkerrors.Wrap(sdkerrors.CodeCryptoError, err)
	}
	message := append(append([]byte{}, cardIDBytes...), data...)
	if counter != nil {
		var c [4]byte
		binary.BigEndian.PutUint32(c[:], uint32(*counter))
		message = append(message, c[:]...)
	}
	return crypto.VerifySecp256k1(card.Issuer.PublicKey, message, signature)
}
