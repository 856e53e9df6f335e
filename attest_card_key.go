package cardsdk

import (
	"github.com/status-im/cardsdk-go/apdu"
	"github.com/status-im/cardsdk-go/crypto"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/tlv"
	"github.com/status-im/cardsdk-go/types"
)

// AttestCardKeyResponse proves the card holds the private half of its
// manufacturing key: the signature covers the host challenge and the card
// salt.
type AttestCardKeyResponse struct {
	CardID    string
	Challenge []byte
	Salt      []byte
	Signature []byte
}

// AttestCardKeyCommand runs the offline challenge-response check against the
// card key. The command generates a fresh random challenge per run; replaying
// an earlier signature cannot pass.
type AttestCardKeyCommand struct {
	challenge []byte
}

func NewAttestCardKeyCommand() *AttestCardKeyCommand {
	return &AttestCardKeyCommand{}
}

func (c *AttestCardKeyCommand) Serialize(env *SessionEnvironment) (*apdu.Command, error) {
	if c.challenge == nil {
		challenge, err := crypto.GenerateRandomBytes(16)
		if err != nil {
			return nil, err
		}
		c.challenge = challenge
	}

	payload, err := tlv.NewBuilder().
		AppendRaw(tlv.TagPin, env.AccessCode.Value).
		AppendRaw(tlv.TagChallenge, c.challenge).
		Serialize()
	if err != nil {
		return nil, err
	}
	return apdu.NewCommand(apdu.InsAttestCardKey, payload), nil
}

func (c *AttestCardKeyCommand) Deserialize(env *SessionEnvironment, resp *apdu.Response) (*AttestCardKeyResponse, error) {
	items, err := resp.Tlv()
	if err != nil {
		return nil, err
	}
	d := tlv.NewDecoder(items)

	salt, err := d.Bytes(tlv.TagSalt)
	if err != nil {
		return nil, err
	}
	signature, err := d.Bytes(tlv.TagCardSignature)
	if err != nil {
		return nil, err
	}

	result := &AttestCardKeyResponse{
		CardID:    d.OptionalString(tlv.TagCardID),
		Challenge: c.challenge,
		Salt:      salt,
		Signature: signature,
	}
	if err := verifyCardSignature(env.Card, result); err != nil {
		return nil, err
	}
	return result, nil
}

func verifyCardSignature(card *types.Card, r *AttestCardKeyResponse) error {
	if card == nil {
		return sdkerrors.New(sdkerrors.CodeMissingPreflightRead)
	}
	message := append(append([]byte{}, r.Challenge...), r.Salt...)
	ok, err := crypto.VerifySecp256k1(card.CardPublicKey, message, r.Signature)
	if err != nil {
		return err
	}
	if !ok {
		return sdkerrors.New(sdkerrors.CodeCardVerificationFailed)
	}
	return nil
}
