package cardsdk

import (
	"github.com/status-im/cardsdk-go/apdu"
	"github.com/status-im/cardsdk-go/crypto"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/tlv"
	"github.com/status-im/cardsdk-go/types"
)

// AttestWalletKeyResponse proves a wallet slot holds its private key.
type AttestWalletKeyResponse struct {
	Salt      []byte
	Signature []byte
	// Counter is the wallet usage counter on firmware that reports it.
	Counter *int
}

// AttestWalletKeyCommand challenges one wallet key. The wallet is addressed
// by its public key; the card signs challenge‖salt with the wallet's private
// key and the host verifies on the wallet's curve.
type AttestWalletKeyCommand struct {
	walletPublicKey []byte
	challenge       []byte
}

func NewAttestWalletKeyCommand(walletPublicKey []byte) *AttestWalletKeyCommand {
	return &AttestWalletKeyCommand{walletPublicKey: walletPublicKey}
}

func (c *AttestWalletKeyCommand) PerformPreCheck(card *types.Card) error {
	if card.WalletByPublicKey(c.walletPublicKey) == nil {
		return sdkerrors.New(sdkerrors.CodeWalletNotFound)
	}
	return nil
}

func (c *AttestWalletKeyCommand) Serialize(env *SessionEnvironment) (*apdu.Command, error) {
	if c.challenge == nil {
		challenge, err := crypto.GenerateRandomBytes(16)
		if err != nil {
			return nil, err
		}
		c.challenge = challenge
	}

	payload, err := tlv.NewBuilder().
		AppendRaw(tlv.TagPin, env.AccessCode.Value).
		Append(tlv.TagCardID, env.Card.CardID).
		AppendRaw(tlv.TagChallenge, c.challenge).
		AppendRaw(tlv.TagWalletPublicKey, c.walletPublicKey).
		Serialize()
	if err != nil {
		return nil, err
	}
	return apdu.NewCommand(apdu.InsAttestWalletKey, payload), nil
}

func (c *AttestWalletKeyCommand) Deserialize(env *SessionEnvironment, resp *apdu.Response) (*AttestWalletKeyResponse, error) {
	items, err := resp.Tlv()
	if err != nil {
		return nil, err
	}
	d := tlv.NewDecoder(items)

	salt, err := d.Bytes(tlv.TagSalt)
	if err != nil {
		return nil, err
	}
	signature, err := d.Bytes(tlv.TagWalletSignature)
	if err != nil {
		return nil, err
	}
	result := &AttestWalletKeyResponse{Salt: salt, Signature: signature}
	if n, ok := d.OptionalInt(tlv.TagCheckWalletCounter); ok {
		result.Counter = &n
	}

	wallet := env.Card.WalletByPublicKey(c.walletPublicKey)
	if wallet == nil {
		return nil, sdkerrors.New(sdkerrors.CodeWalletNotFound)
	}
	message := append(append([]byte{}, c.challenge...), salt...)
	ok, err := verifyOnCurve(wallet.Curve, wallet.PublicKey, message, signature)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, sdkerrors.New(sdkerrors.CodeCardVerificationFailed)
	}
	return result, nil
}

func verifyOnCurve(curve types.EllipticCurve, publicKey, message, signature []byte) (bool, error) {
	switch curve {
	case types.CurveSecp256k1:
		return crypto.VerifySecp256k1(publicKey, message, signature)
	case types.CurveEd25519, types.CurveEd25519Slip10:
		return crypto.VerifyEd25519(publicKey, message, signature)
	default:
		return false, sdkerrors.New(sdkerrors.CodeUnsupportedCurve)
	}
}
