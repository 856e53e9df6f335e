package cardsdk

import (
	"github.com/status-im/cardsdk-go/apdu"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/tlv"
	"github.com/status-im/cardsdk-go/types"
)

// CreateWalletResponse returns the slot the card picked and, on multiwallet
// firmware, the freshly generated public key.
type CreateWalletResponse struct {
	CardID string
	Wallet types.Wallet
}

// CreateWalletCommand generates a new wallet key on the card. The private
// key is created inside the secure element and never leaves it.
type CreateWalletCommand struct {
	curve       types.EllipticCurve
	isPermanent bool
}

func NewCreateWalletCommand(curve types.EllipticCurve) *CreateWalletCommand {
	return &CreateWalletCommand{curve: curve}
}

// Permanent marks the wallet non-purgeable at creation.
func (c *CreateWalletCommand) Permanent() *CreateWalletCommand {
	c.isPermanent = true
	return c
}

func (c *CreateWalletCommand) PerformPreCheck(card *types.Card) error {
	if !c.curve.Valid() {
		return sdkerrors.New(sdkerrors.CodeUnsupportedCurve)
	}
	supported := false
	for _, cardCurve := range card.SupportedCurves {
		if cardCurve == c.curve {
			supported = true
			break
		}
	}
	if len(card.SupportedCurves) > 0 && !supported {
		return sdkerrors.New(sdkerrors.CodeUnsupportedCurve)
	}
	if card.Settings.MaxWalletsCount > 0 && len(card.Wallets) >= card.Settings.MaxWalletsCount {
		return sdkerrors.New(sdkerrors.CodeMaxNumberOfWalletsCreated)
	}
	return nil
}

func (c *CreateWalletCommand) MapError(card *types.Card, err error) error {
	switch {
	case sdkerrors.HasCode(err, sdkerrors.CodeInvalidState):
		return sdkerrors.New(sdkerrors.CodeWalletAlreadyCreated)
	case sdkerrors.HasCode(err, sdkerrors.CodeInvalidParams):
		if card != nil && card.IsPasscodeSet != nil && *card.IsPasscodeSet {
			return sdkerrors.New(sdkerrors.CodeWrongPasscode)
		}
	}
	return err
}

func (c *CreateWalletCommand) Serialize(env *SessionEnvironment) (*apdu.Command, error) {
	var mask uint32
	if c.isPermanent {
		mask = uint32(types.WalletSettingProhibitPurgeWallet)
	}

	builder := tlv.NewBuilder().
		AppendRaw(tlv.TagPin, env.AccessCode.Value).
		AppendRaw(tlv.TagPin2, env.Passcode.Value).
		Append(tlv.TagCardID, env.Card.CardID).
		Append(tlv.TagCurveID, string(c.curve))
	if mask != 0 {
		builder.Append(tlv.TagSettingsMask, mask)
	}
	payload, err := builder.Serialize()
	if err != nil {
		return nil, err
	}
	return apdu.NewCommand(apdu.InsCreateWallet, payload), nil
}

func (c *CreateWalletCommand) Deserialize(env *SessionEnvironment, resp *apdu.Response) (*CreateWalletResponse, error) {
	items, err := resp.Tlv()
	if err != nil {
		return nil, err
	}
	d := tlv.NewDecoder(items)

	publicKey, err := d.Bytes(tlv.TagWalletPublicKey)
	if err != nil {
		return nil, err
	}
	wallet := types.Wallet{
		PublicKey:   publicKey,
		Curve:       c.curve,
		Status:      types.WalletStatusLoaded,
		IsPermanent: c.isPermanent,
	}
	if index, ok := d.OptionalInt(tlv.TagWalletIndex); ok {
		wallet.Index = index
	}

	// Keep the session snapshot current so follow-up commands see the new
	// wallet without another read.
	if env.Card != nil {
		env.Card.Wallets = append(env.Card.Wallets, wallet)
	}
	return &CreateWalletResponse{
		CardID: d.OptionalString(tlv.TagCardID),
		Wallet: wallet,
	}, nil
}
