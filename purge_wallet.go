package cardsdk

import (
	"github.com/status-im/cardsdk-go/apdu"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/tlv"
	"github.com/status-im/cardsdk-go/types"
)

// PurgeWalletResponse reports the slot state after the purge.
type PurgeWalletResponse struct {
	CardID string
	Status types.WalletStatus
}

// PurgeWalletCommand deletes a wallet key from the card. Irreversible; the
// slot can be reused by a later create.
type PurgeWalletCommand struct {
	walletPublicKey []byte
}

func NewPurgeWalletCommand(walletPublicKey []byte) *PurgeWalletCommand {
	return &PurgeWalletCommand{walletPublicKey: walletPublicKey}
}

func (c *PurgeWalletCommand) PerformPreCheck(card *types.Card) error {
	wallet := card.WalletByPublicKey(c.walletPublicKey)
	if wallet == nil {
		return sdkerrors.New(sdkerrors.CodeWalletNotFound)
	}
	if wallet.IsPermanent || card.Settings.IsPermanentWallet() {
		return sdkerrors.New(sdkerrors.CodePurgeWalletProhibited)
	}
	return nil
}

func (c *PurgeWalletCommand) MapError(card *types.Card, err error) error {
	if sdkerrors.HasCode(err, sdkerrors.CodeInvalidParams) &&
		card != nil && card.IsPasscodeSet != nil && *card.IsPasscodeSet {
		return sdkerrors.New(sdkerrors.CodeWrongPasscode)
	}
	return err
}

func (c *PurgeWalletCommand) Serialize(env *SessionEnvironment) (*apdu.Command, error) {
	payload, err := tlv.NewBuilder().
		AppendRaw(tlv.TagPin, env.AccessCode.Value).
		AppendRaw(tlv.TagPin2, env.Passcode.Value).
		Append(tlv.TagCardID, env.Card.CardID).
		AppendRaw(tlv.TagWalletPublicKey, c.walletPublicKey).
		Serialize()
	if err != nil {
		return nil, err
	}
	return apdu.NewCommand(apdu.InsPurgeWallet, payload), nil
}

func (c *PurgeWalletCommand) Deserialize(env *SessionEnvironment, resp *apdu.Response) (*PurgeWalletResponse, error) {
	items, err := resp.Tlv()
	if err != nil {
		return nil, err
	}
	d := tlv.NewDecoder(items)

	status := types.WalletStatusPurged
	if raw, err := d.Byte(tlv.TagStatus); err == nil {
		status = types.WalletStatus(raw)
	}

	// Drop the purged wallet from the session snapshot.
	if env.Card != nil {
		kept := env.Card.Wallets[:0]
		for _, w := range env.Card.Wallets {
			if string(w.PublicKey) != string(c.walletPublicKey) {
				kept = append(kept, w)
			}
		}
		env.Card.Wallets = kept
	}
	return &PurgeWalletResponse{
		CardID: d.OptionalString(tlv.TagCardID),
		Status: status,
	}, nil
}
