package cardsdk

import (
	"github.com/status-im/cardsdk-go/apdu"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/tlv"
	"github.com/status-im/cardsdk-go/types"
)

// readMode selects what a read instruction returns on multiwallet firmware.
type readMode byte

const (
	readModeCard       readMode = 0x01
	readModeWallet     readMode = 0x02
	readModeWalletList readMode = 0x03
)

// ReadWalletsListCommand fetches every wallet slot of a multiwallet card.
// Each wallet arrives as a nested TLV record.
type ReadWalletsListCommand struct{}

func NewReadWalletsListCommand() *ReadWalletsListCommand {
	return &ReadWalletsListCommand{}
}

func (c *ReadWalletsListCommand) PerformPreCheck(card *types.Card) error {
	if !card.FirmwareVersion.AtLeast(types.FirmwareMultiwallet) {
		return sdkerrors.New(sdkerrors.CodeNotSupportedFirmwareVersion)
	}
	return nil
}

func (c *ReadWalletsListCommand) Serialize(env *SessionEnvironment) (*apdu.Command, error) {
	payload, err := tlv.NewBuilder().
		AppendRaw(tlv.TagPin, env.AccessCode.Value).
		Append(tlv.TagInteractionMode, byte(readModeWalletList)).
		Serialize()
	if err != nil {
		return nil, err
	}
	return apdu.NewCommand(apdu.InsRead, payload), nil
}

func (c *ReadWalletsListCommand) Deserialize(env *SessionEnvironment, resp *apdu.Response) ([]types.Wallet, error) {
	items, err := resp.Tlv()
	if err != nil {
		return nil, err
	}

	var wallets []types.Wallet
	for _, item := range items.Items(tlv.TagWalletInfo) {
		nested, err := tlv.Decode(item.Value)
		if err != nil {
			return nil, err
		}
		wallet, err := deserializeWallet(nested)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, wallet)
	}
	return wallets, nil
}

func deserializeWallet(items tlv.Tlvs) (types.Wallet, error) {
	d := tlv.NewDecoder(items)

	index, err := d.Int(tlv.TagWalletIndex)
	if err != nil {
		return types.Wallet{}, err
	}
	status, err := d.Byte(tlv.TagStatus)
	if err != nil {
		return types.Wallet{}, err
	}

	wallet := types.Wallet{
		Index:     index,
		Status:    types.WalletStatus(status),
		PublicKey: d.OptionalBytes(tlv.TagWalletPublicKey),
		ChainCode: d.OptionalBytes(tlv.TagWalletHDChain),
		Curve:     types.EllipticCurve(d.OptionalString(tlv.TagCurveID)),
	}
	if mask, ok := d.OptionalInt(tlv.TagSettingsMask); ok {
		wallet.IsPermanent = types.WalletSettingsMask(mask).Contains(types.WalletSettingProhibitPurgeWallet)
	}
	if n, ok := d.OptionalInt(tlv.TagWalletSignedHashes); ok {
		wallet.TotalSignedHashes = &n
	}
	return wallet, nil
}
