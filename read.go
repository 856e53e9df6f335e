package cardsdk

import (
	"github.com/status-im/cardsdk-go/apdu"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/tlv"
	"github.com/status-im/cardsdk-go/types"
)

// ReadCommand fetches the card snapshot. It is the first command of every
// session; the card answers it with everything the host needs to drive the
// rest of the protocol.
type ReadCommand struct{}

func NewReadCommand() *ReadCommand {
	return &ReadCommand{}
}

func (c *ReadCommand) runsWithoutPreflight() {}

func (c *ReadCommand) Serialize(env *SessionEnvironment) (*apdu.Command, error) {
	payload, err := tlv.NewBuilder().
		AppendRaw(tlv.TagPin, env.AccessCode.Value).
		Serialize()
	if err != nil {
		return nil, err
	}
	return apdu.NewCommand(apdu.InsRead, payload), nil
}

func (c *ReadCommand) Deserialize(env *SessionEnvironment, resp *apdu.Response) (*types.Card, error) {
	items, err := resp.Tlv()
	if err != nil {
		return nil, err
	}
	return deserializeCard(items)
}

// deserializeCard maps the read response onto the card snapshot. A response
// missing the fields the protocol cannot work without fails with cardError.
func deserializeCard(items tlv.Tlvs) (*types.Card, error) {
	d := tlv.NewDecoder(items)

	cardID, err := d.String(tlv.TagCardID)
	if err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.CodeCardError, err)
	}
	cardPublicKey, err := d.Bytes(tlv.TagCardPublicKey)
	if err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.CodeCardError, err)
	}
	firmware, err := d.String(tlv.TagFirmwareVersion)
	if err != nil {
		return nil, sdkerrors.Wrap(sdkerrors.CodeCardError, err)
	}

	card := &types.Card{
		CardID:          cardID,
		CardPublicKey:   cardPublicKey,
		FirmwareVersion: types.ParseFirmwareVersion(firmware),
		BatchID:         d.OptionalString(tlv.TagBatchID),
	}

	card.Manufacturer.Name = d.OptionalString(tlv.TagManufacturerName)
	if date, err := d.Date(tlv.TagManufactureDateTime); err == nil {
		card.Manufacturer.ManufactureDate = date
	}
	card.Manufacturer.Signature = d.OptionalBytes(tlv.TagCardIDManufacturerSig)

	card.Issuer.Name = d.OptionalString(tlv.TagIssuerName)
	card.Issuer.PublicKey = d.OptionalBytes(tlv.TagIssuerPublicKey)

	if mask, ok := d.OptionalInt(tlv.TagSettingsMask); ok {
		card.Settings.Mask = types.SettingsMask(mask)
	}
	if pause, ok := d.OptionalInt(tlv.TagPauseBeforePin2); ok {
		// Reported in 10ms ticks.
		card.Settings.SecurityDelayMs = pause * 10
	}
	if count, ok := d.OptionalInt(tlv.TagWalletsCount); ok {
		card.Settings.MaxWalletsCount = count
	}
	if health, ok := d.OptionalInt(tlv.TagHealth); ok {
		card.Health = health
	}
	if d.Contains(tlv.TagPin2IsDefault) {
		isSet := !d.Bool(tlv.TagPin2IsDefault)
		card.IsPasscodeSet = &isSet
	}

	for _, item := range items.Items(tlv.TagCurveID) {
		curve := types.EllipticCurve(trimZero(item.Value))
		if curve.Valid() {
			card.SupportedCurves = append(card.SupportedCurves, curve)
		}
	}

	// Pre-multiwallet firmware reports its single wallet inline.
	if !card.FirmwareVersion.AtLeast(types.FirmwareMultiwallet) {
		if wallet, ok := deserializeLegacyWallet(d, card.SupportedCurves); ok {
			card.Wallets = []types.Wallet{wallet}
		}
	}
	return card, nil
}

func deserializeLegacyWallet(d *tlv.Decoder, curves []types.EllipticCurve) (types.Wallet, bool) {
	publicKey := d.OptionalBytes(tlv.TagWalletPublicKey)
	if len(publicKey) == 0 {
		return types.Wallet{}, false
	}
	wallet := types.Wallet{
		PublicKey: publicKey,
		Status:    types.WalletStatusLoaded,
	}
	if len(curves) > 0 {
		wallet.Curve = curves[0]
	}
	if n, ok := d.OptionalInt(tlv.TagWalletRemainingSigs); ok {
		wallet.RemainingSignatures = &n
	}
	if n, ok := d.OptionalInt(tlv.TagWalletSignedHashes); ok {
		wallet.TotalSignedHashes = &n
	}
	return wallet, true
}

func trimZero(value []byte) string {
	for len(value) > 0 && value[len(value)-1] == 0 {
		value = value[:len(value)-1]
	}
	return string(value)
}
