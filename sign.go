package cardsdk

import (
	"context"

	"github.com/status-im/cardsdk-go/apdu"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/tlv"
	"github.com/status-im/cardsdk-go/types"
)

// signChunkSize is the card's per-frame hash limit.
const signChunkSize = 10

// SignResponse carries one signature per submitted hash, in order.
type SignResponse struct {
	CardID            string
	Signatures        [][]byte
	TotalSignedHashes *int
}

// SignCommand signs a batch of hashes with one wallet key. Batches larger
// than the card's per-frame limit are split transparently; the result is
// reassembled in submission order.
type SignCommand struct {
	walletPublicKey []byte
	hashes          [][]byte
	derivationPath  []byte
}

func NewSignCommand(walletPublicKey []byte, hashes [][]byte) *SignCommand {
	return &SignCommand{walletPublicKey: walletPublicKey, hashes: hashes}
}

// WithDerivationPath signs with a key the card derives under the wallet's
// master key. Requires HD wallet firmware.
func (c *SignCommand) WithDerivationPath(serializedPath []byte) *SignCommand {
	c.derivationPath = serializedPath
	return c
}

func (c *SignCommand) PerformPreCheck(card *types.Card) error {
	if len(c.hashes) == 0 {
		return sdkerrors.New(sdkerrors.CodeEmptyHashes)
	}
	size := len(c.hashes[0])
	for _, h := range c.hashes[1:] {
		if len(h) != size {
			return sdkerrors.NewWithMessage(sdkerrors.CodeInvalidParams,
				"all hashes in one batch must have the same size")
		}
	}

	wallet := card.WalletByPublicKey(c.walletPublicKey)
	if wallet == nil {
		return sdkerrors.New(sdkerrors.CodeWalletNotFound)
	}
	if wallet.RemainingSignatures != nil && *wallet.RemainingSignatures == 0 {
		return sdkerrors.New(sdkerrors.CodeNoRemainingSignatures)
	}
	if c.derivationPath != nil && !card.FirmwareVersion.AtLeast(types.FirmwareHDWallet) {
		return sdkerrors.New(sdkerrors.CodeNotSupportedFirmwareVersion)
	}
	return nil
}

func (c *SignCommand) MapError(card *types.Card, err error) error {
	if sdkerrors.HasCode(err, sdkerrors.CodeInvalidParams) &&
		card != nil && card.IsPasscodeSet != nil && *card.IsPasscodeSet {
		return sdkerrors.New(sdkerrors.CodeWrongPasscode)
	}
	return err
}

// Run executes the command, one chunk at a time.
func (c *SignCommand) Run(ctx context.Context, session *CardSession) (*SignResponse, error) {
	env := session.Environment()
	if env.Card == nil {
		return nil, sdkerrors.New(sdkerrors.CodeMissingPreflightRead)
	}
	if err := c.PerformPreCheck(env.Card); err != nil {
		return nil, err
	}

	result := &SignResponse{}
	for offset := 0; offset < len(c.hashes); offset += signChunkSize {
		end := offset + signChunkSize
		if end > len(c.hashes) {
			end = len(c.hashes)
		}
		chunk := &signChunkCommand{parent: c, hashes: c.hashes[offset:end]}
		partial, err := Transceive(ctx, session, chunk)
		if err != nil {
			return nil, err
		}
		result.CardID = partial.CardID
		result.Signatures = append(result.Signatures, partial.Signatures...)
		result.TotalSignedHashes = partial.TotalSignedHashes
	}
	return result, nil
}

type signChunkCommand struct {
	parent *SignCommand
	hashes [][]byte
}

func (c *signChunkCommand) MapError(card *types.Card, err error) error {
	return c.parent.MapError(card, err)
}

func (c *signChunkCommand) Serialize(env *SessionEnvironment) (*apdu.Command, error) {
	hashSize := len(c.hashes[0])
	flattened := make([]byte, 0, hashSize*len(c.hashes))
	for _, h := range c.hashes {
		flattened = append(flattened, h...)
	}

	payload, err := tlv.NewBuilder().
		AppendRaw(tlv.TagPin, env.AccessCode.Value).
		AppendRaw(tlv.TagPin2, env.Passcode.Value).
		Append(tlv.TagCardID, env.Card.CardID).
		AppendRaw(tlv.TagWalletPublicKey, c.parent.walletPublicKey).
		Append(tlv.TagTransactionOutHashSize, byte(hashSize)).
		AppendRaw(tlv.TagTransactionOutHash, flattened).
		AppendRaw(tlv.TagWalletHDPath, c.parent.derivationPath).
		Serialize()
	if err != nil {
		return nil, err
	}
	return apdu.NewCommand(apdu.InsSign, payload), nil
}

func (c *signChunkCommand) Deserialize(env *SessionEnvironment, resp *apdu.Response) (*SignResponse, error) {
	items, err := resp.Tlv()
	if err != nil {
		return nil, err
	}
	d := tlv.NewDecoder(items)

	blob, err := d.Bytes(tlv.TagWalletSignature)
	if err != nil {
		return nil, err
	}
	if len(c.hashes) == 0 || len(blob)%len(c.hashes) != 0 {
		return nil, sdkerrors.NewWithMessage(sdkerrors.CodeCardError,
			"signature blob does not divide evenly across the submitted hashes")
	}
	sigSize := len(blob) / len(c.hashes)
	signatures := make([][]byte, 0, len(c.hashes))
	for offset := 0; offset < len(blob); offset += sigSize {
		signatures = append(signatures, blob[offset:offset+sigSize])
	}

	result := &SignResponse{
		CardID:     d.OptionalString(tlv.TagCardID),
		Signatures: signatures,
	}
	if n, ok := d.OptionalInt(tlv.TagWalletSignedHashes); ok {
		result.TotalSignedHashes = &n
	}
	return result, nil
}
