package cardsdk

import (
	"github.com/status-im/cardsdk-go/apdu"
	"github.com/status-im/cardsdk-go/crypto"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/tlv"
)

// encryptionHelper produces the host's key contribution for the open-session
// exchange and combines it with the card's reply into the shared secret.
type encryptionHelper interface {
	keyA() []byte
	secret(keyB []byte) ([]byte, error)
}

// fastEncryptionHelper contributes 16 random bytes; the secret is the plain
// concatenation of both contributions. Cheaper than ECDH, resists passive
// observers only.
type fastEncryptionHelper struct {
	a []byte
}

func newFastEncryptionHelper() (*fastEncryptionHelper, error) {
	a, err := crypto.GenerateRandomBytes(16)
	if err != nil {
		return nil, err
	}
	return &fastEncryptionHelper{a: a}, nil
}

func (h *fastEncryptionHelper) keyA() []byte { return h.a }

func (h *fastEncryptionHelper) secret(keyB []byte) ([]byte, error) {
	return append(append([]byte{}, h.a...), keyB...), nil
}

// strongEncryptionHelper runs ephemeral secp256k1 ECDH.
type strongEncryptionHelper struct {
	pair crypto.KeyPair
}

func newStrongEncryptionHelper() (*strongEncryptionHelper, error) {
	pair, err := crypto.GenerateSecp256k1KeyPair()
	if err != nil {
		return nil, err
	}
	return &strongEncryptionHelper{pair: pair}, nil
}

func (h *strongEncryptionHelper) keyA() []byte { return h.pair.PublicKey }

func (h *strongEncryptionHelper) secret(keyB []byte) ([]byte, error) {
	return crypto.Secp256k1SharedSecret(h.pair.PrivateKey, keyB)
}

func newEncryptionHelper(mode EncryptionMode) (encryptionHelper, error) {
	switch mode {
	case EncryptionModeFast:
		return newFastEncryptionHelper()
	case EncryptionModeStrong:
		return newStrongEncryptionHelper()
	default:
		return nil, sdkerrors.New(sdkerrors.CodeFailedToEstablishEncryption)
	}
}

// openSessionResponse carries the card's key contribution and, on readers
// that do not expose it out of band, the tag UID.
type openSessionResponse struct {
	sessionKeyB []byte
	uid         []byte
}

// openSessionCommand negotiates the symmetric session key. It is always sent
// in clear, before any encryption is active.
type openSessionCommand struct {
	sessionKeyA []byte
	mode        EncryptionMode
}

func (c *openSessionCommand) runsWithoutPreflight() {}

func (c *openSessionCommand) Serialize(env *SessionEnvironment) (*apdu.Command, error) {
	payload, err := tlv.NewBuilder().
		AppendRaw(tlv.TagSessionKeyA, c.sessionKeyA).
		Append(tlv.TagInteractionMode, byte(c.mode)).
		Serialize()
	if err != nil {
		return nil, err
	}
	return apdu.NewCommand(apdu.InsOpenSession, payload), nil
}

func (c *openSessionCommand) Deserialize(env *SessionEnvironment, resp *apdu.Response) (*openSessionResponse, error) {
	items, err := resp.Tlv()
	if err != nil {
		return nil, err
	}
	d := tlv.NewDecoder(items)
	keyB, err := d.Bytes(tlv.TagSessionKeyB)
	if err != nil {
		return nil, err
	}
	return &openSessionResponse{
		sessionKeyB: keyB,
		uid:         d.OptionalBytes(tlv.TagUID),
	}, nil
}
