package types

import "time"

// Card is the aggregate snapshot read from the device during preflight.
// It is a value: callers never mutate fields in place, the session replaces
// the whole snapshot on each read and preserves the discovered card id.
type Card struct {
	// CardID is the unique card number printed on the card.
	CardID string
	// BatchID is the manufacturing batch.
	BatchID string
	// CardPublicKey authenticates the card against the manufacturer's
	// database. Generated once during manufacturing.
	CardPublicKey   []byte
	FirmwareVersion FirmwareVersion
	Manufacturer    Manufacturer
	Issuer          Issuer
	Settings        CardSettings
	// IsPasscodeSet is nil for firmware that does not report it.
	IsPasscodeSet   *bool
	SupportedCurves []EllipticCurve
	Wallets         []Wallet

	// Health is non-zero when the card reports hardware problems.
	Health int
}

type Manufacturer struct {
	Name            string
	ManufactureDate time.Time
	Signature       []byte
}

type Issuer struct {
	Name      string
	PublicKey []byte
}

// Wallet is one key slot on the card.
type Wallet struct {
	PublicKey []byte
	ChainCode []byte
	Curve     EllipticCurve
	Status    WalletStatus
	Index     int
	// Settings bit: whether the wallet key can be purged.
	IsPermanent bool
	// TotalSignedHashes counts signatures ever made with this key; an
	// implausibly high value is an attestation warning.
	TotalSignedHashes *int
	// RemainingSignatures is reported by pre-4.0 firmware only.
	RemainingSignatures *int
	// DerivedKeys caches keys the card derived for known paths.
	DerivedKeys map[string][]byte
}

type WalletStatus byte

const (
	WalletStatusEmpty  WalletStatus = 1
	WalletStatusLoaded WalletStatus = 2
	WalletStatusPurged WalletStatus = 3
)

// WalletByPublicKey returns the wallet holding the given key, or nil.
func (c *Card) WalletByPublicKey(publicKey []byte) *Wallet {
	for i := range c.Wallets {
		if string(c.Wallets[i].PublicKey) == string(publicKey) {
			return &c.Wallets[i]
		}
	}
	return nil
}

// WithWallets returns a copy of the snapshot with the wallet list replaced.
// The card id and every other field are preserved, keeping the wrong-card
// invariant intact across a multi-command session.
func (c Card) WithWallets(wallets []Wallet) Card {
	c.Wallets = wallets
	return c
}
