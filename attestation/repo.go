// Package attestation holds the host-side attestation state: the trust cache
// of previously verified cards and the online manufacturer check.
package attestation

import (
	"crypto/sha256"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/types"
)

// maxCards bounds the trust cache. The oldest entry (smallest index) is
// evicted first.
const maxCards = 1000

// Storage persists the serialized cache between sessions. Implementations
// return a nil blob when nothing is stored yet.
type Storage interface {
	Load() ([]byte, error)
	Save(blob []byte) error
}

type entry struct {
	CardKey        types.AttestationStatus `cbor:"1,keyasint"`
	WalletKeys     types.AttestationStatus `cbor:"2,keyasint"`
	Firmware       types.AttestationStatus `cbor:"3,keyasint"`
	CardUniqueness types.AttestationStatus `cbor:"4,keyasint"`
	Index          int                     `cbor:"5,keyasint"`
}

// TrustedCardsRepo caches attestation reports keyed by the sha256 of the
// card public key, so a card that already passed the online check is not
// re-verified on every tap.
type TrustedCardsRepo struct {
	storage Storage

	mu    sync.RWMutex
	cards map[[32]byte]entry
	index int
}

// NewTrustedCardsRepo loads the persisted cache. A missing or corrupt blob
// starts the cache empty rather than failing the session.
func NewTrustedCardsRepo(storage Storage) *TrustedCardsRepo {
	r := &TrustedCardsRepo{storage: storage, cards: map[[32]byte]entry{}}
	if storage == nil {
		return r
	}
	blob, err := storage.Load()
	if err != nil || len(blob) == 0 {
		return r
	}
	var stored map[[32]byte]entry
	if cbor.Unmarshal(blob, &stored) != nil {
		return r
	}
	r.cards = stored
	for _, e := range stored {
		if e.Index >= r.index {
			r.index = e.Index + 1
		}
	}
	return r
}

// Attestation returns the cached report for a card public key, or false.
func (r *TrustedCardsRepo) Attestation(cardPublicKey []byte) (types.Attestation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cards[sha256.Sum256(cardPublicKey)]
	if !ok {
		return types.Attestation{}, false
	}
	return types.Attestation{
		CardKeyAttestation:        e.CardKey,
		WalletKeysAttestation:     e.WalletKeys,
		FirmwareAttestation:       e.Firmware,
		CardUniquenessAttestation: e.CardUniqueness,
		Index:                     e.Index,
	}, true
}

// Append stores a report for a card. A report for a known card replaces the
// cached one in place; a new card takes the next index, evicting the oldest
// entry when the cache is full. Only fully verified reports are worth
// caching, but that policy belongs to the caller.
func (r *TrustedCardsRepo) Append(cardPublicKey []byte, a types.Attestation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sha256.Sum256(cardPublicKey)
	e := entry{
		CardKey:        a.CardKeyAttestation,
		WalletKeys:     a.WalletKeysAttestation,
		Firmware:       a.FirmwareAttestation,
		CardUniqueness: a.CardUniquenessAttestation,
	}
	if existing, ok := r.cards[key]; ok {
		e.Index = existing.Index
	} else {
		e.Index = r.index
		r.index++
		if len(r.cards) >= maxCards {
			r.evictOldestLocked()
		}
	}
	r.cards[key] = e
	return r.saveLocked()
}

func (r *TrustedCardsRepo) evictOldestLocked() {
	var oldestKey [32]byte
	oldest := -1
	for k, e := range r.cards {
		if oldest == -1 || e.Index < oldest {
			oldest = e.Index
			oldestKey = k
		}
	}
	if oldest != -1 {
		delete(r.cards, oldestKey)
	}
}

func (r *TrustedCardsRepo) saveLocked() error {
	if r.storage == nil {
		return nil
	}
	blob, err := cbor.Marshal(r.cards)
	if err != nil {
		return sdkerrors.Wrap(sdkerrors.CodeEncodingFailed, err)
	}
	return r.storage.Save(blob)
}
