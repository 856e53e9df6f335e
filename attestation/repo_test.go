package attestation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/status-im/cardsdk-go/types"
)

type memStorage struct {
	blob []byte
}

func (s *memStorage) Load() ([]byte, error) { return s.blob, nil }
func (s *memStorage) Save(blob []byte) error {
	s.blob = blob
	return nil
}

func verifiedReport() types.Attestation {
	return types.Attestation{
		CardKeyAttestation:        types.AttestationVerified,
		WalletKeysAttestation:     types.AttestationVerified,
		FirmwareAttestation:       types.AttestationVerified,
		CardUniquenessAttestation: types.AttestationSkipped,
	}
}

func TestRepoAppendAndLookup(t *testing.T) {
	repo := NewTrustedCardsRepo(nil)
	key := []byte{0x04, 0x01, 0x02}

	_, ok := repo.Attestation(key)
	assert.False(t, ok)

	require.NoError(t, repo.Append(key, verifiedReport()))

	cached, ok := repo.Attestation(key)
	require.True(t, ok)
	assert.Equal(t, types.AttestationVerified, cached.CardKeyAttestation)
	assert.Equal(t, types.AttestationSkipped, cached.CardUniquenessAttestation)
	assert.Equal(t, 0, cached.Index)
}

func TestRepoReplaceKeepsIndex(t *testing.T) {
	repo := NewTrustedCardsRepo(nil)
	first := []byte{0x01}
	second := []byte{0x02}

	require.NoError(t, repo.Append(first, verifiedReport()))
	require.NoError(t, repo.Append(second, verifiedReport()))

	weaker := verifiedReport()
	weaker.CardKeyAttestation = types.AttestationVerifiedOffline
	require.NoError(t, repo.Append(first, weaker))

	cached, ok := repo.Attestation(first)
	require.True(t, ok)
	assert.Equal(t, types.AttestationVerifiedOffline, cached.CardKeyAttestation)
	assert.Equal(t, 0, cached.Index)
}

func TestRepoEvictsOldest(t *testing.T) {
	repo := NewTrustedCardsRepo(nil)
	for i := 0; i < maxCards; i++ {
		require.NoError(t, repo.Append([]byte(fmt.Sprintf("card-%04d", i)), verifiedReport()))
	}

	// the cache is full; the next new card pushes out card-0000
	require.NoError(t, repo.Append([]byte("one-more"), verifiedReport()))

	_, ok := repo.Attestation([]byte("card-0000"))
	assert.False(t, ok)
	_, ok = repo.Attestation([]byte("card-0001"))
	assert.True(t, ok)
	_, ok = repo.Attestation([]byte("one-more"))
	assert.True(t, ok)
}

func TestRepoPersistence(t *testing.T) {
	storage := &memStorage{}
	repo := NewTrustedCardsRepo(storage)
	key := []byte{0xCA, 0xFE}

	require.NoError(t, repo.Append(key, verifiedReport()))
	require.NotEmpty(t, storage.blob)

	reloaded := NewTrustedCardsRepo(storage)
	cached, ok := reloaded.Attestation(key)
	require.True(t, ok)
	assert.Equal(t, types.AttestationVerified, cached.CardKeyAttestation)

	// a new card in the reloaded repo continues the index sequence
	require.NoError(t, reloaded.Append([]byte{0xBE, 0xEF}, verifiedReport()))
	next, ok := reloaded.Attestation([]byte{0xBE, 0xEF})
	require.True(t, ok)
	assert.Equal(t, 1, next.Index)
}

func TestRepoToleratesCorruptBlob(t *testing.T) {
	repo := NewTrustedCardsRepo(&memStorage{blob: []byte("not cbor at all")})

	_, ok := repo.Attestation([]byte{0x01})
	assert.False(t, ok)
	assert.NoError(t, repo.Append([]byte{0x01}, verifiedReport()))
}
