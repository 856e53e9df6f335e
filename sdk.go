package cardsdk

import (
	"context"

	"github.com/status-im/cardsdk-go/attestation"
	"github.com/status-im/cardsdk-go/transport"
	"github.com/status-im/cardsdk-go/types"
)

// SDK is the entry point: it holds the reader, the resolved configuration
// and the attestation state shared by every session it opens.
type SDK struct {
	reader   transport.Transport
	config   Config
	delegate ViewDelegate

	trustedCards *attestation.TrustedCardsRepo
	verifier     *attestation.OnlineVerifier
}

// New builds an SDK over a reader. storage persists the trust cache between
// runs; nil keeps it in memory only.
func New(reader transport.Transport, config Config, storage attestation.Storage) *SDK {
	return &SDK{
		reader:       reader,
		config:       config,
		delegate:     NoopViewDelegate{},
		trustedCards: attestation.NewTrustedCardsRepo(storage),
		verifier:     attestation.NewOnlineVerifier(),
	}
}

// SetViewDelegate installs a delegate for sessions opened afterwards.
func (s *SDK) SetViewDelegate(delegate ViewDelegate) {
	if delegate == nil {
		delegate = NoopViewDelegate{}
	}
	s.delegate = delegate
}

// StartSession opens a session pinned to cardID (empty accepts any card) and
// performs the preflight read. The caller owns the returned session and must
// Stop it.
func (s *SDK) StartSession(ctx context.Context, cardID, message string) (*CardSession, error) {
	session := NewCardSession(SessionOptions{
		Reader:         s.reader,
		Delegate:       s.delegate,
		Config:         s.config,
		ExpectedCardID: cardID,
		InitialMessage: message,
	})
	if err := session.Start(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

// Scan taps a card, reads it fully and attests it, in one self-contained
// session.
func (s *SDK) Scan(ctx context.Context, message string) (*ScanResult, error) {
	session, err := s.StartSession(ctx, "", message)
	if err != nil {
		return nil, err
	}
	defer session.Stop()

	return NewScanTask(s.trustedCards, s.verifier).Run(ctx, session)
}

// Sign signs hashes with a wallet key of the card identified by cardID.
func (s *SDK) Sign(ctx context.Context, cardID string, walletPublicKey []byte, hashes [][]byte) (*SignResponse, error) {
	session, err := s.StartSession(ctx, cardID, "")
	if err != nil {
		return nil, err
	}
	defer session.Stop()

	if session.Card().FirmwareVersion.AtLeast(types.FirmwareMultiwallet) {
		wallets, err := Transceive(ctx, session, NewReadWalletsListCommand())
		if err != nil {
			return nil, err
		}
		updated := session.Card().WithWallets(wallets)
		session.setCard(&updated)
	}
	return NewSignCommand(walletPublicKey, hashes).Run(ctx, session)
}

// CreateWallet generates a wallet on the card identified by cardID.
func (s *SDK) CreateWallet(ctx context.Context, cardID string, curve types.EllipticCurve) (*CreateWalletResponse, error) {
	session, err := s.StartSession(ctx, cardID, "")
	if err != nil {
		return nil, err
	}
	defer session.Stop()

	return Transceive(ctx, session, NewCreateWalletCommand(curve))
}
