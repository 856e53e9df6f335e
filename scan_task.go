package cardsdk

import (
	"context"

	"github.com/status-im/cardsdk-go/attestation"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/types"
)

// ScanResult is the full picture of a tapped card: the snapshot, its wallet
// list and the attestation verdict.
type ScanResult struct {
	Card        *types.Card
	Attestation types.Attestation
}

// ScanTask is the usual first contact with an unknown card: it fills in the
// wallet list on multiwallet firmware and runs attestation in the session's
// configured mode.
type ScanTask struct {
	repo     *attestation.TrustedCardsRepo
	verifier *attestation.OnlineVerifier
}

func NewScanTask(repo *attestation.TrustedCardsRepo, verifier *attestation.OnlineVerifier) *ScanTask {
	return &ScanTask{repo: repo, verifier: verifier}
}

func (t *ScanTask) Run(ctx context.Context, session *CardSession) (*ScanResult, error) {
	card := session.Card()
	if card == nil {
		return nil, sdkerrors.New(sdkerrors.CodeMissingPreflightRead)
	}

	if card.FirmwareVersion.AtLeast(types.FirmwareMultiwallet) {
		wallets, err := Transceive(ctx, session, NewReadWalletsListCommand())
		if err != nil {
			return nil, err
		}
		updated := card.WithWallets(wallets)
		card = &updated
		session.setCard(card)
	}

	task := NewAttestationTask(session.Environment().Config.AttestationMode, t.repo, t.verifier)
	report, err := task.Run(ctx, session)
	if err != nil {
		return nil, err
	}
	return &ScanResult{Card: card, Attestation: report}, nil
}
