package cardsdk

import (
	"context"

	"github.com/status-im/cardsdk-go/attestation"
	"github.com/status-im/cardsdk-go/sdkerrors"
	"github.com/status-im/cardsdk-go/types"
)

// maxWalletCounter is the plausibility bound for wallet usage counters; a
// counter above it marks the wallet check as a warning.
const maxWalletCounter = 100000

// AttestationTask runs the attestation workflow for the preflighted card:
// the offline challenge-response against the card key, in full mode every
// wallet key, and in normal or full mode the online manufacturer check. A
// card that already holds a strong-enough cached report skips the online
// round entirely.
type AttestationTask struct {
	mode     types.AttestationMode
	repo     *attestation.TrustedCardsRepo
	verifier *attestation.OnlineVerifier
}

func NewAttestationTask(mode types.AttestationMode, repo *attestation.TrustedCardsRepo, verifier *attestation.OnlineVerifier) *AttestationTask {
	return &AttestationTask{mode: mode, repo: repo, verifier: verifier}
}

func (t *AttestationTask) Run(ctx context.Context, session *CardSession) (types.Attestation, error) {
	card := session.Card()
	if card == nil {
		return types.Attestation{}, sdkerrors.New(sdkerrors.CodeMissingPreflightRead)
	}

	report := types.SkippedAttestation

	// Offline challenge-response always runs; its failure is final.
	if _, err := Transceive(ctx, session, NewAttestCardKeyCommand()); err != nil {
		if sdkerrors.HasCode(err, sdkerrors.CodeCardVerificationFailed) {
			report.CardKeyAttestation = types.AttestationFailed
		}
		return report, err
	}
	report.CardKeyAttestation = types.AttestationVerifiedOffline

	// A cached report produced by the same or a stricter mode stands in for
	// the rest of the workflow.
	if t.repo != nil {
		if cached, ok := t.repo.Attestation(card.CardPublicKey); ok && cached.Mode() >= t.mode {
			return cached, nil
		}
	}

	if t.mode >= types.AttestationModeFull {
		if err := t.attestWallets(ctx, session, &report); err != nil {
			return report, err
		}
	}
	if t.mode >= types.AttestationModeNormal {
		if err := t.attestOnline(ctx, session, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (t *AttestationTask) attestWallets(ctx context.Context, session *CardSession, report *types.Attestation) error {
	card := session.Card()
	if len(card.Wallets) == 0 {
		return nil
	}

	warning := false
	for _, wallet := range card.Wallets {
		if wallet.TotalSignedHashes != nil && *wallet.TotalSignedHashes > maxWalletCounter {
			warning = true
		}
	}
	for _, wallet := range card.Wallets {
		if wallet.Status != types.WalletStatusLoaded {
			continue
		}
		resp, err := Transceive(ctx, session, NewAttestWalletKeyCommand(wallet.PublicKey))
		if err != nil {
			if sdkerrors.HasCode(err, sdkerrors.CodeCardVerificationFailed) {
				report.WalletKeysAttestation = types.AttestationFailed
			}
			return err
		}
		if resp.Counter != nil && *resp.Counter > maxWalletCounter {
			warning = true
		}
	}

	if warning {
		report.WalletKeysAttestation = types.AttestationWarning
	} else {
		report.WalletKeysAttestation = types.AttestationVerified
	}
	return nil
}

func (t *AttestationTask) attestOnline(ctx context.Context, session *CardSession, report *types.Attestation) error {
	card := session.Card()

	// Development firmware is absent from the manufacturer database; its
	// offline verdict is the best achievable.
	if card.FirmwareVersion.Type != types.FirmwareTypeRelease {
		return nil
	}
	if t.verifier == nil {
		return nil
	}

	// The card has nothing to contribute to the network round; release the
	// field while it runs.
	session.Pause("")
	_, err := t.verifier.GetCardInfo(ctx, card.CardID, card.CardPublicKey)
	session.Resume()

	if err != nil {
		if sdkerrors.HasCode(err, sdkerrors.CodeCardVerificationFailed) {
			// The service answered and the key is not in the database.
			report.CardKeyAttestation = types.AttestationFailed
			return sdkerrors.New(sdkerrors.CodeCardVerificationFailed)
		}
		// Unreachable service: degrade to the offline verdict, never
		// upgrade to verified.
		return nil
	}

	report.CardKeyAttestation = types.AttestationVerified
	report.FirmwareAttestation = types.AttestationVerified
	report.CardUniquenessAttestation = types.AttestationVerified
	if t.repo != nil {
		if err := t.repo.Append(card.CardPublicKey, *report); err != nil {
			return err
		}
	}
	return nil
}
