package types

// AttestationStatus grades a single attestation check. Lower values are
// worse, so the aggregate status of a report is the minimum of its parts.
type AttestationStatus int

const (
	AttestationFailed AttestationStatus = iota
	AttestationWarning
	AttestationSkipped
	AttestationVerifiedOffline
	AttestationVerified
)

func (s AttestationStatus) String() string {
	switch s {
	case AttestationFailed:
		return "failed"
	case AttestationWarning:
		return "warning"
	case AttestationSkipped:
		return "skipped"
	case AttestationVerifiedOffline:
		return "verifiedOffline"
	case AttestationVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// Attestation is the outcome of the attestation workflow for one card.
type Attestation struct {
	CardKeyAttestation        AttestationStatus
	WalletKeysAttestation     AttestationStatus
	FirmwareAttestation       AttestationStatus
	CardUniquenessAttestation AttestationStatus

	// Index orders trust-cache entries for eviction; assigned when the
	// report is persisted.
	Index int
}

// SkippedAttestation is the neutral starting report: every check skipped.
var SkippedAttestation = Attestation{
	CardKeyAttestation:        AttestationSkipped,
	WalletKeysAttestation:     AttestationSkipped,
	FirmwareAttestation:       AttestationSkipped,
	CardUniquenessAttestation: AttestationSkipped,
}

// Status aggregates the individual checks, worst wins. A report where every
// check was skipped stays skipped rather than counting as verified.
func (a Attestation) Status() AttestationStatus {
	statuses := []AttestationStatus{
		a.CardKeyAttestation,
		a.WalletKeysAttestation,
		a.FirmwareAttestation,
		a.CardUniquenessAttestation,
	}
	allSkipped := true
	worst := AttestationVerified
	for _, s := range statuses {
		if s != AttestationSkipped {
			allSkipped = false
			if s < worst {
				worst = s
			}
		}
	}
	if allSkipped {
		return AttestationSkipped
	}
	return worst
}

// Mode reconstructs which workflow produced this report: wallet checks only
// run in full mode, an online-verified card key means normal, anything else
// is offline. Used to decide whether a cached report is strong enough for
// the requested mode.
func (a Attestation) Mode() AttestationMode {
	if a.WalletKeysAttestation != AttestationSkipped {
		return AttestationModeFull
	}
	if a.CardKeyAttestation == AttestationVerified {
		return AttestationModeNormal
	}
	return AttestationModeOffline
}

// Mode selects how much of the workflow runs. Modes are ordered: a stricter
// mode implies everything a weaker one does.
type AttestationMode int

const (
	// AttestationModeOffline runs the challenge-response check only.
	AttestationModeOffline AttestationMode = iota
	// AttestationModeNormal adds the online manufacturer check.
	AttestationModeNormal
	// AttestationModeFull additionally attests every wallet key.
	AttestationModeFull
)

func (m AttestationMode) String() string {
	switch m {
	case AttestationModeOffline:
		return "offline"
	case AttestationModeNormal:
		return "normal"
	case AttestationModeFull:
		return "full"
	default:
		return "unknown"
	}
}
