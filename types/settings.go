package types

// SettingsMask is the raw settings bitset reported by the card.
type SettingsMask uint32

const (
	SettingIsReusable                     SettingsMask = 0x0001
	SettingUseActivation                  SettingsMask = 0x0002
	SettingProhibitPurgeWallet            SettingsMask = 0x0004
	SettingUseBlock                       SettingsMask = 0x0008
	SettingAllowSetAccessCode             SettingsMask = 0x0010
	SettingAllowSetPasscode               SettingsMask = 0x0020
	SettingUseCVC                         SettingsMask = 0x0040
	SettingProhibitDefaultAccessCode      SettingsMask = 0x0080
	SettingUseOneCommandAtTime            SettingsMask = 0x0100
	SettingUseNDEF                        SettingsMask = 0x0200
	SettingUseDynamicNDEF                 SettingsMask = 0x0400
	SettingSmartSecurityDelay             SettingsMask = 0x0800
	SettingAllowUnencrypted               SettingsMask = 0x1000
	SettingAllowFastEncryption            SettingsMask = 0x2000
	SettingProtectIssuerDataAgainstReplay SettingsMask = 0x4000
	SettingAllowSelectBlockchain          SettingsMask = 0x8000
	SettingSkipSecurityDelayIfValidated   SettingsMask = 0x00020000
	SettingSkipCheckPIN2CVCIfValidated    SettingsMask = 0x00040000
	SettingSkipSecurityDelayLinkedTerm    SettingsMask = 0x00080000
	SettingRestrictOverwriteExtraData     SettingsMask = 0x00100000
)

func (m SettingsMask) Contains(flag SettingsMask) bool {
	return m&flag == flag
}

// CardSettings is the decoded view of the settings mask plus the scalar
// settings read alongside it.
type CardSettings struct {
	Mask SettingsMask
	// SecurityDelayMs is the card-enforced delay before protected commands.
	SecurityDelayMs int
	MaxWalletsCount int
}

func (s CardSettings) IsSettingAccessCodeAllowed() bool {
	return s.Mask.Contains(SettingAllowSetAccessCode)
}

func (s CardSettings) IsSettingPasscodeAllowed() bool {
	return s.Mask.Contains(SettingAllowSetPasscode)
}

func (s CardSettings) IsPermanentWallet() bool {
	return s.Mask.Contains(SettingProhibitPurgeWallet)
}

// IsEncryptionAllowed reports whether the card accepts the given link
// encryption mode. Strong encryption is always available.
func (s CardSettings) IsEncryptionAllowed(mode byte) bool {
	switch mode {
	case 0x00:
		return s.Mask.Contains(SettingAllowUnencrypted)
	case 0x01:
		return s.Mask.Contains(SettingAllowFastEncryption)
	default:
		return true
	}
}

func (s CardSettings) IsIssuerDataProtectedAgainstReplay() bool {
	return s.Mask.Contains(SettingProtectIssuerDataAgainstReplay)
}

// WalletSettingsMask is the per-wallet settings bitset on multiwallet
// firmware.
type WalletSettingsMask uint32

const (
	WalletSettingIsReusable          WalletSettingsMask = 0x0001
	WalletSettingProhibitPurgeWallet WalletSettingsMask = 0x0004
)

func (m WalletSettingsMask) Contains(flag WalletSettingsMask) bool {
	return m&flag == flag
}
