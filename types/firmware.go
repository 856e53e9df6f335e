package types

import (
	"fmt"
	"strconv"
	"strings"
)

// FirmwareType distinguishes production firmware from pre-production
// development builds, which never pass online attestation.
type FirmwareType string

const (
	FirmwareTypeSdk     FirmwareType = "d SDK"
	FirmwareTypeRelease FirmwareType = "r"
	FirmwareTypeSpecial FirmwareType = "special"
)

// FirmwareVersion is the parsed card firmware version, e.g. "4.52d SDK" or
// "3.29r". The non-numeric suffix carries the firmware type.
type FirmwareVersion struct {
	StringValue string
	Major       int
	Minor       int
	HotFix      int
	Type        FirmwareType
}

func ParseFirmwareVersion(raw string) FirmwareVersion {
	cleaned := strings.ReplaceAll(raw, "\x00", "")
	suffix := strings.TrimLeft(cleaned, "0123456789.")
	numeric := strings.TrimSuffix(cleaned, suffix)

	fw := FirmwareVersion{StringValue: cleaned, Type: firmwareType(suffix)}
	parts := strings.Split(numeric, ".")
	if len(parts) > 0 {
		fw.Major, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		fw.Minor, _ = strconv.Atoi(parts[1])
	}
	if len(parts) > 2 {
		fw.HotFix, _ = strconv.Atoi(parts[2])
	}
	return fw
}

func NewFirmwareVersion(major, minor int, fwType FirmwareType) FirmwareVersion {
	return FirmwareVersion{
		StringValue: fmt.Sprintf("%d.%d%s", major, minor, string(fwType)),
		Major:       major,
		Minor:       minor,
		Type:        fwType,
	}
}

func firmwareType(suffix string) FirmwareType {
	switch strings.TrimSpace(strings.ToLower(suffix)) {
	case "d sdk", "d":
		return FirmwareTypeSdk
	case "r", "":
		return FirmwareTypeRelease
	default:
		return FirmwareTypeSpecial
	}
}

// Compare orders versions numerically, ignoring the type suffix.
func (v FirmwareVersion) Compare(other FirmwareVersion) int {
	if v.Major != other.Major {
		return v.Major - other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor - other.Minor
	}
	return v.HotFix - other.HotFix
}

func (v FirmwareVersion) Before(other FirmwareVersion) bool {
	return v.Compare(other) < 0
}

func (v FirmwareVersion) AtLeast(other FirmwareVersion) bool {
	return v.Compare(other) >= 0
}

// Capability thresholds.
var (
	FirmwareMultiwallet = FirmwareVersion{Major: 4, Minor: 0}
	FirmwareHDWallet    = FirmwareVersion{Major: 4, Minor: 28}
	FirmwareFiles       = FirmwareVersion{Major: 3, Minor: 29}
)
