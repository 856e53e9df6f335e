package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFirmwareVersion(t *testing.T) {
	fw := ParseFirmwareVersion("4.52d SDK")
	assert.Equal(t, 4, fw.Major)
	assert.Equal(t, 52, fw.Minor)
	assert.Equal(t, 0, fw.HotFix)
	assert.Equal(t, FirmwareTypeSdk, fw.Type)
	assert.Equal(t, "4.52d SDK", fw.StringValue)

	fw = ParseFirmwareVersion("3.29r")
	assert.Equal(t, 3, fw.Major)
	assert.Equal(t, 29, fw.Minor)
	assert.Equal(t, FirmwareTypeRelease, fw.Type)
}

func TestParseFirmwareVersionEdgeCases(t *testing.T) {
	// the wire value can arrive zero-terminated
	fw := ParseFirmwareVersion("4.12r\x00")
	assert.Equal(t, "4.12r", fw.StringValue)
	assert.Equal(t, FirmwareTypeRelease, fw.Type)

	assert.Equal(t, FirmwareTypeRelease, ParseFirmwareVersion("2.30").Type)
	assert.Equal(t, FirmwareTypeSpecial, ParseFirmwareVersion("4.52mfi").Type)

	fw = ParseFirmwareVersion("1.2.3r")
	assert.Equal(t, 3, fw.HotFix)
}

func TestFirmwareCompare(t *testing.T) {
	v400 := FirmwareVersion{Major: 4, Minor: 0}
	v352 := FirmwareVersion{Major: 3, Minor: 52}
	v428 := FirmwareVersion{Major: 4, Minor: 28}

	assert.True(t, v352.Before(v400))
	assert.True(t, v428.AtLeast(v400))
	assert.True(t, v400.AtLeast(v400))
	assert.Negative(t, v400.Compare(v428))

	// the type suffix never participates in ordering
	sdk := NewFirmwareVersion(4, 0, FirmwareTypeSdk)
	release := NewFirmwareVersion(4, 0, FirmwareTypeRelease)
	assert.Zero(t, sdk.Compare(release))
}

func TestFirmwareHotfixOrdering(t *testing.T) {
	a := FirmwareVersion{Major: 4, Minor: 28, HotFix: 1}
	b := FirmwareVersion{Major: 4, Minor: 28, HotFix: 2}
	assert.True(t, a.Before(b))
}
