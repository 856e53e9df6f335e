package tlv

// Tag identifies a TLV field in command and response payloads.
type Tag byte

const (
	TagUnknown                Tag = 0x00
	TagCardID                 Tag = 0x01
	TagStatus                 Tag = 0x02
	TagCardPublicKey          Tag = 0x03
	TagCardSignature          Tag = 0x04
	TagCurveID                Tag = 0x05
	TagHashAlgID              Tag = 0x06
	TagSigningMethod          Tag = 0x07
	TagMaxSignatures          Tag = 0x08
	TagPauseBeforePin2        Tag = 0x09
	TagSettingsMask           Tag = 0x0A
	TagCardData               Tag = 0x0C
	TagUID                    Tag = 0x0B
	TagHealth                 Tag = 0x0F
	TagPin                    Tag = 0x10
	TagPin2                   Tag = 0x11
	TagNewPin                 Tag = 0x12
	TagNewPin2                Tag = 0x13
	TagPublicKeyChallenge     Tag = 0x14
	TagPublicKeySalt          Tag = 0x15
	TagChallenge              Tag = 0x16
	TagSalt                   Tag = 0x17
	TagValidationCounter      Tag = 0x18
	TagCVC                    Tag = 0x19
	TagSessionKeyA            Tag = 0x1A
	TagSessionKeyB            Tag = 0x1B
	TagPause                  Tag = 0x1C
	TagManufacturerName       Tag = 0x20
	TagManufacturerSignature  Tag = 0x21
	TagInteractionMode        Tag = 0x23
	TagOffset                 Tag = 0x24
	TagSize                   Tag = 0x25
	TagFileIndex              Tag = 0x26
	TagFileSettings           Tag = 0x27
	TagFlash                  Tag = 0x28
	TagLegacyMode             Tag = 0x29
	TagUserData               Tag = 0x2A
	TagUserProtectedData      Tag = 0x2B
	TagUserCounter            Tag = 0x2C
	TagUserProtectedCounter   Tag = 0x2D
	TagIssuerPublicKey        Tag = 0x30
	TagIssuerTxPublicKey      Tag = 0x31
	TagIssuerData             Tag = 0x32
	TagIssuerDataSignature    Tag = 0x33
	TagIssuerTxSignature      Tag = 0x34
	TagIssuerDataCounter      Tag = 0x35
	TagIsActivated            Tag = 0x3A
	TagTransactionOutHash     Tag = 0x50
	TagTransactionOutHashSize Tag = 0x51
	TagWalletPublicKey        Tag = 0x60
	TagWalletSignature        Tag = 0x61
	TagWalletRemainingSigs    Tag = 0x62
	TagWalletSignedHashes     Tag = 0x63
	TagCheckWalletCounter     Tag = 0x64
	TagWalletIndex            Tag = 0x65
	TagWalletsCount           Tag = 0x66
	TagWalletData             Tag = 0x67
	TagWalletInfo             Tag = 0x68
	TagWalletHDPath           Tag = 0x6A
	TagWalletHDChain          Tag = 0x6B
	TagTerminalTxSignature    Tag = 0x57
	TagIsLinked               Tag = 0x58
	TagPin2IsDefault          Tag = 0x59
	TagTerminalPublicKey      Tag = 0x5C
	TagFirmwareVersion        Tag = 0x80
	TagBatchID                Tag = 0x81
	TagManufactureDateTime    Tag = 0x82
	TagIssuerName             Tag = 0x83
	TagBlockchainName         Tag = 0x84
	TagManufacturerPublicKey  Tag = 0x85
	TagCardIDManufacturerSig  Tag = 0x86
	TagProductMask            Tag = 0x8A
)

// ValueType declares how a tag's value bytes are interpreted. Numeric values
// are big-endian with a fixed width per size class.
type ValueType int

const (
	TypeData ValueType = iota
	TypeHexString
	TypeUTF8String
	TypeBool
	TypeByte
	TypeUint16
	TypeUint32
	TypeDateTime
)

var tagTypes = map[Tag]ValueType{
	TagCardID:                 TypeHexString,
	TagStatus:                 TypeByte,
	TagCurveID:                TypeUTF8String,
	TagHashAlgID:              TypeUTF8String,
	TagSigningMethod:          TypeByte,
	TagMaxSignatures:          TypeUint32,
	TagPauseBeforePin2:        TypeUint16,
	TagSettingsMask:           TypeUint32,
	TagHealth:                 TypeByte,
	TagValidationCounter:      TypeUint32,
	TagPause:                  TypeUint16,
	TagManufacturerName:       TypeUTF8String,
	TagInteractionMode:        TypeByte,
	TagOffset:                 TypeUint16,
	TagSize:                   TypeUint16,
	TagFileIndex:              TypeByte,
	TagFileSettings:           TypeUint16,
	TagFlash:                  TypeBool,
	TagLegacyMode:             TypeByte,
	TagUserCounter:            TypeUint32,
	TagUserProtectedCounter:   TypeUint32,
	TagIssuerDataCounter:      TypeUint32,
	TagIsActivated:            TypeBool,
	TagTransactionOutHashSize: TypeByte,
	TagWalletRemainingSigs:    TypeUint32,
	TagWalletSignedHashes:     TypeUint32,
	TagCheckWalletCounter:     TypeUint32,
	TagWalletIndex:            TypeByte,
	TagWalletsCount:           TypeByte,
	TagIsLinked:               TypeBool,
	TagPin2IsDefault:          TypeBool,
	TagFirmwareVersion:        TypeUTF8String,
	TagBatchID:                TypeHexString,
	TagManufactureDateTime:    TypeDateTime,
	TagIssuerName:             TypeUTF8String,
	TagBlockchainName:         TypeUTF8String,
	TagProductMask:            TypeByte,
}

// ValueType returns the declared interpretation for t. Tags absent from the
// table are raw data.
func (t Tag) ValueType() ValueType {
	if vt, ok := tagTypes[t]; ok {
		return vt
	}
	return TypeData
}
