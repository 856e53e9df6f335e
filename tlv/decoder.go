package tlv

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/status-im/cardsdk-go/sdkerrors"
)

// Decoder reads typed values out of a decoded record set. Missing required
// tags fail with decodingFailedMissingTag; use the Optional variants for
// fields a card may omit.
type Decoder struct {
	items Tlvs
}

func NewDecoder(items Tlvs) *Decoder {
	return &Decoder{items: items}
}

func (d *Decoder) Contains(tag Tag) bool {
	return d.items.Contains(tag)
}

func (d *Decoder) Bytes(tag Tag) ([]byte, error) {
	value, ok := d.items.Value(tag)
	if !ok {
		return nil, missingTag(tag)
	}
	return value, nil
}

func (d *Decoder) OptionalBytes(tag Tag) []byte {
	value, _ := d.items.Value(tag)
	return value
}

func (d *Decoder) String(tag Tag) (string, error) {
	value, ok := d.items.Value(tag)
	if !ok {
		return "", missingTag(tag)
	}
	return decodeString(tag, value)
}

func (d *Decoder) OptionalString(tag Tag) string {
	value, ok := d.items.Value(tag)
	if !ok {
		return ""
	}
	s, err := decodeString(tag, value)
	if err != nil {
		return ""
	}
	return s
}

// Int decodes a big-endian unsigned value of up to 8 bytes.
func (d *Decoder) Int(tag Tag) (int, error) {
	value, ok := d.items.Value(tag)
	if !ok {
		return 0, missingTag(tag)
	}
	return decodeInt(tag, value)
}

func (d *Decoder) OptionalInt(tag Tag) (int, bool) {
	value, ok := d.items.Value(tag)
	if !ok {
		return 0, false
	}
	n, err := decodeInt(tag, value)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (d *Decoder) Byte(tag Tag) (byte, error) {
	value, ok := d.items.Value(tag)
	if !ok {
		return 0, missingTag(tag)
	}
	if len(value) != 1 {
		return 0, sdkerrors.NewWithMessage(sdkerrors.CodeDecodingFailedTypeMismatch,
			fmt.Sprintf("tag %#x: expected a single byte, got %d", byte(tag), len(value)))
	}
	return value[0], nil
}

// Bool is presence-encoded: a missing tag decodes to false.
func (d *Decoder) Bool(tag Tag) bool {
	return d.items.Contains(tag)
}

func (d *Decoder) Date(tag Tag) (time.Time, error) {
	value, ok := d.items.Value(tag)
	if !ok {
		return time.Time{}, missingTag(tag)
	}
	if len(value) != 4 {
		return time.Time{}, sdkerrors.NewWithMessage(sdkerrors.CodeDecodingFailed,
			fmt.Sprintf("tag %#x: invalid date length %d", byte(tag), len(value)))
	}
	year := int(binary.BigEndian.Uint16(value[:2]))
	return time.Date(year, time.Month(value[2]), int(value[3]), 0, 0, 0, 0, time.UTC), nil
}

func decodeString(tag Tag, value []byte) (string, error) {
	switch tag.ValueType() {
	case TypeHexString:
		return strings.ToUpper(hex.EncodeToString(value)), nil
	default:
		trimmed := bytes.TrimRight(value, "\x00")
		return string(trimmed), nil
	}
}

func decodeInt(tag Tag, value []byte) (int, error) {
	if len(value) > 8 {
		return 0, sdkerrors.NewWithMessage(sdkerrors.CodeDecodingFailedTypeMismatch,
			fmt.Sprintf("tag %#x: numeric value too wide (%d bytes)", byte(tag), len(value)))
	}
	var n uint64
	for _, b := range value {
		n = n<<8 | uint64(b)
	}
	return int(n), nil
}

func missingTag(tag Tag) error {
	return sdkerrors.NewWithMessage(sdkerrors.CodeDecodingFailedMissingTag,
		fmt.Sprintf("missing tag %#x", byte(tag)))
}
