// Package tlv implements the tag-length-value encoding used in command and
// response payloads. Records are flat (no nesting). The length is one byte
// for values up to 0xFE bytes; longer values use a 0xFF marker followed by a
// big-endian uint16.
package tlv

import (
	"bytes"
	"encoding/binary"

	"github.com/status-im/cardsdk-go/sdkerrors"
)

const longLengthMarker = 0xFF

// Tlv is a single tag-length-value record. Immutable once constructed.
type Tlv struct {
	Tag   Tag
	Value []byte
}

func New(tag Tag, value []byte) Tlv {
	return Tlv{Tag: tag, Value: value}
}

// Serialize appends the record's wire form to buf.
func (t Tlv) Serialize(buf *bytes.Buffer) {
	buf.WriteByte(byte(t.Tag))
	length := len(t.Value)
	if length > 0xFE {
		buf.WriteByte(longLengthMarker)
		var l [2]byte
		binary.BigEndian.PutUint16(l[:], uint16(length))
		buf.Write(l[:])
	} else {
		buf.WriteByte(byte(length))
	}
	buf.Write(t.Value)
}

// Tlvs is an ordered record set. Ordering is insertion order; duplicate tags
// are allowed and lookup returns the first match.
type Tlvs []Tlv

// Encode serializes the record set to its wire form.
func Encode(items Tlvs) []byte {
	var buf bytes.Buffer
	for _, item := range items {
		item.Serialize(&buf)
	}
	return buf.Bytes()
}

// Decode scans data sequentially into records. A truncated stream or a
// declared length overrunning the buffer fails with deserializeApduFailed.
func Decode(data []byte) (Tlvs, error) {
	var items Tlvs
	for offset := 0; offset < len(data); {
		tag := Tag(data[offset])
		offset++

		if offset >= len(data) {
			return nil, sdkerrors.New(sdkerrors.CodeDeserializeAPDUFailed)
		}
		length := int(data[offset])
		offset++
		if length == longLengthMarker {
			if offset+2 > len(data) {
				return nil, sdkerrors.New(sdkerrors.CodeDeserializeAPDUFailed)
			}
			length = int(binary.BigEndian.Uint16(data[offset : offset+2]))
			offset += 2
		}

		if offset+length > len(data) {
			return nil, sdkerrors.New(sdkerrors.CodeDeserializeAPDUFailed)
		}
		value := make([]byte, length)
		copy(value, data[offset:offset+length])
		offset += length

		items = append(items, Tlv{Tag: tag, Value: value})
	}
	return items, nil
}

// Value returns the value of the first record with the given tag.
func (items Tlvs) Value(tag Tag) ([]byte, bool) {
	for _, item := range items {
		if item.Tag == tag {
			return item.Value, true
		}
	}
	return nil, false
}

// Items returns all records with the given tag, in order.
func (items Tlvs) Items(tag Tag) Tlvs {
	var found Tlvs
	for _, item := range items {
		if item.Tag == tag {
			found = append(found, item)
		}
	}
	return found
}

func (items Tlvs) Contains(tag Tag) bool {
	_, ok := items.Value(tag)
	return ok
}
