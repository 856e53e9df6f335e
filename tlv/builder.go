package tlv

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/status-im/cardsdk-go/sdkerrors"
)

// Builder assembles a TLV payload, converting typed values to the wire form
// declared by each tag. The first conversion error is remembered and returned
// by Serialize, so appends chain without per-call checks.
type Builder struct {
	items Tlvs
	err   error
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Append converts value according to tag's declared value type. Supported
// inputs: []byte, string, bool, int, uint32, byte, time.Time. A nil []byte
// or empty value is skipped entirely, which lets callers append optional
// fields unconditionally.
func (b *Builder) Append(tag Tag, value any) *Builder {
	if b.err != nil {
		return b
	}
	if value == nil {
		return b
	}

	encoded, err := encodeValue(tag, value)
	if err != nil {
		b.err = err
		return b
	}
	if encoded == nil {
		return b
	}
	b.items = append(b.items, Tlv{Tag: tag, Value: encoded})
	return b
}

// AppendRaw appends value bytes without conversion. Nil values are skipped.
func (b *Builder) AppendRaw(tag Tag, value []byte) *Builder {
	if b.err != nil || value == nil {
		return b
	}
	b.items = append(b.items, Tlv{Tag: tag, Value: value})
	return b
}

func (b *Builder) Serialize() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return Encode(b.items), nil
}

func encodeValue(tag Tag, value any) ([]byte, error) {
	switch tag.ValueType() {
	case TypeHexString:
		s, ok := value.(string)
		if !ok {
			if raw, isRaw := value.([]byte); isRaw {
				return raw, nil
			}
			return nil, typeMismatch(tag, "string", value)
		}
		decoded, err := hex.DecodeString(s)
		if err != nil {
			return nil, sdkerrors.NewWithMessage(sdkerrors.CodeEncodingFailed,
				fmt.Sprintf("tag %#x: invalid hex string", byte(tag)))
		}
		return decoded, nil

	case TypeUTF8String:
		s, ok := value.(string)
		if !ok {
			return nil, typeMismatch(tag, "string", value)
		}
		return append([]byte(s), 0x00), nil

	case TypeBool:
		v, ok := value.(bool)
		if !ok {
			return nil, typeMismatch(tag, "bool", value)
		}
		if !v {
			// Booleans are presence-encoded: absent means false.
			return nil, nil
		}
		return []byte{0x01}, nil

	case TypeByte:
		switch v := value.(type) {
		case byte:
			return []byte{v}, nil
		case int:
			if v < 0 || v > 0xFF {
				return nil, typeMismatch(tag, "byte", value)
			}
			return []byte{byte(v)}, nil
		default:
			return nil, typeMismatch(tag, "byte", value)
		}

	case TypeUint16:
		v, err := toUint(tag, value, 1<<16-1)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 2)
		binary.BigEndian.PutUint16(out, uint16(v))
		return out, nil

	case TypeUint32:
		v, err := toUint(tag, value, 1<<32-1)
		if err != nil {
			return nil, err
		}
		out := make([]byte, 4)
		binary.BigEndian.PutUint32(out, uint32(v))
		return out, nil

	case TypeDateTime:
		t, ok := value.(time.Time)
		if !ok {
			return nil, typeMismatch(tag, "time.Time", value)
		}
		out := make([]byte, 4)
		binary.BigEndian.PutUint16(out, uint16(t.Year()))
		out[2] = byte(t.Month())
		out[3] = byte(t.Day())
		return out, nil

	default: // TypeData
		raw, ok := value.([]byte)
		if !ok {
			return nil, typeMismatch(tag, "[]byte", value)
		}
		return raw, nil
	}
}

func toUint(tag Tag, value any, max uint64) (uint64, error) {
	var v uint64
	switch n := value.(type) {
	case int:
		if n < 0 {
			return 0, typeMismatch(tag, "unsigned integer", value)
		}
		v = uint64(n)
	case uint16:
		v = uint64(n)
	case uint32:
		v = uint64(n)
	case uint64:
		v = n
	default:
		return 0, typeMismatch(tag, "unsigned integer", value)
	}
	if v > max {
		return 0, sdkerrors.NewWithMessage(sdkerrors.CodeEncodingFailed,
			fmt.Sprintf("tag %#x: value %d out of range", byte(tag), v))
	}
	return v, nil
}

func typeMismatch(tag Tag, want string, got any) error {
	return sdkerrors.NewWithMessage(sdkerrors.CodeEncodingFailedTypeMismatch,
		fmt.Sprintf("tag %#x: expected %s, got %T", byte(tag), want, got))
}
