// Package canon implements the canonical discriminated encoding for
// derivation keys.
//
// Every key value encodes as a one-byte type tag followed by a
// type-specific payload. The encoding is injective across kinds and
// values: two keys of different kinds never share an encoding, and the
// same bytes presented as Bytes, String, and Ascii encode differently.
//
// Contract:
// - Encoding MUST be deterministic (no maps, no wall-clock, no randomness).
// - Integers are fixed-width little-endian.
// - Variable-length payloads carry an unsigned-varint length prefix.
// - Vector payloads hoist the element tag: elements encode without their
//   own per-element tags.
package canon

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/multiformats/go-varint"
)

// Tag discriminates key kinds on the wire.
type Tag uint8

const (
	TagBool    Tag = 0x01
	TagU8      Tag = 0x02
	TagU16     Tag = 0x03
	TagU32     Tag = 0x04
	TagU64     Tag = 0x05
	TagAddress Tag = 0x10
	TagString  Tag = 0x11
	TagAscii   Tag = 0x12
	TagVector  Tag = 0x20
)

func (t Tag) String() string {
	switch t {
	case TagBool:
		return "bool"
	case TagU8:
		return "u8"
	case TagU16:
		return "u16"
	case TagU32:
		return "u32"
	case TagU64:
		return "u64"
	case TagAddress:
		return "address"
	case TagString:
		return "string"
	case TagAscii:
		return "ascii"
	case TagVector:
		return "vector"
	default:
		return fmt.Sprintf("tag(0x%02x)", uint8(t))
	}
}

// Value is a key that can be canonically encoded.
//
// The implementation set is closed: values are built only through the
// constructors in this package, which perform all validation up front.
type Value interface {
	Tag() Tag

	// appendBody appends the payload without the leading kind tag.
	appendBody(dst []byte) []byte
}

// Encode returns the canonical encoding of v: kind tag plus payload.
func Encode(v Value) []byte {
	return Append(nil, v)
}

// Append appends the canonical encoding of v to dst.
func Append(dst []byte, v Value) []byte {
	dst = append(dst, byte(v.Tag()))
	return v.appendBody(dst)
}

type boolValue bool

func Bool(b bool) Value { return boolValue(b) }

func (boolValue) Tag() Tag { return TagBool }

func (v boolValue) appendBody(dst []byte) []byte {
	if v {
		return append(dst, 1)
	}
	return append(dst, 0)
}

type u8Value uint8

func U8(x uint8) Value { return u8Value(x) }

func (u8Value) Tag() Tag { return TagU8 }

func (v u8Value) appendBody(dst []byte) []byte { return append(dst, byte(v)) }

type u16Value uint16

func U16(x uint16) Value { return u16Value(x) }

func (u16Value) Tag() Tag { return TagU16 }

func (v u16Value) appendBody(dst []byte) []byte {
	return binary.LittleEndian.AppendUint16(dst, uint16(v))
}

type u32Value uint32

func U32(x uint32) Value { return u32Value(x) }

func (u32Value) Tag() Tag { return TagU32 }

func (v u32Value) appendBody(dst []byte) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(v))
}

type u64Value uint64

func U64(x uint64) Value { return u64Value(x) }

func (u64Value) Tag() Tag { return TagU64 }

func (v u64Value) appendBody(dst []byte) []byte {
	return binary.LittleEndian.AppendUint64(dst, uint64(v))
}

type addrValue [32]byte

// Addr wraps a 32-byte identifier as a key value.
func Addr(a [32]byte) Value { return addrValue(a) }

func (addrValue) Tag() Tag { return TagAddress }

func (v addrValue) appendBody(dst []byte) []byte { return append(dst, v[:]...) }

type stringValue string

// String wraps a UTF-8 string as a key value. Invalid UTF-8 is rejected.
func String(s string) (Value, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("canon: string key is not valid UTF-8")
	}
	return stringValue(s), nil
}

func (stringValue) Tag() Tag { return TagString }

func (v stringValue) appendBody(dst []byte) []byte {
	dst = append(dst, varint.ToUvarint(uint64(len(v)))...)
	return append(dst, v...)
}

type asciiValue string

// Ascii wraps a 7-bit ASCII string as a key value. Bytes >= 0x80 are
// rejected so the ascii kind stays a strict subset of string payloads
// while remaining a distinct kind on the wire.
func Ascii(s string) (Value, error) {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return nil, fmt.Errorf("canon: ascii key contains non-ASCII byte 0x%02x at offset %d", s[i], i)
		}
	}
	return asciiValue(s), nil
}

func (asciiValue) Tag() Tag { return TagAscii }

func (v asciiValue) appendBody(dst []byte) []byte {
	dst = append(dst, varint.ToUvarint(uint64(len(v)))...)
	return append(dst, v...)
}

type bytesValue []byte

// Bytes wraps a byte slice as a key value. It is shorthand for a
// vector of u8 and shares that encoding exactly.
func Bytes(b []byte) Value { return bytesValue(b) }

func (bytesValue) Tag() Tag { return TagVector }

func (v bytesValue) appendBody(dst []byte) []byte {
	dst = append(dst, byte(TagU8))
	dst = append(dst, varint.ToUvarint(uint64(len(v)))...)
	return append(dst, v...)
}

type vectorValue struct {
	elem  Tag
	items []Value
}

// Vector wraps a homogeneous list as a key value. The element tag is
// explicit so that empty vectors of different element kinds stay
// distinct on the wire. Every item must carry exactly the elem tag.
func Vector(elem Tag, items ...Value) (Value, error) {
	switch elem {
	case TagBool, TagU8, TagU16, TagU32, TagU64, TagAddress, TagString, TagAscii, TagVector:
	default:
		return nil, fmt.Errorf("canon: unknown vector element tag 0x%02x", uint8(elem))
	}
	for i, it := range items {
		if it == nil {
			return nil, fmt.Errorf("canon: nil vector element at index %d", i)
		}
		if it.Tag() != elem {
			return nil, fmt.Errorf("canon: vector element %d is %s, want %s", i, it.Tag(), elem)
		}
	}
	return vectorValue{elem: elem, items: items}, nil
}

func (vectorValue) Tag() Tag { return TagVector }

func (v vectorValue) appendBody(dst []byte) []byte {
	dst = append(dst, byte(v.elem))
	dst = append(dst, varint.ToUvarint(uint64(len(v.items)))...)
	for _, it := range v.items {
		dst = it.appendBody(dst)
	}
	return dst
}
