package canon

import (
	"bytes"
	"strings"
	"testing"
)

func mustString(t *testing.T, s string) Value {
	t.Helper()
	v, err := String(s)
	if err != nil {
		t.Fatalf("String(%q): %v", s, err)
	}
	return v
}

func mustAscii(t *testing.T, s string) Value {
	t.Helper()
	v, err := Ascii(s)
	if err != nil {
		t.Fatalf("Ascii(%q): %v", s, err)
	}
	return v
}

func mustVector(t *testing.T, elem Tag, items ...Value) Value {
	t.Helper()
	v, err := Vector(elem, items...)
	if err != nil {
		t.Fatalf("Vector(%s): %v", elem, err)
	}
	return v
}

func TestScalarEncodings(t *testing.T) {
	var addr [32]byte
	addr[0] = 0xaa
	addr[31] = 0xbb

	cases := []struct {
		name string
		v    Value
		want []byte
	}{
		{"bool_false", Bool(false), []byte{0x01, 0x00}},
		{"bool_true", Bool(true), []byte{0x01, 0x01}},
		{"u8", U8(0x7f), []byte{0x02, 0x7f}},
		{"u16_le", U16(0x1234), []byte{0x03, 0x34, 0x12}},
		{"u32_le", U32(0x01020304), []byte{0x04, 0x04, 0x03, 0x02, 0x01}},
		{"u64_le", U64(1), []byte{0x05, 0x01, 0, 0, 0, 0, 0, 0, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Encode(tc.v)
			if !bytes.Equal(got, tc.want) {
				t.Fatalf("Encode: got %x want %x", got, tc.want)
			}
		})
	}

	got := Encode(Addr(addr))
	want := append([]byte{0x10}, addr[:]...)
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode(Addr): got %x want %x", got, want)
	}
}

func TestTextEncodings(t *testing.T) {
	if got, want := Encode(mustString(t, "abc")), []byte{0x11, 0x03, 'a', 'b', 'c'}; !bytes.Equal(got, want) {
		t.Fatalf("string: got %x want %x", got, want)
	}
	if got, want := Encode(mustAscii(t, "abc")), []byte{0x12, 0x03, 'a', 'b', 'c'}; !bytes.Equal(got, want) {
		t.Fatalf("ascii: got %x want %x", got, want)
	}
	if got, want := Encode(Bytes([]byte("abc"))), []byte{0x20, 0x02, 0x03, 'a', 'b', 'c'}; !bytes.Equal(got, want) {
		t.Fatalf("bytes: got %x want %x", got, want)
	}
}

func TestSameBytesDifferentKinds(t *testing.T) {
	encs := map[string][]byte{
		"string": Encode(mustString(t, "foo")),
		"ascii":  Encode(mustAscii(t, "foo")),
		"bytes":  Encode(Bytes([]byte("foo"))),
	}
	for a, ea := range encs {
		for b, eb := range encs {
			if a != b && bytes.Equal(ea, eb) {
				t.Fatalf("kinds %s and %s share encoding %x", a, b, ea)
			}
		}
	}
}

func TestBytesIsVectorOfU8(t *testing.T) {
	raw := []byte{0xde, 0xad, 0xbe}
	items := make([]Value, len(raw))
	for i, b := range raw {
		items[i] = U8(b)
	}
	sugar := Encode(Bytes(raw))
	full := Encode(mustVector(t, TagU8, items...))
	if !bytes.Equal(sugar, full) {
		t.Fatalf("Bytes sugar diverged from vector<u8>: %x vs %x", sugar, full)
	}
}

func TestEmptyVectorsDistinctByElement(t *testing.T) {
	u8s := Encode(mustVector(t, TagU8))
	u64s := Encode(mustVector(t, TagU64))
	if bytes.Equal(u8s, u64s) {
		t.Fatalf("empty vector<u8> and vector<u64> share encoding %x", u8s)
	}
	if want := []byte{0x20, 0x02, 0x00}; !bytes.Equal(u8s, want) {
		t.Fatalf("empty vector<u8>: got %x want %x", u8s, want)
	}
	if want := []byte{0x20, 0x05, 0x00}; !bytes.Equal(u64s, want) {
		t.Fatalf("empty vector<u64>: got %x want %x", u64s, want)
	}
}

func TestNestedVectorHoistsTags(t *testing.T) {
	inner1 := Bytes([]byte{0x01})
	inner2 := Bytes([]byte{0x02, 0x03})
	v := mustVector(t, TagVector, inner1, inner2)

	// outer: vector tag, element tag (vector), count 2,
	// then each inner body: u8 element tag, count, raw bytes.
	want := []byte{
		0x20, 0x20, 0x02,
		0x02, 0x01, 0x01,
		0x02, 0x02, 0x02, 0x03,
	}
	if got := Encode(v); !bytes.Equal(got, want) {
		t.Fatalf("nested vector: got %x want %x", got, want)
	}
}

func TestVarintLengthBoundary(t *testing.T) {
	short := Encode(mustAscii(t, strings.Repeat("a", 127)))
	long := Encode(mustAscii(t, strings.Repeat("a", 128)))
	if len(short) != 1+1+127 {
		t.Fatalf("127-byte payload: got total %d want %d", len(short), 1+1+127)
	}
	if len(long) != 1+2+128 {
		t.Fatalf("128-byte payload: got total %d want %d", len(long), 1+2+128)
	}
}

func TestConstructorValidation(t *testing.T) {
	if _, err := Ascii("café"); err == nil {
		t.Fatalf("Ascii accepted non-ASCII input")
	}
	if _, err := String(string([]byte{0xff, 0xfe})); err == nil {
		t.Fatalf("String accepted invalid UTF-8")
	}
	if _, err := Vector(TagU8, U8(1), U16(2)); err == nil {
		t.Fatalf("Vector accepted mixed element kinds")
	}
	if _, err := Vector(Tag(0x7e)); err == nil {
		t.Fatalf("Vector accepted unknown element tag")
	}
	if _, err := Vector(TagU8, nil); err == nil {
		t.Fatalf("Vector accepted nil element")
	}
}

func TestAppendPreservesPrefix(t *testing.T) {
	prefix := []byte("prefix")
	out := Append(append([]byte(nil), prefix...), U8(0x42))
	if !bytes.HasPrefix(out, prefix) {
		t.Fatalf("Append clobbered prefix: %x", out)
	}
	if !bytes.Equal(out[len(prefix):], []byte{0x02, 0x42}) {
		t.Fatalf("Append suffix: got %x", out[len(prefix):])
	}
}

func TestEncodeDeterministic(t *testing.T) {
	v := mustVector(t, TagString, mustString(t, "x"), mustString(t, "y"))
	a := Encode(v)
	b := Encode(v)
	if !bytes.Equal(a, b) {
		t.Fatalf("Encode not deterministic: %x vs %x", a, b)
	}
}
