package bundle_test

import (
	"archive/tar"
	"bytes"
	"testing"
	"time"

	"cairn.systems/objectstate/canon"
	"cairn.systems/objectstate/object"
	"cairn.systems/objectstate/storage"
	"cairn.systems/objectstate/storage/bundle"
	"cairn.systems/objectstate/storage/memkv"
)

func addrFor(t *testing.T, name string) object.Address {
	t.Helper()
	key, err := canon.Ascii(name)
	if err != nil {
		t.Fatal(err)
	}
	var parent object.Address
	parent[0] = 0xb1
	return object.Derive(parent, key)
}

func TestBundle_ExportIsDeterministic(t *testing.T) {
	kv := memkv.New()
	a1 := addrFor(t, "one")
	a2 := addrFor(t, "two")
	if err := kv.Write(a1, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := kv.Write(a2, []byte("world")); err != nil {
		t.Fatal(err)
	}

	var outA bytes.Buffer
	if err := bundle.Export(&outA, kv, []object.Address{a2, a1}, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		t.Fatal(err)
	}
	var outB bytes.Buffer
	if err := bundle.Export(&outB, kv, []object.Address{a1, a2, a1}, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(outA.Bytes(), outB.Bytes()) {
		t.Fatalf("expected deterministic bundle bytes")
	}
}

func TestBundle_ImportRoundTrip(t *testing.T) {
	src := memkv.New()
	addr := addrFor(t, "payload")
	payload := []byte("payload")
	if err := src.Write(addr, payload); err != nil {
		t.Fatal(err)
	}
	empty := addrFor(t, "marker")
	if err := src.Write(empty, nil); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	opts := bundle.ExportOptions{
		IncludeIndex: true,
		Labels:       map[string]object.Address{"payload": addr},
	}
	if err := bundle.Export(&buf, src, []object.Address{addr, empty}, opts); err != nil {
		t.Fatal(err)
	}

	dst := memkv.New()
	if err := bundle.Import(bytes.NewReader(buf.Bytes()), dst); err != nil {
		t.Fatal(err)
	}

	got, err := dst.Read(addr)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}
	// Empty records survive: the marker exists at the destination.
	if !dst.Has(empty) {
		t.Fatalf("empty record lost in the round trip")
	}
}

func TestBundle_ImportUpserts(t *testing.T) {
	src := memkv.New()
	addr := addrFor(t, "head")
	if err := src.Write(addr, []byte("new head")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := bundle.Export(&buf, src, []object.Address{addr}, bundle.ExportOptions{}); err != nil {
		t.Fatal(err)
	}

	dst := memkv.New()
	if err := dst.Write(addr, []byte("stale head")); err != nil {
		t.Fatal(err)
	}
	if err := bundle.Import(bytes.NewReader(buf.Bytes()), dst); err != nil {
		t.Fatal(err)
	}
	got, err := dst.Read(addr)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "new head" {
		t.Fatalf("import did not replace the stale record: %q", got)
	}
}

func TestBundle_ExportRejectsMissingAndZero(t *testing.T) {
	kv := memkv.New()
	var buf bytes.Buffer

	if err := bundle.Export(&buf, kv, []object.Address{addrFor(t, "absent")}, bundle.ExportOptions{}); !storage.IsNotFound(err) {
		t.Fatalf("expected ErrNotFound for a missing record, got %v", err)
	}
	if err := bundle.Export(&buf, kv, []object.Address{object.Zero}, bundle.ExportOptions{}); err != storage.ErrInvalidAddress {
		t.Fatalf("expected ErrInvalidAddress for the zero address, got %v", err)
	}
}

func TestBundle_ImportRejectsBadEntries(t *testing.T) {
	dst := memkv.New()

	// Malformed address in the entry path.
	bad := makeDeterministicTar(t, "records/not-an-address", []byte("x"))
	if err := bundle.Import(bytes.NewReader(bad), dst); err != storage.ErrInvalidAddress {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}

	// Zero address in the entry path.
	zero := makeDeterministicTar(t, "records/"+object.Zero.String(), []byte("x"))
	if err := bundle.Import(bytes.NewReader(zero), dst); err != storage.ErrInvalidAddress {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}

	// Unknown entry is fail-closed by default, tolerated with the option.
	unknown := makeDeterministicTar(t, "extra/junk", []byte("x"))
	if err := bundle.Import(bytes.NewReader(unknown), dst); err == nil {
		t.Fatalf("unknown entry accepted")
	}
	if err := bundle.ImportWithOptions(bytes.NewReader(unknown), dst, bundle.ImportOptions{IgnoreUnknown: true}); err != nil {
		t.Fatalf("IgnoreUnknown: %v", err)
	}
}

func TestBundle_ImportRejectsDuplicates(t *testing.T) {
	addr := addrFor(t, "dup")

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for i := 0; i < 2; i++ {
		writeTarEntry(t, tw, "records/"+addr.String(), []byte("x"))
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}

	if err := bundle.Import(bytes.NewReader(buf.Bytes()), memkv.New()); err == nil {
		t.Fatalf("duplicate entry accepted")
	}
}

func makeDeterministicTar(t *testing.T, name string, content []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	writeTarEntry(t, tw, name, content)
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeTarEntry(t *testing.T, tw *tar.Writer, name string, content []byte) {
	t.Helper()

	h := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		Uid:      0,
		Gid:      0,
		Uname:    "",
		Gname:    "",
		ModTime:  time.Unix(0, 0).UTC(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(h); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
}
