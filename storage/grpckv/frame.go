package grpckv

import (
	"fmt"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"cairn.systems/objectstate/object"
)

// Wire framing: Create and Write carry addr || record in one bytes
// field; everything else carries the bare 32-byte addr.

func frameAddr(addr object.Address) *wrapperspb.BytesValue {
	return wrapperspb.Bytes(addr[:])
}

func frameRecord(addr object.Address, record []byte) *wrapperspb.BytesValue {
	buf := make([]byte, 0, object.Size+len(record))
	buf = append(buf, addr[:]...)
	buf = append(buf, record...)
	return wrapperspb.Bytes(buf)
}

func parseAddr(b []byte) (object.Address, error) {
	var addr object.Address
	if len(b) != object.Size {
		return addr, fmt.Errorf("grpckv: address wants %d bytes, got %d", object.Size, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

func splitRecord(b []byte) (object.Address, []byte, error) {
	var addr object.Address
	if len(b) < object.Size {
		return addr, nil, fmt.Errorf("grpckv: framed record wants >= %d bytes, got %d", object.Size, len(b))
	}
	copy(addr[:], b[:object.Size])
	return addr, b[object.Size:], nil
}
