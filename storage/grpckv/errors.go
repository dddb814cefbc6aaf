package grpckv

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"cairn.systems/objectstate/storage"
)

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return storage.ErrNotFound
	case codes.AlreadyExists:
		return storage.ErrExists
	case codes.InvalidArgument:
		// Server uses InvalidArgument for zero or malformed addresses.
		return storage.ErrInvalidAddress
	default:
		// Best-effort: if the server sent a known storage error message, preserve it.
		switch st.Message() {
		case storage.ErrNotFound.Error():
			return storage.ErrNotFound
		case storage.ErrExists.Error():
			return storage.ErrExists
		case storage.ErrInvalidAddress.Error():
			return storage.ErrInvalidAddress
		default:
			return err
		}
	}
}
