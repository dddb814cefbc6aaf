package storage

import "errors"

var (
	ErrNotFound       = errors.New("storage: not found")
	ErrExists         = errors.New("storage: already exists")
	ErrInvalidAddress = errors.New("storage: invalid address")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsExists(err error) bool { return errors.Is(err, ErrExists) }
