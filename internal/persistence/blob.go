package persistence

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by Read when nothing was written yet.
var ErrBlobNotFound = errors.New("blob not found")

// Blob stores one opaque document that is always read and written whole.
type Blob interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// Pinger is implemented by backends that can report their availability.
type Pinger interface {
	Ping(ctx context.Context) error
}
