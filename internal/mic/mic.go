// Package mic defines the microphone device boundary. The recorder
// talks to whatever device implementation is wired in; local runs and
// tests use the mock.
package mic

import (
	"context"
	"errors"
)

// Errors the capture layer surfaces to the user. Both leave the
// recorder idle; retrying is a manual action.
var (
	ErrUnavailable      = errors.New("no microphone available")
	ErrPermissionDenied = errors.New("microphone permission denied")
)

// Stream is one active capture. Chunks delivers encoded audio as the
// device produces it; the channel closes when the stream stops. Close
// always releases the underlying hardware track, whatever else failed.
type Stream interface {
	Chunks() <-chan []byte
	MimeType() string
	Close() error
}

// Device abstracts the platform capture primitive.
type Device interface {
	// Open requests access and starts delivering chunks. Denial or a
	// missing capability reports ErrPermissionDenied or ErrUnavailable.
	Open(ctx context.Context) (Stream, error)
}
