// Package mock simulates a microphone for local runs and tests: canned
// encoded chunks at a steady cadence until the stream is closed.
package mock

import (
	"context"
	"sync"
	"time"

	"voicevault/internal/mic"
)

// Device emits synthetic audio chunks. The zero value is unusable; use
// New and override fields as needed.
type Device struct {
	ChunkSize int
	Interval  time.Duration
	Denied    bool // simulate a permission denial
	Absent    bool // simulate missing capture hardware
}

// New creates a mock device with defaults close to a real encoder's
// chunk cadence.
func New() *Device {
	return &Device{
		ChunkSize: 4096,
		Interval:  20 * time.Millisecond,
	}
}

// Open starts a simulated capture stream.
func (d *Device) Open(ctx context.Context) (mic.Stream, error) {
	if d.Absent {
		return nil, mic.ErrUnavailable
	}
	if d.Denied {
		return nil, mic.ErrPermissionDenied
	}

	s := &stream{
		ch:   make(chan []byte),
		done: make(chan struct{}),
	}
	go s.run(ctx, d.ChunkSize, d.Interval)
	return s, nil
}

type stream struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

func (s *stream) run(ctx context.Context, size int, interval time.Duration) {
	defer close(s.ch)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seq := byte(0)
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			chunk := make([]byte, size)
			for i := range chunk {
				chunk[i] = seq
			}
			seq++
			select {
			case s.ch <- chunk:
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *stream) Chunks() <-chan []byte {
	return s.ch
}

func (s *stream) MimeType() string {
	return "audio/webm"
}

// Close releases the simulated track. Idempotent.
func (s *stream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
