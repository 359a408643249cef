// Package capture drives the microphone through the two-state recording
// lifecycle and hands finalized recordings to the vault.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voicevault/internal/mic"
	"voicevault/internal/observability/logging"
	"voicevault/internal/observability/metrics"
	"voicevault/internal/vault"
)

// State is the recorder lifecycle state.
type State int

const (
	// StateIdle - no capture running, ready to start.
	StateIdle State = iota
	// StateRecording - microphone open, chunks buffering.
	StateRecording
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRecording:
		return "RECORDING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Errors for invalid recorder transitions.
var (
	ErrAlreadyRecording = errors.New("a recording is already in progress")
	ErrNotRecording     = errors.New("no recording in progress")
)

// Recorder owns the Idle -> Recording -> Idle state machine. There is
// no pause or resume; stopping is the only way out of Recording, and it
// always releases the hardware track.
type Recorder struct {
	device mic.Device
	store  *vault.Store
	logger zerolog.Logger

	mu      sync.Mutex
	state   State
	stream  mic.Stream
	chunks  [][]byte
	started time.Time
	done    chan struct{} // closed when the buffering goroutine exits
}

// NewRecorder creates an idle recorder.
func NewRecorder(device mic.Device, store *vault.Store) *Recorder {
	return &Recorder{
		device: device,
		store:  store,
		logger: logging.WithComponent("capture"),
	}
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start requests microphone access and begins buffering chunks. On
// denial or a missing capability the recorder stays idle and the error
// goes back to the caller for display; nothing retries automatically.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	// Claim the state before the (possibly slow) permission prompt so a
	// second Start cannot open a second stream.
	r.state = StateRecording
	r.mu.Unlock()

	// The capture stream outlives the starting request; only Stop closes
	// it.
	stream, err := r.device.Open(context.WithoutCancel(ctx))
	if err != nil {
		r.mu.Lock()
		r.state = StateIdle
		r.mu.Unlock()
		metrics.Default.RecordCaptureError(captureErrorReason(err))
		r.logger.Warn().Err(err).Msg("microphone open failed")
		return fmt.Errorf("open microphone: %w", err)
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.stream = stream
	r.chunks = nil
	r.started = time.Now()
	r.done = done
	r.mu.Unlock()

	go r.buffer(stream, done)
	r.logger.Info().Msg("recording started")
	return nil
}

func (r *Recorder) buffer(stream mic.Stream, done chan struct{}) {
	defer close(done)
	for chunk := range stream.Chunks() {
		if len(chunk) == 0 {
			continue
		}
		r.mu.Lock()
		r.chunks = append(r.chunks, chunk)
		r.mu.Unlock()
	}
}

// Stop closes the stream, assembles the buffered chunks into a single
// payload, and inserts the finalized recording into the partition. The
// track is released before anything else, so a failed insert still
// frees the microphone.
func (r *Recorder) Stop(partition string) (*vault.Recording, error) {
	r.mu.Lock()
	// The stream is the stop claim. It is nil while a Start is still
	// opening the device, and the first Stop of a capture takes it, so a
	// pending Start or a concurrent Stop both report ErrNotRecording
	// instead of finalizing a capture twice.
	if r.state != StateRecording || r.stream == nil {
		r.mu.Unlock()
		return nil, ErrNotRecording
	}
	stream := r.stream
	done := r.done
	r.stream = nil
	r.mu.Unlock()

	if err := stream.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("stream close reported an error")
	}
	// Wait for the last chunks to land before assembling.
	<-done

	r.mu.Lock()
	chunks := r.chunks
	started := r.started
	r.chunks = nil
	r.done = nil
	r.state = StateIdle
	r.mu.Unlock()

	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	audio := make([]byte, 0, total)
	for _, c := range chunks {
		audio = append(audio, c...)
	}

	rec := vault.NewRecording(time.Now(), stream.MimeType(), audio)
	if err := r.store.Insert(partition, rec); err != nil {
		return nil, fmt.Errorf("store recording: %w", err)
	}

	r.logger.Info().
		Str("recordingId", rec.ID).
		Int("bytes", total).
		Dur("captured", time.Since(started)).
		Msg("recording finalized")
	return &rec, nil
}

func captureErrorReason(err error) string {
	switch {
	case errors.Is(err, mic.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, mic.ErrUnavailable):
		return "unavailable"
	default:
		return "open_failed"
	}
}
