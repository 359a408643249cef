// Package transcribe coordinates simultaneous playback and speech
// recognition, writing the merged transcript into the vault as results
// arrive.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"voicevault/internal/observability/logging"
	"voicevault/internal/observability/metrics"
	"voicevault/internal/speech"
	"voicevault/internal/vault"
)

// Player starts and stops audio playback of a recording. Playback
// happens on the presentation side; the coordinator only signals it.
type Player interface {
	Play(rec vault.Recording) error
	Stop(recordingID string)
}

// NopPlayer is wired when no playback surface is attached.
type NopPlayer struct{}

func (NopPlayer) Play(vault.Recording) error { return nil }
func (NopPlayer) Stop(string)                {}

// ErrSessionActive rejects a second transcription while one is running.
// The first session's output is never disturbed by the rejection.
var ErrSessionActive = errors.New("a transcription is already in progress")

// Coordinator runs at most one transcription session at a time. Each
// session carries a token checked on every recognition callback, so
// results from a superseded session can never clobber a newer one.
type Coordinator struct {
	recognizer speech.Recognizer
	player     Player
	store      *vault.Store
	locale     string
	logger     zerolog.Logger

	mu      sync.Mutex
	current *session
}

type session struct {
	token       string
	partition   string
	recordingID string
	handle      speech.Session

	// Result merge state: finals concatenate, the latest interim rides
	// along as a live preview until the next result replaces it.
	finals  []string
	interim string
}

func (s *session) merged() string {
	parts := append([]string(nil), s.finals...)
	if s.interim != "" {
		parts = append(parts, s.interim)
	}
	return strings.Join(parts, " ")
}

// NewCoordinator creates an idle coordinator.
func NewCoordinator(recognizer speech.Recognizer, player Player, store *vault.Store, locale string) *Coordinator {
	if player == nil {
		player = NopPlayer{}
	}
	return &Coordinator{
		recognizer: recognizer,
		player:     player,
		store:      store,
		locale:     locale,
		logger:     logging.WithComponent("transcribe"),
	}
}

// InProgress reports the recording currently being transcribed, if any.
func (c *Coordinator) InProgress() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return "", false
	}
	return c.current.recordingID, true
}

// Start begins transcript capture for rec. Any previous transcript text
// for the recording is cleared before results arrive. If the recognizer
// is unavailable the error surfaces immediately and nothing is marked
// in progress.
func (c *Coordinator) Start(ctx context.Context, partition string, rec vault.Recording) error {
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return ErrSessionActive
	}
	sess := &session{
		token:       uuid.NewString(),
		partition:   partition,
		recordingID: rec.ID,
	}
	c.current = sess
	c.mu.Unlock()

	// The active gauge tracks slot ownership, not playback: it rises the
	// moment the slot is claimed so every release path, including a
	// cancel racing this startup, decrements a gauge that was raised.
	metrics.Default.RecordTranscriptionStart()

	if err := c.store.SetTranscript(partition, rec.ID, ""); err != nil {
		c.clear(sess.token)
		return fmt.Errorf("reset transcript: %w", err)
	}

	// The session outlives the starting request. Only Stop, cancellation
	// or end-of-speech ends it.
	handle, err := c.recognizer.Start(context.WithoutCancel(ctx), speech.Options{
		Locale:         c.locale,
		InterimResults: true,
		Continuous:     false,
	}, &callback{c: c, token: sess.token})
	if err != nil {
		c.clear(sess.token)
		if errors.Is(err, speech.ErrUnavailable) {
			return err
		}
		return fmt.Errorf("start recognition: %w", err)
	}

	c.mu.Lock()
	if c.current == nil || c.current.token != sess.token {
		// Cancelled while the recognizer was starting up.
		c.mu.Unlock()
		handle.Stop()
		return nil
	}
	c.current.handle = handle
	c.mu.Unlock()

	// Recognition is live; start playback so the engine has something
	// to hear.
	if err := c.player.Play(rec); err != nil {
		handle.Stop()
		c.clear(sess.token)
		return fmt.Errorf("start playback: %w", err)
	}

	startLog := logging.WithRecording(c.logger, partition, rec.ID)
	startLog.Info().
		Str("locale", c.locale).
		Msg("transcription started")
	return nil
}

// Cancel stops the in-progress session, if any, keeping whatever
// partial transcript was already written. Returns whether a session was
// cancelled.
func (c *Coordinator) Cancel() bool {
	c.mu.Lock()
	sess := c.current
	c.current = nil
	c.mu.Unlock()
	if sess == nil {
		return false
	}
	c.teardown(sess, "cancelled")
	return true
}

// CancelFor cancels only if recordingID is the one being transcribed.
// Called before a delete so removal never races a live session.
func (c *Coordinator) CancelFor(recordingID string) bool {
	c.mu.Lock()
	if c.current == nil || c.current.recordingID != recordingID {
		c.mu.Unlock()
		return false
	}
	sess := c.current
	c.current = nil
	c.mu.Unlock()
	c.teardown(sess, "cancelled for delete")
	return true
}

func (c *Coordinator) teardown(sess *session, reason string) {
	if sess.handle != nil {
		sess.handle.Stop()
	}
	c.player.Stop(sess.recordingID)
	metrics.Default.RecordTranscriptionEnd()
	c.logger.Info().
		Str("recordingId", sess.recordingID).
		Str("reason", reason).
		Msg("transcription ended")
}

// clear drops the session if it still owns the slot. Used on startup
// failures before any callback could have fired. When the slot was
// already taken over or cancelled, whoever did that settled the gauge.
func (c *Coordinator) clear(token string) {
	c.mu.Lock()
	cleared := c.current != nil && c.current.token == token
	if cleared {
		c.current = nil
	}
	c.mu.Unlock()
	if cleared {
		metrics.Default.RecordTranscriptionEnd()
	}
}

// callback adapts recognition results onto the owning session. The
// token pins every delivery to the session that registered it.
type callback struct {
	c     *Coordinator
	token string
}

func (cb *callback) OnInterim(text string) { cb.c.onInterim(cb.token, text) }
func (cb *callback) OnFinal(text string)   { cb.c.onFinal(cb.token, text) }
func (cb *callback) OnEnd()                { cb.c.onEnd(cb.token) }
func (cb *callback) OnError(err error)     { cb.c.onError(cb.token, err) }

func (c *Coordinator) onInterim(token, text string) {
	c.mu.Lock()
	sess := c.current
	if sess == nil || sess.token != token {
		c.mu.Unlock()
		return
	}
	sess.interim = text
	partition, id, merged := sess.partition, sess.recordingID, sess.merged()
	c.mu.Unlock()

	metrics.Default.RecordInterimResult()
	c.write(partition, id, merged)
}

func (c *Coordinator) onFinal(token, text string) {
	c.mu.Lock()
	sess := c.current
	if sess == nil || sess.token != token {
		c.mu.Unlock()
		return
	}
	sess.finals = append(sess.finals, text)
	sess.interim = ""
	partition, id, merged := sess.partition, sess.recordingID, sess.merged()
	c.mu.Unlock()

	metrics.Default.RecordFinalResult()
	c.write(partition, id, merged)
}

func (c *Coordinator) onEnd(token string) {
	c.mu.Lock()
	sess := c.current
	if sess == nil || sess.token != token {
		c.mu.Unlock()
		return
	}
	c.current = nil
	c.mu.Unlock()

	c.player.Stop(sess.recordingID)
	metrics.Default.RecordTranscriptionEnd()
	c.logger.Info().
		Str("recordingId", sess.recordingID).
		Msg("transcription finished")
}

// onError reports the failure and keeps the partial transcript as-is.
func (c *Coordinator) onError(token string, err error) {
	c.mu.Lock()
	sess := c.current
	if sess == nil || sess.token != token {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	metrics.Default.RecordTranscriptionError()
	c.logger.Warn().
		Err(err).
		Str("recordingId", sess.recordingID).
		Msg("recognition error, partial transcript retained")
	// OnEnd follows and clears the in-progress marker.
}

func (c *Coordinator) write(partition, id, text string) {
	if err := c.store.SetTranscript(partition, id, text); err != nil {
		// The recording may have been deleted mid-session; stale writes
		// just drop.
		c.logger.Debug().Err(err).Str("recordingId", id).Msg("transcript write skipped")
	}
}
