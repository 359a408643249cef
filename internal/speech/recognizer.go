// Package speech defines the recognition boundary used for transcript
// capture. Accuracy is inherently best-effort: the engine hears the
// recording through acoustic loopback while it plays, not through a
// codec-level audio pipeline. That limitation is documented behavior,
// not a bug to engineer away.
package speech

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when the platform has no recognition
// capability at all.
var ErrUnavailable = errors.New("speech recognition not available")

// Options configures one recognition session.
type Options struct {
	// Locale is the spoken-language tag, e.g. en-US.
	Locale string
	// InterimResults asks for incremental hypotheses before the final.
	InterimResults bool
	// Continuous keeps the session open across utterance boundaries.
	// Transcript capture runs with this off.
	Continuous bool
}

// Callback receives recognition results. Calls arrive on the
// recognizer's goroutine.
type Callback interface {
	// OnInterim delivers the current incremental hypothesis.
	OnInterim(text string)

	// OnFinal delivers a finalized result.
	OnFinal(text string)

	// OnEnd fires exactly once when the session finishes, whether
	// naturally, by end-of-speech detection, by error, or by Stop.
	OnEnd()

	// OnError reports a runtime recognition error. OnEnd still follows.
	OnError(err error)
}

// Session is one running recognition.
type Session interface {
	// Stop aborts recognition. Idempotent.
	Stop()
}

// Recognizer starts recognition sessions.
type Recognizer interface {
	Start(ctx context.Context, opts Options, cb Callback) (Session, error)
}

// Unavailable models a platform without recognition support. Every
// Start fails immediately with ErrUnavailable.
type Unavailable struct{}

// Start implements Recognizer.
func (Unavailable) Start(context.Context, Options, Callback) (Session, error) {
	return nil, ErrUnavailable
}
