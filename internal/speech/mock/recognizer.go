// Package mock provides a scripted recognizer for local runs and tests:
// progressive interim hypotheses followed by exactly one final result,
// then end-of-speech detection.
package mock

import (
	"context"
	"sync"
	"time"

	"voicevault/internal/speech"
)

// Script is one simulated recognition run.
type Script struct {
	Interims []string
	Final    string
}

// DefaultScripts provides sample runs for simulation.
var DefaultScripts = []Script{
	{
		Interims: []string{"remember to", "remember to call"},
		Final:    "remember to call the dentist back tomorrow",
	},
	{
		Interims: []string{"grocery list", "grocery list eggs and"},
		Final:    "grocery list eggs and oat milk",
	},
	{
		Interims: []string{"idea for the"},
		Final:    "idea for the talk open with the demo",
	},
}

// Recognizer cycles through its scripts, one per session.
type Recognizer struct {
	Scripts []Script
	// Step is the delay between emitted results.
	Step time.Duration
	// Fail, when set, replaces the scripted results with one OnError.
	Fail error

	mu   sync.Mutex
	next int
}

// New creates a mock recognizer over the default scripts.
func New() *Recognizer {
	return &Recognizer{
		Scripts: DefaultScripts,
		Step:    30 * time.Millisecond,
	}
}

// Start begins a scripted session.
func (r *Recognizer) Start(ctx context.Context, opts speech.Options, cb speech.Callback) (speech.Session, error) {
	r.mu.Lock()
	script := r.Scripts[r.next%len(r.Scripts)]
	r.next++
	fail := r.Fail
	step := r.Step
	r.mu.Unlock()

	s := &session{stop: make(chan struct{})}
	go s.run(ctx, script, cb, step, fail, opts)
	return s, nil
}

type session struct {
	stop chan struct{}
	once sync.Once
}

// Stop aborts the scripted session. Idempotent.
func (s *session) Stop() {
	s.once.Do(func() { close(s.stop) })
}

func (s *session) run(ctx context.Context, script Script, cb speech.Callback, step time.Duration, fail error, opts speech.Options) {
	defer cb.OnEnd()

	wait := func() bool {
		select {
		case <-s.stop:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(step):
			return true
		}
	}

	if fail != nil {
		if wait() {
			cb.OnError(fail)
		}
		return
	}

	if opts.InterimResults {
		for _, text := range script.Interims {
			if !wait() {
				return
			}
			cb.OnInterim(text)
		}
	}
	if !wait() {
		return
	}
	cb.OnFinal(script.Final)
}
