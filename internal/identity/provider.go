package identity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voicevault/internal/observability/logging"
	"voicevault/internal/observability/metrics"
	"voicevault/internal/storage"
)

// sessionKey is unscoped on purpose: the session itself selects the
// partition, so it cannot live inside one.
const sessionKey = "voicevault-auth-user"

// ErrUnknownMethod is returned for a sign-in method the provider does
// not recognize.
var ErrUnknownMethod = errors.New("unknown sign-in method")

// Subscriber receives the new identity after every sign-in or sign-out.
// Sign-out delivers nil.
type Subscriber func(*Identity)

// Config holds provider configuration.
type Config struct {
	Backend storage.Backend
	// Latency simulates the round trip to a real identity provider.
	// Zero in tests.
	Latency time.Duration
}

// Provider is the mocked identity provider. The active session persists
// across restarts through the storage backend.
type Provider struct {
	backend storage.Backend
	latency time.Duration
	logger  zerolog.Logger

	mu      sync.RWMutex
	current *Identity
	subs    []Subscriber
}

// New creates a provider and restores any persisted session.
func New(cfg Config) *Provider {
	p := &Provider{
		backend: cfg.Backend,
		latency: cfg.Latency,
		logger:  logging.WithComponent("identity"),
	}
	p.restore()
	return p
}

func (p *Provider) restore() {
	raw, ok, err := p.backend.Get(sessionKey)
	if err != nil {
		p.logger.Warn().Err(err).Msg("session restore failed")
		return
	}
	if !ok {
		return
	}
	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		p.logger.Warn().Err(err).Msg("discarding malformed saved session")
		return
	}
	p.current = &id
	p.logger.Info().Str("identityId", id.ID).Msg("session restored")
}

// Current returns the signed-in identity, or nil.
func (p *Provider) Current() *Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Subscribe registers fn for identity-change notifications. The current
// identity is not replayed; callers read Current first.
func (p *Provider) Subscribe(fn Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}

// SignIn authenticates with the mocked provider. Identity IDs are
// deterministic so repeat sign-ins land on the same vault partition.
func (p *Provider) SignIn(ctx context.Context, email string, method Method) (*Identity, error) {
	id, err := mockIdentity(email, method)
	if err != nil {
		return nil, err
	}

	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	raw, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	if err := p.backend.Set(sessionKey, raw); err != nil {
		// Sign-in still succeeds; only restart persistence is lost.
		p.logger.Error().Err(err).Msg("failed to persist session")
	}

	p.mu.Lock()
	p.current = id
	subs := append([]Subscriber(nil), p.subs...)
	p.mu.Unlock()

	metrics.Default.RecordSignIn(string(method))
	p.logger.Info().
		Str("identityId", id.ID).
		Str("method", string(method)).
		Msg("signed in")

	for _, fn := range subs {
		fn(id)
	}
	return id, nil
}

// SignOut clears the session. Safe to call when nobody is signed in.
func (p *Provider) SignOut() {
	if err := p.backend.Delete(sessionKey); err != nil {
		p.logger.Error().Err(err).Msg("failed to clear persisted session")
	}

	p.mu.Lock()
	wasSignedIn := p.current != nil
	p.current = nil
	subs := append([]Subscriber(nil), p.subs...)
	p.mu.Unlock()

	if !wasSignedIn {
		return
	}
	metrics.Default.RecordSignOut()
	p.logger.Info().Msg("signed out")

	for _, fn := range subs {
		fn(nil)
	}
}

// mockIdentity reproduces the historical mock sign-in contract,
// including the "anon" fallback for social sign-ins without an email.
func mockIdentity(email string, method Method) (*Identity, error) {
	subject := email
	if subject == "" {
		subject = "anon"
	}

	switch method {
	case MethodGoogle:
		addr := email
		if addr == "" {
			addr = "google_user@mock.com"
		}
		return &Identity{
			ID:        "google-id-" + subject,
			Name:      "Google User",
			Email:     addr,
			AvatarURL: "https://i.pravatar.cc/150?img=12",
			Provider:  MethodGoogle,
		}, nil
	case MethodGitHub:
		addr := email
		if addr == "" {
			addr = "github_user@mock.com"
		}
		return &Identity{
			ID:        "github-id-" + subject,
			Name:      "Octocat",
			Email:     addr,
			AvatarURL: "https://i.pravatar.cc/150?img=3",
			Provider:  MethodGitHub,
		}, nil
	case MethodEmail:
		name, _, _ := strings.Cut(email, "@")
		if name == "" {
			name = "User"
		}
		return &Identity{
			ID:        "email-" + email,
			Name:      name,
			Email:     email,
			AvatarURL: "https://i.pravatar.cc/150?img=5",
			Provider:  MethodEmail,
		}, nil
	default:
		return nil, ErrUnknownMethod
	}
}
