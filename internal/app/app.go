// Package app wires the service components together.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"voicevault/internal/capture"
	"voicevault/internal/config"
	"voicevault/internal/events"
	"voicevault/internal/identity"
	"voicevault/internal/mic"
	micmock "voicevault/internal/mic/mock"
	"voicevault/internal/observability/logging"
	"voicevault/internal/speech"
	speechmock "voicevault/internal/speech/mock"
	"voicevault/internal/storage"
	"voicevault/internal/transcribe"
	"voicevault/internal/vault"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Config

	Backend     storage.Backend
	Bus         *events.Bus
	Store       *vault.Store
	Identity    *identity.Provider
	Recorder    *capture.Recorder
	Transcriber *transcribe.Coordinator
}

// New constructs the application from the provided configuration.
func New(cfg *config.Config) (*Application, error) {
	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})
	logger := logging.WithComponent("application")

	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus()
	store := vault.NewStore(backend, bus)
	provider := identity.New(identity.Config{
		Backend: backend,
		Latency: time.Duration(cfg.Identity.SignInLatencyMs) * time.Millisecond,
	})

	device, err := newDevice(cfg)
	if err != nil {
		backend.Close()
		return nil, err
	}
	recognizer, err := newRecognizer(cfg)
	if err != nil {
		backend.Close()
		return nil, err
	}

	a := &Application{
		StartupTime: time.Now().UTC(),
		Logger:      logger,
		Cfg:         cfg,
		Backend:     backend,
		Bus:         bus,
		Store:       store,
		Identity:    provider,
		Recorder:    capture.NewRecorder(device, store),
		Transcriber: transcribe.NewCoordinator(recognizer, transcribe.NopPlayer{}, store, cfg.Speech.Locale),
	}

	// The vault partition follows the active identity: every change
	// reloads the partition and announces it on the bus. Sign-out loads
	// the empty view, never a shared collection.
	provider.Subscribe(func(id *identity.Identity) {
		partition := ""
		if id != nil {
			partition = id.ID
		}
		recordings, _ := store.Load(partition)
		bus.Publish(events.Event{Type: events.IdentityChanged, Partition: partition})
		logger.Info().
			Str("identityId", partition).
			Int("recordings", len(recordings)).
			Msg("active partition changed")
	})

	logger.Info().
		Str("storageDriver", cfg.Storage.Driver).
		Str("micProvider", cfg.Mic.Provider).
		Str("speechProvider", cfg.Speech.Provider).
		Msg("voicevault application created")
	return a, nil
}

// Ready reports whether the service can serve vault traffic. The one
// hard dependency is the storage backend; a cheap read proves it is
// still reachable.
func (a *Application) Ready() error {
	if _, err := a.Backend.Keys("voicevault-"); err != nil {
		return fmt.Errorf("storage backend: %w", err)
	}
	return nil
}

// Close releases held resources.
func (a *Application) Close() error {
	return a.Backend.Close()
}

func newBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return storage.NewMemory(), nil
	case "file":
		return storage.NewFile(cfg.Storage.Dir)
	case "sqlite":
		return storage.NewSQLite(cfg.Storage.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func newDevice(cfg *config.Config) (mic.Device, error) {
	switch cfg.Mic.Provider {
	case "mock":
		return micmock.New(), nil
	case "none":
		return unavailableDevice{}, nil
	default:
		return nil, fmt.Errorf("unknown mic provider %q", cfg.Mic.Provider)
	}
}

func newRecognizer(cfg *config.Config) (speech.Recognizer, error) {
	switch cfg.Speech.Provider {
	case "mock":
		return speechmock.New(), nil
	case "none":
		return speech.Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q", cfg.Speech.Provider)
	}
}

// unavailableDevice models a host without capture hardware.
type unavailableDevice struct{}

func (unavailableDevice) Open(ctx context.Context) (mic.Stream, error) {
	return nil, mic.ErrUnavailable
}
