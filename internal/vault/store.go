package vault

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"lukechampine.com/blake3"

	"voicevault/internal/events"
	"voicevault/internal/observability/logging"
	"voicevault/internal/observability/metrics"
	"voicevault/internal/storage"
)

// Persisted key layout, per identity partition:
//
//	voicevault-recordings-<id>      JSON recording index, newest first
//	voicevault-transcripts-<id>     JSON map of recording ID -> text
//	voicevault-blob-<id>:<recID>    raw audio payload
//
// The blob separator is a colon so one partition's blob sweep can never
// match another partition whose ID happens to extend it; identity IDs
// derive from email addresses and never contain a colon.
const (
	recordingsKeyPrefix  = "voicevault-recordings-"
	transcriptsKeyPrefix = "voicevault-transcripts-"
	blobKeyPrefix        = "voicevault-blob-"
)

// legacyRecordingsKey predates per-identity partitioning. It is never
// read once an identity exists; whether to migrate it is an open
// product question, so the data stays untouched.
const legacyRecordingsKey = "voicevault-recordings"

var (
	// ErrNoPartition rejects mutations without an identity partition.
	// Signed-out users see an empty collection, never a shared one.
	ErrNoPartition = errors.New("no active identity partition")

	// ErrUnknownRecording is returned when a transcript is written for a
	// recording that does not exist in the partition.
	ErrUnknownRecording = errors.New("unknown recording id")
)

// Store persists recordings and transcripts partitioned by identity ID.
// Every operation names its partition explicitly; there is no ambient
// current-user state. Mutations serialize on one mutex, the analogue of
// the single UI thread the original design relied on: no two snapshot
// writes can ever interleave.
type Store struct {
	backend storage.Backend
	bus     *events.Bus
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu sync.Mutex
}

// NewStore creates a store over the given backend. bus may be nil.
func NewStore(backend storage.Backend, bus *events.Bus) *Store {
	return &Store{
		backend: backend,
		bus:     bus,
		metrics: metrics.Default,
		logger:  logging.WithComponent("vault"),
	}
}

// Load reads the partition snapshot. Missing keys, malformed JSON, and
// unreadable blobs all load as empty or skipped entries: a corrupt
// vault must never take the UI down. An empty partition loads empty.
func (s *Store) Load(partition string) ([]Recording, map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(partition)
}

// Recordings returns the ordered recording sequence for the partition.
func (s *Store) Recordings(partition string) []Recording {
	recs, _ := s.Load(partition)
	return recs
}

// Transcript returns the transcript text for a recording, if present.
func (s *Store) Transcript(partition, id string) (string, bool) {
	_, transcripts := s.Load(partition)
	text, ok := transcripts[id]
	return text, ok
}

// Get returns the recording with the given ID, if present.
func (s *Store) Get(partition, id string) (Recording, bool) {
	for _, rec := range s.Recordings(partition) {
		if rec.ID == id {
			return rec, true
		}
	}
	return Recording{}, false
}

// Save persists the full snapshot of both collections for the
// partition. No partial writes: the snapshot replaces whatever was
// stored, and blob entries are reconciled to match.
func (s *Store) Save(partition string, recordings []Recording, transcripts map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(partition, recordings, transcripts)
}

// Insert prepends rec to the partition, newest first, and persists the
// new snapshot.
func (s *Store) Insert(partition string, rec Recording) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if partition == "" {
		return ErrNoPartition
	}

	recordings, transcripts := s.loadLocked(partition)
	recordings = append([]Recording{rec}, recordings...)
	if err := s.saveLocked(partition, recordings, transcripts); err != nil {
		return err
	}

	s.metrics.RecordRecordingCreated(rec.Size)
	storedLog := logging.WithRecording(s.logger, partition, rec.ID)
	storedLog.Info().
		Int64("bytes", rec.Size).
		Msg("recording stored")
	s.bus.Publish(events.Event{Type: events.RecordingCreated, Partition: partition, RecordingID: rec.ID})
	return nil
}

// Remove deletes the recording, its transcript entry, and its audio
// blob. Removing an absent ID is a no-op, not an error.
func (s *Store) Remove(partition, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if partition == "" {
		return ErrNoPartition
	}

	recordings, transcripts := s.loadLocked(partition)
	kept := recordings[:0]
	removed := false
	for _, rec := range recordings {
		if rec.ID == id {
			removed = true
			continue
		}
		kept = append(kept, rec)
	}
	if !removed {
		return nil
	}
	delete(transcripts, id)

	if err := s.saveLocked(partition, kept, transcripts); err != nil {
		return err
	}

	s.metrics.RecordRecordingDeleted()
	deletedLog := logging.WithRecording(s.logger, partition, id)
	deletedLog.Info().
		Msg("recording deleted")
	s.bus.Publish(events.Event{Type: events.RecordingDeleted, Partition: partition, RecordingID: id})
	return nil
}

// SetTranscript upserts the transcript text for an existing recording.
// Writing against a recording that does not exist is a caller bug; the
// store reports it without corrupting anything.
func (s *Store) SetTranscript(partition, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if partition == "" {
		return ErrNoPartition
	}

	recordings, transcripts := s.loadLocked(partition)
	if !containsRecording(recordings, id) {
		return ErrUnknownRecording
	}
	transcripts[id] = text

	if err := s.saveLocked(partition, recordings, transcripts); err != nil {
		return err
	}
	s.bus.Publish(events.Event{Type: events.TranscriptUpdated, Partition: partition, RecordingID: id})
	return nil
}

func (s *Store) loadLocked(partition string) ([]Recording, map[string]string) {
	if partition == "" {
		return nil, map[string]string{}
	}

	start := time.Now()
	recordings := s.loadRecordings(partition)
	transcripts := s.loadTranscripts(partition)

	// Enforce the no-orphans invariant on load as well: a transcript
	// entry without its recording is dropped silently.
	for id := range transcripts {
		if !containsRecording(recordings, id) {
			delete(transcripts, id)
		}
	}

	s.metrics.ObserveStoreLoad(time.Since(start).Seconds())
	return recordings, transcripts
}

func (s *Store) loadRecordings(partition string) []Recording {
	raw, ok, err := s.backend.Get(recordingsKeyPrefix + partition)
	if err != nil {
		s.metrics.RecordLoadFailure("index_read")
		idxLog := logging.WithIdentity(s.logger, partition)
		idxLog.Warn().Err(err).Msg("recording index unreadable, starting empty")
		return nil
	}
	if !ok {
		return nil
	}

	var recordings []Recording
	if err := json.Unmarshal(raw, &recordings); err != nil {
		s.metrics.RecordLoadFailure("index_malformed")
		idxLog := logging.WithIdentity(s.logger, partition)
		idxLog.Warn().Err(err).Msg("recording index malformed, starting empty")
		return nil
	}

	loaded := recordings[:0]
	for _, rec := range recordings {
		audio, err := s.loadBlob(partition, rec)
		if err != nil {
			s.metrics.RecordLoadFailure("blob")
			recLog := logging.WithRecording(s.logger, partition, rec.ID)
			recLog.Warn().Err(err).
				Msg("dropping recording with unreadable audio")
			continue
		}
		rec.Audio = audio
		loaded = append(loaded, rec)
	}
	return loaded
}

func (s *Store) loadBlob(partition string, rec Recording) ([]byte, error) {
	raw, ok, err := s.backend.Get(blobKey(partition, rec.ID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("audio blob missing")
	}
	sum := blake3.Sum256(raw)
	if hex.EncodeToString(sum[:]) != rec.Checksum {
		return nil, errors.New("audio checksum mismatch")
	}
	return raw, nil
}

func (s *Store) loadTranscripts(partition string) map[string]string {
	raw, ok, err := s.backend.Get(transcriptsKeyPrefix + partition)
	if err != nil || !ok {
		if err != nil {
			s.metrics.RecordLoadFailure("transcripts_read")
			trLog := logging.WithIdentity(s.logger, partition)
			trLog.Warn().Err(err).Msg("transcripts unreadable, starting empty")
		}
		return map[string]string{}
	}

	var transcripts map[string]string
	if err := json.Unmarshal(raw, &transcripts); err != nil {
		s.metrics.RecordLoadFailure("transcripts_malformed")
		trLog := logging.WithIdentity(s.logger, partition)
		trLog.Warn().Err(err).Msg("transcripts malformed, starting empty")
		return map[string]string{}
	}
	if transcripts == nil {
		transcripts = map[string]string{}
	}
	return transcripts
}

func (s *Store) saveLocked(partition string, recordings []Recording, transcripts map[string]string) error {
	if partition == "" {
		return ErrNoPartition
	}
	start := time.Now()

	index, err := json.Marshal(recordings)
	if err != nil {
		return fmt.Errorf("encode recording index: %w", err)
	}
	if err := s.backend.Set(recordingsKeyPrefix+partition, index); err != nil {
		return fmt.Errorf("persist recording index: %w", err)
	}

	keep := make(map[string]bool, len(recordings))
	for _, rec := range recordings {
		keep[rec.ID] = true
		if err := s.backend.Set(blobKey(partition, rec.ID), rec.Audio); err != nil {
			return fmt.Errorf("persist audio blob %s: %w", rec.ID, err)
		}
	}

	if transcripts == nil {
		transcripts = map[string]string{}
	}
	encoded, err := json.Marshal(transcripts)
	if err != nil {
		return fmt.Errorf("encode transcripts: %w", err)
	}
	if err := s.backend.Set(transcriptsKeyPrefix+partition, encoded); err != nil {
		return fmt.Errorf("persist transcripts: %w", err)
	}

	// Release blobs whose recording is gone from the snapshot.
	blobPrefix := blobKeyPrefix + partition + ":"
	keys, err := s.backend.Keys(blobPrefix)
	if err != nil {
		sweepLog := logging.WithIdentity(s.logger, partition)
		sweepLog.Warn().Err(err).Msg("blob sweep skipped")
	} else {
		for _, key := range keys {
			if !keep[strings.TrimPrefix(key, blobPrefix)] {
				if err := s.backend.Delete(key); err != nil {
					s.logger.Warn().Err(err).Str("key", key).Msg("stale blob not released")
				}
			}
		}
	}

	s.metrics.ObserveStoreSave(time.Since(start).Seconds())
	return nil
}

func blobKey(partition, recordingID string) string {
	return blobKeyPrefix + partition + ":" + recordingID
}

func containsRecording(recordings []Recording, id string) bool {
	for _, rec := range recordings {
		if rec.ID == id {
			return true
		}
	}
	return false
}
