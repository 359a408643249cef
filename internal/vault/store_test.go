package vault

import (
	"regexp"
	"strconv"
	"testing"
	"time"

	"voicevault/internal/events"
	"voicevault/internal/storage"
)

func newTestStore() (*Store, *storage.Memory) {
	backend := storage.NewMemory()
	return NewStore(backend, events.NewBus()), backend
}

func testRecording(t *testing.T, ts time.Time, audio string) Recording {
	t.Helper()
	return NewRecording(ts, "audio/webm", []byte(audio))
}

var base = time.Date(2026, 8, 31, 14, 3, 59, 0, time.UTC)

func TestNewRecording_Fields(t *testing.T) {
	rec := NewRecording(base, "audio/webm", []byte("audio-bytes"))

	if want := strconv.FormatInt(base.UnixMilli(), 10); rec.ID != want {
		t.Errorf("ID: got %s, want %s", rec.ID, want)
	}
	if want := "VoiceVault-2026-08-31-14-03-59"; rec.Name != want {
		t.Errorf("Name: got %s, want %s", rec.Name, want)
	}
	if !regexp.MustCompile(`^VoiceVault-\d{4}-\d{2}-\d{2}-\d{2}-\d{2}-\d{2}$`).MatchString(rec.Name) {
		t.Errorf("Name does not match timestamp pattern: %s", rec.Name)
	}
	if rec.Size != int64(len("audio-bytes")) {
		t.Errorf("Size: got %d", rec.Size)
	}
	if rec.Filename() != rec.Name+".webm" {
		t.Errorf("Filename: got %s", rec.Filename())
	}
	if got := NewRecording(base, "audio/wav", nil).FileExtension(); got != "wav" {
		t.Errorf("FileExtension for wav: got %s", got)
	}
}

func TestInsert_NewestFirst(t *testing.T) {
	s, _ := newTestStore()

	for i := 0; i < 3; i++ {
		rec := testRecording(t, base.Add(time.Duration(i)*time.Second), "chunk")
		if err := s.Insert("u1", rec); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	recs := s.Recordings("u1")
	if len(recs) != 3 {
		t.Fatalf("expected 3 recordings, got %d", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if recs[i].Created.After(recs[i-1].Created) {
			t.Errorf("sequence not newest-first at index %d", i)
		}
	}
	if !recs[0].Created.Equal(base.Add(2 * time.Second)) {
		t.Errorf("head is not the latest insert: %v", recs[0].Created)
	}
}

func TestPartitionIsolation(t *testing.T) {
	s, _ := newTestStore()

	recA := testRecording(t, base, "audio-a")
	if err := s.Insert("email-a@x.c", recA); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.SetTranscript("email-a@x.c", recA.ID, "hello from a"); err != nil {
		t.Fatalf("SetTranscript: %v", err)
	}

	recsB, transcriptsB := s.Load("email-b@x.c")
	if len(recsB) != 0 {
		t.Errorf("partition B sees %d of A's recordings", len(recsB))
	}
	if len(transcriptsB) != 0 {
		t.Errorf("partition B sees %d of A's transcripts", len(transcriptsB))
	}

	recB := testRecording(t, base.Add(time.Second), "audio-b")
	if err := s.Insert("email-b@x.c", recB); err != nil {
		t.Fatalf("Insert B: %v", err)
	}
	recsA, _ := s.Load("email-a@x.c")
	if len(recsA) != 1 || recsA[0].ID != recA.ID {
		t.Errorf("partition A changed after B's insert: %+v", recsA)
	}
}

func TestRoundTrip_SignOutAndBack(t *testing.T) {
	s, _ := newTestStore()

	rec := testRecording(t, base, "payload")
	if err := s.Insert("u1", rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.SetTranscript("u1", rec.ID, "the transcript"); err != nil {
		t.Fatalf("SetTranscript: %v", err)
	}

	// Signed out: empty view, no fallback to any shared collection.
	recs, transcripts := s.Load("")
	if len(recs) != 0 || len(transcripts) != 0 {
		t.Errorf("signed-out view not empty: %d recordings, %d transcripts", len(recs), len(transcripts))
	}

	// Back to u1: exactly what was last saved.
	recs, transcripts = s.Load("u1")
	if len(recs) != 1 {
		t.Fatalf("expected 1 recording, got %d", len(recs))
	}
	got := recs[0]
	if got.ID != rec.ID || got.Name != rec.Name || got.MimeType != rec.MimeType {
		t.Errorf("metadata round trip mismatch: %+v", got)
	}
	if !got.Created.Equal(rec.Created) {
		t.Errorf("created round trip mismatch: %v != %v", got.Created, rec.Created)
	}
	if string(got.Audio) != "payload" {
		t.Errorf("audio round trip mismatch: %q", got.Audio)
	}
	if transcripts[rec.ID] != "the transcript" {
		t.Errorf("transcript round trip mismatch: %q", transcripts[rec.ID])
	}
}

func TestRemove_NoOrphanTranscripts(t *testing.T) {
	s, backend := newTestStore()

	rec := testRecording(t, base, "payload")
	if err := s.Insert("u1", rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.SetTranscript("u1", rec.ID, "text"); err != nil {
		t.Fatalf("SetTranscript: %v", err)
	}

	if err := s.Remove("u1", rec.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	recs, transcripts := s.Load("u1")
	if len(recs) != 0 {
		t.Errorf("expected no recordings, got %d", len(recs))
	}
	if _, ok := transcripts[rec.ID]; ok {
		t.Error("transcript resurrected after remove")
	}
	// The audio blob is released too.
	keys, err := backend.Keys("voicevault-blob-")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected blob to be released, found %v", keys)
	}
}

func TestRemove_AbsentIDIsNoOp(t *testing.T) {
	s, _ := newTestStore()

	rec := testRecording(t, base, "payload")
	if err := s.Insert("u1", rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Remove("u1", "does-not-exist"); err != nil {
		t.Errorf("expected no-op, got %v", err)
	}
	if len(s.Recordings("u1")) != 1 {
		t.Error("no-op remove changed the collection")
	}
}

func TestSetTranscript_UnknownRecording(t *testing.T) {
	s, _ := newTestStore()
	if err := s.SetTranscript("u1", "404", "text"); err != ErrUnknownRecording {
		t.Errorf("expected ErrUnknownRecording, got %v", err)
	}
}

func TestMutations_RequirePartition(t *testing.T) {
	s, _ := newTestStore()
	rec := testRecording(t, base, "x")

	if err := s.Insert("", rec); err != ErrNoPartition {
		t.Errorf("Insert: expected ErrNoPartition, got %v", err)
	}
	if err := s.Remove("", rec.ID); err != ErrNoPartition {
		t.Errorf("Remove: expected ErrNoPartition, got %v", err)
	}
	if err := s.SetTranscript("", rec.ID, "t"); err != ErrNoPartition {
		t.Errorf("SetTranscript: expected ErrNoPartition, got %v", err)
	}
}

func TestLoad_MalformedIndexIsEmpty(t *testing.T) {
	s, backend := newTestStore()

	if err := backend.Set("voicevault-recordings-u1", []byte("{definitely not json")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := backend.Set("voicevault-transcripts-u1", []byte("[42]")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	recs, transcripts := s.Load("u1")
	if len(recs) != 0 {
		t.Errorf("expected empty recordings, got %d", len(recs))
	}
	if len(transcripts) != 0 {
		t.Errorf("expected empty transcripts, got %d", len(transcripts))
	}

	// The partition recovers: a fresh insert works.
	if err := s.Insert("u1", testRecording(t, base, "new")); err != nil {
		t.Fatalf("Insert after recovery: %v", err)
	}
	if len(s.Recordings("u1")) != 1 {
		t.Error("expected recovered partition to accept inserts")
	}
}

func TestLoad_CorruptBlobDropsRecording(t *testing.T) {
	s, backend := newTestStore()

	good := testRecording(t, base, "good-audio")
	bad := testRecording(t, base.Add(time.Second), "bad-audio")
	if err := s.Insert("u1", good); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert("u1", bad); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Corrupt the second payload behind the store's back.
	if err := backend.Set("voicevault-blob-u1:"+bad.ID, []byte("tampered")); err != nil {
		t.Fatalf("Set: %v", err)
	}

	recs, _ := s.Load("u1")
	if len(recs) != 1 {
		t.Fatalf("expected 1 surviving recording, got %d", len(recs))
	}
	if recs[0].ID != good.ID {
		t.Errorf("wrong survivor: %s", recs[0].ID)
	}
}

func TestLoad_LegacyUnscopedKeyNeverRead(t *testing.T) {
	s, backend := newTestStore()

	// Data under the pre-multi-user key must stay invisible.
	if err := backend.Set(legacyRecordingsKey, []byte(`[{"id":"1","name":"old"}]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if recs, _ := s.Load(""); len(recs) != 0 {
		t.Errorf("signed-out load read the legacy key: %d recordings", len(recs))
	}
	if recs := s.Recordings("email-a@x.c"); len(recs) != 0 {
		t.Errorf("partition load read the legacy key: %d recordings", len(recs))
	}
}

func TestLoad_DropsOrphanTranscriptEntries(t *testing.T) {
	s, backend := newTestStore()

	rec := testRecording(t, base, "audio")
	if err := s.Insert("u1", rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	// Simulate an orphan written by an earlier buggy version.
	if err := backend.Set("voicevault-transcripts-u1", []byte(`{"ghost":"boo","`+rec.ID+`":"ok"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	_, transcripts := s.Load("u1")
	if _, ok := transcripts["ghost"]; ok {
		t.Error("orphan transcript entry survived load")
	}
	if transcripts[rec.ID] != "ok" {
		t.Errorf("valid transcript lost: %q", transcripts[rec.ID])
	}
}
