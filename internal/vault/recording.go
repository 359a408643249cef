// Package vault implements the per-identity recording and transcript
// store: the single source of truth the presentation reads and the
// capture components write into.
package vault

import (
	"encoding/hex"
	"strconv"
	"time"

	"lukechampine.com/blake3"
)

// Recording is one finalized audio capture. Immutable once created; the
// only lifecycle transition afterwards is deletion.
type Recording struct {
	// ID is the capture timestamp in Unix milliseconds, rendered as a
	// decimal string. Unique and ordered at human interaction rates.
	ID string `json:"id"`

	// URL is an ephemeral playable reference. It is rebuilt every
	// process and never persisted.
	URL string `json:"-"`

	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	MimeType string    `json:"mimeType"`

	// Size and Checksum describe the audio payload, which is persisted
	// in a separate blob entry rather than inline in the index.
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`

	Audio []byte `json:"-"`
}

// NewRecording builds a Recording for an audio payload finalized at ts.
func NewRecording(ts time.Time, mimeType string, audio []byte) Recording {
	sum := blake3.Sum256(audio)
	return Recording{
		ID:       strconv.FormatInt(ts.UnixMilli(), 10),
		Name:     recordingName(ts),
		Created:  ts,
		MimeType: mimeType,
		Size:     int64(len(audio)),
		Checksum: hex.EncodeToString(sum[:]),
		Audio:    audio,
	}
}

// recordingName renders the human label, e.g. VoiceVault-2026-08-31-14-03-59.
func recordingName(ts time.Time) string {
	return "VoiceVault-" + ts.Format("2006-01-02-15-04-05")
}

// FileExtension maps the MIME type to a download extension. Anything
// that is not webm is served as wav, matching the capture encodings.
func (r Recording) FileExtension() string {
	if r.MimeType == "audio/webm" {
		return "webm"
	}
	return "wav"
}

// Filename is the suggested download name.
func (r Recording) Filename() string {
	return r.Name + "." + r.FileExtension()
}
