package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"voicevault/internal/app"
	"voicevault/internal/capture"
	"voicevault/internal/identity"
	"voicevault/internal/mic"
	"voicevault/internal/speech"
	"voicevault/internal/transcribe"
)

type handler struct {
	app *app.Application
}

// partition resolves the active identity partition or writes a 401.
func (h *handler) partition(w http.ResponseWriter) (string, bool) {
	id := h.app.Identity.Current()
	if id == nil {
		writeError(w, http.StatusUnauthorized, "sign in to access your recordings")
		return "", false
	}
	return id.ID, true
}

type signInRequest struct {
	Email    string          `json:"email"`
	Provider identity.Method `json:"provider"`
}

func (h *handler) signIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed sign-in request")
		return
	}
	if req.Provider == "" {
		req.Provider = identity.MethodEmail
	}

	id, err := h.app.Identity.SignIn(r.Context(), req.Email, req.Provider)
	if err != nil {
		if errors.Is(err, identity.ErrUnknownMethod) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "sign-in failed")
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (h *handler) session(w http.ResponseWriter, _ *http.Request) {
	id := h.app.Identity.Current()
	if id == nil {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (h *handler) signOut(w http.ResponseWriter, _ *http.Request) {
	h.app.Identity.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

// recordingView is the read model the frontend renders. Audio stays
// behind the download URL; transcripts ride along when present.
type recordingView struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Name          string `json:"name"`
	Created       string `json:"created"`
	MimeType      string `json:"mimeType"`
	Size          int64  `json:"size"`
	Transcript    string `json:"transcript,omitempty"`
	HasTranscript bool   `json:"hasTranscript"`
	Transcribing  bool   `json:"transcribing"`
}

func (h *handler) listRecordings(w http.ResponseWriter, _ *http.Request) {
	partition, ok := h.partition(w)
	if !ok {
		return
	}

	recordings, transcripts := h.app.Store.Load(partition)
	inProgress, _ := h.app.Transcriber.InProgress()

	views := make([]recordingView, 0, len(recordings))
	for _, rec := range recordings {
		text, has := transcripts[rec.ID]
		views = append(views, recordingView{
			ID:            rec.ID,
			URL:           audioURL(rec.ID),
			Name:          rec.Name,
			Created:       rec.Created.Format("2006-01-02T15:04:05.000Z07:00"),
			MimeType:      rec.MimeType,
			Size:          rec.Size,
			Transcript:    text,
			HasTranscript: has,
			Transcribing:  rec.ID == inProgress,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) startCapture(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.partition(w); !ok {
		return
	}

	if err := h.app.Recorder.Start(r.Context()); err != nil {
		switch {
		case errors.Is(err, capture.ErrAlreadyRecording):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, mic.ErrPermissionDenied), errors.Is(err, mic.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Could not access microphone. Please check permissions.")
		default:
			writeError(w, http.StatusInternalServerError, "could not start recording")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": h.app.Recorder.State().String()})
}

func (h *handler) stopCapture(w http.ResponseWriter, _ *http.Request) {
	partition, ok := h.partition(w)
	if !ok {
		return
	}

	rec, err := h.app.Recorder.Stop(partition)
	if err != nil {
		if errors.Is(err, capture.ErrNotRecording) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "could not finalize recording")
		return
	}
	writeJSON(w, http.StatusOK, recordingView{
		ID:       rec.ID,
		URL:      audioURL(rec.ID),
		Name:     rec.Name,
		Created:  rec.Created.Format("2006-01-02T15:04:05.000Z07:00"),
		MimeType: rec.MimeType,
		Size:     rec.Size,
	})
}

func (h *handler) deleteRecording(w http.ResponseWriter, r *http.Request) {
	partition, ok := h.partition(w)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	// A live transcription for this recording ends first so recognition
	// callbacks cannot race the removal.
	h.app.Transcriber.CancelFor(id)

	if err := h.app.Store.Remove(partition, id); err != nil {
		writeError(w, http.StatusInternalServerError, "could not delete recording")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) downloadAudio(w http.ResponseWriter, r *http.Request) {
	partition, ok := h.partition(w)
	if !ok {
		return
	}

	rec, found := h.app.Store.Get(partition, chi.URLParam(r, "id"))
	if !found {
		writeError(w, http.StatusNotFound, "no such recording")
		return
	}

	w.Header().Set("Content-Type", rec.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Filename()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.Audio)
}

func (h *handler) getTranscript(w http.ResponseWriter, r *http.Request) {
	partition, ok := h.partition(w)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	text, found := h.app.Store.Transcript(partition, id)
	if !found {
		writeError(w, http.StatusNotFound, "no transcript for this recording")
		return
	}
	inProgress, _ := h.app.Transcriber.InProgress()
	writeJSON(w, http.StatusOK, map[string]any{
		"recordingId": id,
		"text":        text,
		"inProgress":  id == inProgress,
	})
}

func (h *handler) transcribe(w http.ResponseWriter, r *http.Request) {
	partition, ok := h.partition(w)
	if !ok {
		return
	}

	rec, found := h.app.Store.Get(partition, chi.URLParam(r, "id"))
	if !found {
		writeError(w, http.StatusNotFound, "no such recording")
		return
	}

	if err := h.app.Transcriber.Start(r.Context(), partition, rec); err != nil {
		switch {
		case errors.Is(err, transcribe.ErrSessionActive):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, speech.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, "Speech recognition is not supported on this platform.")
		default:
			writeError(w, http.StatusInternalServerError, "could not start transcription")
		}
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"recordingId": rec.ID})
}

func (h *handler) cancelTranscribe(w http.ResponseWriter, _ *http.Request) {
	if _, ok := h.partition(w); !ok {
		return
	}
	cancelled := h.app.Transcriber.Cancel()
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": cancelled})
}

func audioURL(recordingID string) string {
	return "/v1/recordings/" + recordingID + "/audio"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
