package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/nadzzz/storefront/internal/persona"
	"github.com/nadzzz/storefront/internal/session"
	"github.com/nadzzz/storefront/internal/summary"
	"github.com/nadzzz/storefront/internal/turn"
)

// handleIndex serves the practice page and starts a fresh session.
func (t *Transport) handleIndex(w http.ResponseWriter, r *http.Request) {
	id := t.sessionID(r)
	if id == "" {
		id = session.NewID()
	}
	release, ok := t.locker.TryAcquire(id)
	if !ok {
		http.Error(w, "A turn for this session is still in progress", http.StatusConflict)
		return
	}
	defer release()
	if _, err := t.sim.Start(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "starting session failed", "error", err)
		http.Error(w, "could not start session", http.StatusInternalServerError)
		return
	}
	t.setCookie(w, id)

	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		http.Error(w, "page not found", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// handleUploadAudio processes a recorded utterance.
//
// @Summary     Submit a spoken turn
// @Description Transcribes the uploaded recording, classifies the salesperson's tone and returns the
// @Description customer's reply as text and (when text-to-speech is enabled) base64 audio.
// @Tags        turn
// @Accept      multipart/form-data
// @Produce     json
// @Param       file                  formData  file    true   "Recorded audio (webm, wav, mp3, ogg)"
// @Param       X-Storefront-Session  header    string  false  "Session id (defaults to the session cookie)"
// @Success     200  {object}  TurnResponse
// @Failure     400  {object}  ErrorResponse  "No file part / No selected file"
// @Failure     409  {object}  ErrorResponse  "A turn for this session is already in progress"
// @Failure     413  {object}  ErrorResponse  "Upload too large"
// @Failure     502  {object}  ErrorResponse  "Transcription or reply generation failed"
// @Router      /upload_audio [post]
func (t *Transport) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, t.maxUpload)
	if err := r.ParseMultipartForm(t.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		// A part with an empty filename is parsed as a plain form value.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			writeError(w, http.StatusBadRequest, "No selected file")
			return
		}
		writeError(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "No selected file")
		return
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "audio/wav"
	}

	t.runTurn(w, r, turn.Input{Audio: audio, ContentType: contentType})
}

// handleTextTurn processes a typed utterance.
//
// @Summary     Submit a text turn
// @Description Same as /upload_audio but skips transcription. Useful for testing and accessibility.
// @Tags        turn
// @Accept      json
// @Produce     json
// @Param       request               body      TextTurnRequest  true   "Salesperson utterance"
// @Param       X-Storefront-Session  header    string           false  "Session id (defaults to the session cookie)"
// @Success     200  {object}  TurnResponse
// @Failure     400  {object}  ErrorResponse
// @Failure     409  {object}  ErrorResponse
// @Failure     502  {object}  ErrorResponse
// @Router      /turn/text [post]
func (t *Transport) handleTextTurn(w http.ResponseWriter, r *http.Request) {
	var req TextTurnRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	t.runTurn(w, r, turn.Input{Text: req.Text})
}

func (t *Transport) runTurn(w http.ResponseWriter, r *http.Request, in turn.Input) {
	id := t.ensureSession(w, r)

	release, ok := t.locker.TryAcquire(id)
	if !ok {
		writeError(w, http.StatusConflict, "A turn for this session is already in progress")
		return
	}
	defer release()

	res, err := t.sim.Run(r.Context(), id, in)
	if err != nil {
		code, msg := turnErrorStatus(err)
		writeError(w, code, msg)
		return
	}
	writeJSON(w, http.StatusOK, newTurnResponse(id, res))
}

func turnErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, turn.ErrNoInput):
		return http.StatusBadRequest, "Nothing to say: the turn had no audio and no text"
	case errors.Is(err, turn.ErrTranscriptionUnavailable):
		return http.StatusBadGateway, "Transcription failed"
	case errors.Is(err, persona.ErrGenerationUnavailable):
		return http.StatusBadGateway, "The customer could not respond"
	default:
		return http.StatusInternalServerError, "Internal error"
	}
}

// handleSessionStart resets the caller's session.
//
// @Summary     Start a new session
// @Description Clears the transcript log and conversation thread. Issues a session cookie if none exists.
// @Tags        session
// @Produce     json
// @Param       X-Storefront-Session  header  string  false  "Session id (defaults to the session cookie)"
// @Success     200  {object}  SessionStartResponse
// @Failure     409  {object}  ErrorResponse  "A turn for this session is still in progress"
// @Router      /session/start [post]
func (t *Transport) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	id := t.ensureSession(w, r)
	release, ok := t.locker.TryAcquire(id)
	if !ok {
		writeError(w, http.StatusConflict, "A turn for this session is still in progress")
		return
	}
	defer release()

	if _, err := t.sim.Start(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "starting session failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	writeJSON(w, http.StatusOK, SessionStartResponse{SessionID: id})
}

// handleSessionEnd returns the mentor critique for the session.
//
// @Summary     End the session
// @Description Produces a mentor critique of the committed turns, as Markdown and rendered HTML.
// @Description When the critique cannot be produced the response is 200 with available=false.
// @Tags        session
// @Produce     json
// @Param       X-Storefront-Session  header  string  false  "Session id (defaults to the session cookie)"
// @Success     200  {object}  SessionEndResponse
// @Failure     409  {object}  ErrorResponse
// @Router      /session/end [post]
func (t *Transport) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	id := t.ensureSession(w, r)
	if t.locker.Busy(id) {
		writeError(w, http.StatusConflict, "A turn for this session is still in progress")
		return
	}

	critique, err := t.sim.End(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusOK, summaryUnavailable())
		return
	}
	html, err := summary.Render(critique.Markdown)
	if err != nil {
		slog.WarnContext(r.Context(), "rendering critique failed", "session_id", id, "error", err)
		writeJSON(w, http.StatusOK, summaryUnavailable())
		return
	}
	writeJSON(w, http.StatusOK, SessionEndResponse{
		Available: true,
		SessionID: id,
		Markdown:  critique.Markdown,
		HTML:      string(html),
		Turns:     critique.Turns,
		Empty:     critique.Empty,
	})
}

func summaryUnavailable() SessionEndResponse {
	return SessionEndResponse{Available: false, Message: "Summary not available."}
}

// handleSession returns the committed log and thread.
//
// @Summary     Inspect the session
// @Tags        session
// @Produce     json
// @Param       X-Storefront-Session  header  string  false  "Session id (defaults to the session cookie)"
// @Success     200  {object}  SessionView
// @Failure     404  {object}  ErrorResponse  "No session"
// @Router      /session [get]
func (t *Transport) handleSession(w http.ResponseWriter, r *http.Request) {
	id := t.sessionID(r)
	if id == "" {
		writeError(w, http.StatusNotFound, "No session")
		return
	}
	st, err := t.sim.State(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "loading session failed", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load session")
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(st))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Message: msg})
}
