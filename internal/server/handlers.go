package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/timemachinetv/timemachine/internal/attempt"
	"github.com/timemachinetv/timemachine/internal/httputil"
	"github.com/timemachinetv/timemachine/internal/request"
	"github.com/timemachinetv/timemachine/internal/session"
	"github.com/timemachinetv/timemachine/internal/validate"
)

type previewResponse struct {
	URL string `json:"url"`
}

type downloadResponse struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type mediaEventRequest struct {
	Token uint64 `json:"token"`
	Event string `json:"event"`
}

// lookupSession writes a 404 and returns nil when the {id} is unknown.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) *session.Session {
	sess, err := s.sessions.Get(chi.URLParam(r, "id"))
	if errors.Is(err, session.ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "session not found")
		return nil
	}
	if err != nil {
		slog.Error("session lookup failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "session lookup failed")
		return nil
	}
	return sess
}

// normalizeForm checks field limits and fills in the default quality.
func normalizeForm(form request.Params) (request.Params, string) {
	if msg := validate.Prompt(form.Prompt); msg != "" {
		return form, msg
	}
	if msg := validate.Key(form.Key); msg != "" {
		return form, msg
	}
	quality, err := request.ParseQuality(string(form.Quality))
	if err != nil {
		return form, "quality must be one of high, medium, low"
	}
	form.Quality = quality
	return form, ""
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create()
	httputil.WriteJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.Snapshot())
}

// handleSubmit starts a new attempt. A blank prompt is not an HTTP error: it
// produces a failed attempt like any other outcome.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}

	form := sess.Snapshot().Form
	if err := httputil.DecodeJSON(r, &form); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	form, msg := normalizeForm(form)
	if msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sess.Submit(form))
}

func (s *Server) handleMediaEvent(w http.ResponseWriter, r *http.Request) {
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}
	if s.mediaProbe {
		httputil.WriteError(w, http.StatusConflict, "media events are reported by the server probe")
		return
	}

	var body mediaEventRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var ev attempt.Event
	switch body.Event {
	case "loaded":
		ev = attempt.MediaLoaded(body.Token)
	case "error":
		ev = attempt.MediaError(body.Token)
	default:
		httputil.WriteError(w, http.StatusBadRequest, "event must be loaded or error")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sess.Dispatch(ev))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sess.Reset())
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}
	target := sess.Snapshot().Attempt.RequestURL
	if target == "" {
		httputil.WriteError(w, http.StatusNotFound, "no generated video")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}
	target := sess.Snapshot().Attempt.RequestURL
	if target == "" {
		httputil.WriteError(w, http.StatusNotFound, "no generated video")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, downloadResponse{
		URL:      target,
		Filename: request.Filename(s.now()),
	})
}

// handlePreview builds the URL for the form in the query string without
// touching any session. Blank prompts are allowed here.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	form, msg := formFromQuery(r, s.sessions.Defaults())
	if msg == "" {
		form, msg = normalizeForm(form)
	}
	if msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, previewResponse{URL: request.Build(s.sessions.BaseURL(), form)})
}

func formFromQuery(r *http.Request, defaults request.Params) (request.Params, string) {
	q := r.URL.Query()
	form := defaults

	if q.Has("prompt") {
		form.Prompt = q.Get("prompt")
	}
	if q.Has("preset") {
		form.Preset = request.ParsePreset(q.Get("preset"))
	}
	if q.Has("quality") {
		form.Quality = request.Quality(q.Get("quality"))
	}
	if q.Has("key") {
		form.Key = q.Get("key")
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{"private", &form.Private},
		{"enhance", &form.Enhance},
		{"nologo", &form.NoLogo},
	}
	for _, f := range flags {
		if !q.Has(f.name) {
			continue
		}
		v, err := strconv.ParseBool(q.Get(f.name))
		if err != nil {
			return form, f.name + " must be true or false"
		}
		*f.dst = v
	}
	return form, ""
}
