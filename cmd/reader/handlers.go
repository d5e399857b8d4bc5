package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"paper-reader/internal/app"
	"paper-reader/internal/chat"
	"paper-reader/internal/httputil"
	"paper-reader/internal/render"
)

type generationPayload struct {
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

func (p generationPayload) params() chat.Params {
	params := chat.DefaultParams()
	if p.Temperature != nil {
		params.Temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		params.MaxTokens = *p.MaxTokens
	}
	return params
}

type messagePayload struct {
	Prompt string `json:"prompt"`
	generationPayload
}

type urlPayload struct {
	URL string `json:"url" validate:"required,http_url"`
}

type transcriptEvent struct {
	History []chat.Turn `json:"history"`
	Reply   string      `json:"reply"`
	Error   string      `json:"error,omitempty"`
}

type doneEvent struct {
	Presets []string `json:"presets"`
}

func presetsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, doneEvent{Presets: chat.PresetQuestions})
	}
}

func createSessionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := deps.Assistant.CreateSession(r.Context())
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to create session", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, s)
	}
}

func sessionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(deps, w, r)
		if !ok {
			return
		}
		s, err := deps.Assistant.Session(r.Context(), id)
		if err != nil {
			httputil.FailError(deps.Log, w, "session lookup failed", err)
			return
		}
		if r.URL.Query().Get("format") != "html" {
			httputil.WriteJSON(w, http.StatusOK, s)
			return
		}
		page, err := render.Transcript(s.History)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to render transcript", err, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, page); err != nil {
			deps.Log.Warn("transcript write failed", "err", err)
		}
	}
}

func uploadHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(deps, w, r)
		if !ok {
			return
		}
		if maxFileSize > 0 {
			if r.ContentLength > maxFileSize {
				httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxFileSize)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
			httputil.Fail(deps.Log, w, "unsupported file type (only PDF allowed)", nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), err, http.StatusBadRequest)
				return
			}
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}

		res, err := deps.Assistant.Upload(r.Context(), id, header.Filename, content)
		if err != nil {
			httputil.FailError(deps.Log.With("session_id", id), w, "upload failed", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, res)
	}
}

func uploadURLHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(deps, w, r)
		if !ok {
			return
		}
		var p urlPayload
		if err := httputil.DecodeJSON(r, &p); err != nil {
			httputil.FailError(deps.Log, w, "invalid request", err)
			return
		}
		res, err := deps.Assistant.UploadURL(r.Context(), id, p.URL)
		if err != nil {
			httputil.FailError(deps.Log.With("session_id", id), w, "upload failed", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, res)
	}
}

func summaryHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(deps, w, r)
		if !ok {
			return
		}
		var p generationPayload
		if err := httputil.DecodeJSON(r, &p); err != nil {
			httputil.FailError(deps.Log, w, "invalid request", err)
			return
		}
		snapshots, err := deps.Assistant.Summarize(r.Context(), id, p.params())
		if err != nil {
			httputil.FailError(deps.Log.With("session_id", id), w, "summary failed", err)
			return
		}
		stream(deps, w, snapshots)
	}
}

func messageHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := sessionID(deps, w, r)
		if !ok {
			return
		}
		var p messagePayload
		if err := httputil.DecodeJSON(r, &p); err != nil {
			httputil.FailError(deps.Log, w, "invalid request", err)
			return
		}
		snapshots, err := deps.Assistant.Ask(r.Context(), id, p.Prompt, p.params())
		if err != nil {
			httputil.FailError(deps.Log.With("session_id", id), w, "message failed", err)
			return
		}
		stream(deps, w, snapshots)
	}
}

func summariesHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				httputil.Fail(deps.Log, w, "invalid limit", err, http.StatusBadRequest)
				return
			}
			limit = n
		}
		items, err := deps.Archive.ListSummaries(r.Context(), limit)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to list summaries", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"summaries": items})
	}
}

// stream relays transcript snapshots as SSE and ends with the preset questions.
// The channel is always drained so the producer can persist the final transcript.
func stream(deps app.Deps, w http.ResponseWriter, snapshots <-chan chat.Snapshot) {
	sse, err := httputil.NewSSE(w)
	if err != nil {
		for range snapshots {
		}
		httputil.Fail(deps.Log, w, "streaming unsupported", err, http.StatusInternalServerError)
		return
	}

	var writeErr error
	for snap := range snapshots {
		if writeErr != nil {
			continue
		}
		ev := transcriptEvent{History: snap.Turns, Reply: snap.Reply}
		if snap.Err != nil {
			ev.Error = snap.Err.Error()
		}
		writeErr = sse.Event("transcript", ev)
	}
	if writeErr != nil {
		deps.Log.Warn("client went away during stream", "err", writeErr)
		return
	}
	if err := sse.Event("done", doneEvent{Presets: chat.PresetQuestions}); err != nil {
		deps.Log.Warn("failed to send done event", "err", err)
	}
}

func sessionID(deps app.Deps, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(deps.Log, w, "invalid session id", err, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
