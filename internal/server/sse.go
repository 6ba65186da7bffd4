// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pdiddy/deck-engine/internal/pipeline"
	"github.com/pdiddy/deck-engine/internal/store"
	"github.com/pdiddy/deck-engine/pkg/types"
)

const defaultStatusInterval = 2 * time.Second

// sseWriter serializes server-sent events onto one response.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, bool) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	return &sseWriter{w: w, f: f}, true
}

// comment writes an SSE comment line, used for the connection handshake.
func (s *sseWriter) comment(text string) {
	fmt.Fprintf(s.w, ": %s\n\n", text)
	s.f.Flush()
}

// data writes an unnamed data event carrying v as JSON.
func (s *sseWriter) data(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.w, "data: %s\n\n", payload)
	s.f.Flush()
	return nil
}

// event writes a named event carrying v as JSON.
func (s *sseWriter) event(name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, payload)
	s.f.Flush()
	return nil
}

// HandlePresentationEvents streams a presentation's state over SSE until
// it reaches a terminal status or the client disconnects. The record is
// re-read on a fixed interval; every read is pushed in full, so a late
// subscriber always converges on the current state.
func (h *Handlers) HandlePresentationEvents(w http.ResponseWriter, r *http.Request) {
	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	sse.comment("connected")

	id := r.PathValue("id")
	o := owner(r)

	push := func() (done bool) {
		p, err := h.Store.GetPresentation(r.Context(), id, o)
		if err != nil {
			msg := "presentation not found"
			if !errors.Is(err, store.ErrNotFound) {
				h.logError("status read failed", err)
				msg = "presentation could not be read"
			}
			sse.event("error", errorBody{Message: msg})
			return true
		}
		if err := sse.data(p); err != nil {
			h.logError("status push failed", err)
			return true
		}
		if p.Status.Terminal() {
			sse.event("complete", map[string]string{"status": string(p.Status)})
			return true
		}
		return false
	}

	if push() {
		return
	}

	interval := h.Config.StatusInterval
	if interval <= 0 {
		interval = defaultStatusInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if push() {
				return
			}
		}
	}
}

type outlineStreamRequest struct {
	Prompt   string `json:"prompt"`
	OwnerID  string `json:"ownerId"`
	Research bool   `json:"research"`
}

// HandleOutlineStream runs the outline pipeline and streams its events
// as SSE data lines. Stage failures arrive as error events on the
// stream; the HTTP status is already 200 by then.
func (h *Handlers) HandleOutlineStream(w http.ResponseWriter, r *http.Request) {
	var req outlineStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "ownerId is required")
		return
	}

	sse, ok := newSSEWriter(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	sse.comment("connected")

	_, err := h.Pipeline.Run(r.Context(), pipeline.RunInput{
		Prompt:   req.Prompt,
		OwnerID:  req.OwnerID,
		Research: req.Research,
	}, func(ev types.StreamEvent) {
		if err := sse.data(ev); err != nil {
			h.logError("outline event push failed", err)
		}
	})
	if err != nil {
		// The pipeline already emitted the error event; the log line is
		// for the server operator.
		h.logError("outline stream run failed", err)
	}
}
