// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the engine over HTTP: generation triggers,
// draft and presentation records, and the server-sent-event status and
// outline streams.
// Implements: prd007-http-api (R1-R4), prd005-status-channel (R1-R2);
//
//	docs/ARCHITECTURE § HTTP Surface.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/generation"
	"github.com/pdiddy/deck-engine/internal/pipeline"
	"github.com/pdiddy/deck-engine/internal/store"
	"github.com/pdiddy/deck-engine/pkg/types"
)

// Handlers carries the server's collaborators.
type Handlers struct {
	Store      store.Store
	Controller *generation.Controller
	Pipeline   *pipeline.Pipeline
	Config     types.ServerConfig
	Log        *zap.Logger
}

func (h *Handlers) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// NewServer builds the HTTP server with all routes registered.
func NewServer(h *Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/generations", h.HandleStartGeneration)
	mux.HandleFunc("GET /api/presentations", h.HandleListPresentations)
	mux.HandleFunc("GET /api/presentations/{id}", h.HandleGetPresentation)
	mux.HandleFunc("PATCH /api/presentations/{id}", h.HandlePatchPresentation)
	mux.HandleFunc("DELETE /api/presentations/{id}", h.HandleDeletePresentation)
	mux.HandleFunc("GET /api/presentations/{id}/events", h.HandlePresentationEvents)

	mux.HandleFunc("POST /api/outline/stream", h.HandleOutlineStream)

	mux.HandleFunc("GET /api/drafts", h.HandleListDrafts)
	mux.HandleFunc("GET /api/drafts/{id}", h.HandleGetDraft)
	mux.HandleFunc("PATCH /api/drafts/{id}", h.HandlePatchDraft)
	mux.HandleFunc("DELETE /api/drafts/{id}", h.HandleDeleteDraft)

	bind := h.Config.Bind
	if bind == "" {
		bind = "127.0.0.1"
	}
	port := h.Config.Port
	if port == 0 {
		port = 8080
	}

	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", bind, port),
		Handler: h.requestLogging(mux),
	}
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *Handlers) requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		h.logger().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// Run serves until SIGINT/SIGTERM, then drains the HTTP server and waits
// for in-flight generation jobs.
func Run(srv *http.Server, h *Handlers) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	h.logger().Info("listening", zap.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		h.logger().Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		if h.Controller != nil {
			return h.Controller.Shutdown(ctx)
		}
		return nil
	}
}
