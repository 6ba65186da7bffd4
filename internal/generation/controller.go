// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/store"
	"github.com/pdiddy/deck-engine/pkg/types"
)

const defaultMaxConcurrentJobs = 4

// StartRequest parameterizes one generation job.
type StartRequest struct {
	// DraftID names the originating draft. Required.
	DraftID string

	// OwnerID scopes the new presentation. Required.
	OwnerID string

	// Outline is the deck to expand. Must have at least one slide.
	Outline types.Outline

	// CitationStyle and Theme are stored on the presentation verbatim.
	CitationStyle string
	Theme         string
}

// Controller creates presentation records and runs generation jobs
// detached from the requests that started them.
type Controller struct {
	Store    store.Store
	Expander Expander
	Config   types.GenerationConfig
	Log      *zap.Logger

	wg      sync.WaitGroup
	semOnce sync.Once
	sem     chan struct{}
}

func (c *Controller) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

func (c *Controller) semaphore() chan struct{} {
	c.semOnce.Do(func() {
		n := c.Config.MaxConcurrentJobs
		if n <= 0 {
			n = defaultMaxConcurrentJobs
		}
		c.sem = make(chan struct{}, n)
	})
	return c.sem
}

// StartGeneration validates req, synchronously creates the generating
// presentation record, and returns its id. Slide expansion runs in a
// tracked background goroutine that outlives ctx: callers disconnecting
// never cancels the job. Every call creates a fresh record.
func (c *Controller) StartGeneration(ctx context.Context, req StartRequest) (string, error) {
	if len(req.Outline.Slides) == 0 {
		return "", errors.New("generation: outline has no slides")
	}
	if req.DraftID == "" {
		return "", errors.New("generation: draft id is required")
	}
	if req.OwnerID == "" {
		return "", errors.New("generation: owner id is required")
	}

	created, err := c.Store.CreatePresentation(ctx, types.Presentation{
		OwnerID:       req.OwnerID,
		DraftID:       req.DraftID,
		Title:         req.Outline.Title,
		Outline:       req.Outline,
		CitationStyle: req.CitationStyle,
		Theme:         req.Theme,
		Status:        types.StatusGenerating,
	})
	if err != nil {
		return "", fmt.Errorf("generation: creating presentation: %w", err)
	}

	c.wg.Add(1)
	go c.run(context.WithoutCancel(ctx), created, req)

	return created.ID, nil
}

// Shutdown waits for in-flight jobs to finish, or for ctx to expire.
func (c *Controller) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("generation: shutdown: %w", ctx.Err())
	}
}

// run is the detached job body. It never returns an error; outcomes land
// in the store or, when the final write itself fails, in the log.
func (c *Controller) run(ctx context.Context, created types.Presentation, req StartRequest) {
	defer c.wg.Done()

	sem := c.semaphore()
	sem <- struct{}{}
	defer func() { <-sem }()

	log := c.logger().With(
		zap.String("presentation_id", created.ID),
		zap.String("draft_id", req.DraftID),
	)

	expand := ExpandRequest{
		Outline:       req.Outline,
		CitationStyle: req.CitationStyle,
	}
	// The draft is best-effort context: a deleted draft leaves the
	// prompt fields empty but does not fail the job.
	if d, err := c.Store.GetDraft(ctx, req.DraftID, ""); err == nil {
		expand.Prompt = d.Prompt
		expand.EnhancedPrompt = d.EnhancedPrompt
	} else {
		log.Warn("draft not readable, expanding without prompt context", zap.Error(err))
	}

	slides, usage, err := c.Expander.Expand(ctx, expand)
	if err != nil {
		log.Error("slide expansion failed", zap.Error(err))
		c.finish(ctx, log, func() error {
			_, ferr := c.Store.FailGeneration(ctx, created.ID, created.Version, err.Error())
			return ferr
		})
		return
	}

	log.Info("slide expansion finished",
		zap.Int("slides", len(slides)),
		zap.Int64("tokens", usage.Total))
	c.finish(ctx, log, func() error {
		_, ferr := c.Store.CompleteGeneration(ctx, created.ID, created.Version, slides, usage)
		return ferr
	})
}

// finish applies the terminal store write. Failures are logged and not
// retried; a version conflict means another writer moved the record and
// deserves a loud log line of its own.
func (c *Controller) finish(_ context.Context, log *zap.Logger, write func() error) {
	err := write()
	switch {
	case err == nil:
	case errors.Is(err, store.ErrVersionConflict):
		log.Error("terminal status write lost a version race, record left as found", zap.Error(err))
	default:
		log.Error("terminal status write failed, record left generating", zap.Error(err))
	}
}
