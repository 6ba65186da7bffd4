// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generation runs detached presentation-generation jobs: it
// creates the presentation record synchronously, expands each outline
// slide into full content in the background, and writes the terminal
// status through version-checked store transitions.
// Implements: prd004-generation-jobs (R1-R4);
//
//	docs/ARCHITECTURE § Generation Jobs.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/deck-engine/internal/completion"
	"github.com/pdiddy/deck-engine/pkg/types"
)

const defaultSlideConcurrency = 3

// ExpandRequest carries everything the expander needs for one deck.
type ExpandRequest struct {
	// Prompt and EnhancedPrompt give the expander the deck's intent.
	// Both may be empty when the originating draft is gone.
	Prompt         string
	EnhancedPrompt string

	// Outline lists the slides to expand, in order.
	Outline types.Outline

	// CitationStyle names the requested citation format, if any.
	CitationStyle string
}

// Expander turns outline slides into full slide content.
type Expander interface {
	Expand(ctx context.Context, req ExpandRequest) ([]types.Slide, types.TokenUsage, error)
}

// slideSystem asks for one expanded slide as JSON.
const slideSystem = `You are writing the full content for one presentation slide.

Given the deck topic, the slide title, and its outline bullets, write:
  - "body": the slide's full text in Markdown, expanding every bullet.
  - "speaker_notes": two or three sentences of presenter narration.
  - "citations": an array of source strings, empty if none apply.

Respond with a single JSON object {"body": "...", "speaker_notes": "...",
"citations": []} and nothing else.`

// CompletionExpander expands slides with one completion call per slide,
// a bounded number in flight at a time. Output order matches the outline
// regardless of completion order.
type CompletionExpander struct {
	Client      completion.Client
	Concurrency int
}

type slideReply struct {
	Body         string   `json:"body"`
	SpeakerNotes string   `json:"speaker_notes"`
	Citations    []string `json:"citations"`
}

// Expand fails the whole deck as soon as any slide fails; remaining
// in-flight calls are cancelled through the group context.
func (e *CompletionExpander) Expand(ctx context.Context, req ExpandRequest) ([]types.Slide, types.TokenUsage, error) {
	limit := e.Concurrency
	if limit <= 0 {
		limit = defaultSlideConcurrency
	}

	slides := make([]types.Slide, len(req.Outline.Slides))
	var tokens atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, os := range req.Outline.Slides {
		g.Go(func() error {
			res, err := e.Client.Complete(gctx, slideSystem, slideUser(req, os))
			if err != nil {
				return fmt.Errorf("slide %d (%s): %w", os.Index, os.Title, err)
			}
			tokens.Add(res.Tokens)
			slides[i] = parseSlide(os, res.Text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, types.TokenUsage{}, err
	}
	return slides, types.TokenUsage{Total: tokens.Load()}, nil
}

func slideUser(req ExpandRequest, s types.OutlineSlide) string {
	var sb strings.Builder
	topic := req.EnhancedPrompt
	if topic == "" {
		topic = req.Prompt
	}
	fmt.Fprintf(&sb, "Deck topic: %s\n", topic)
	if req.CitationStyle != "" {
		fmt.Fprintf(&sb, "Citation style: %s\n", req.CitationStyle)
	}
	fmt.Fprintf(&sb, "\nSlide %d: %s\n", s.Index, s.Title)
	for _, b := range s.Bullets {
		fmt.Fprintf(&sb, "- %s\n", b)
	}
	return sb.String()
}

// parseSlide accepts the JSON reply shape, falling back to the raw text
// as the body when the model ignored the format.
func parseSlide(os types.OutlineSlide, text string) types.Slide {
	slide := types.Slide{Index: os.Index, Title: os.Title}

	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		if i := strings.Index(trimmed, "\n"); i >= 0 {
			trimmed = trimmed[i+1:]
		}
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}

	var reply slideReply
	if err := json.Unmarshal([]byte(trimmed), &reply); err != nil || reply.Body == "" {
		slide.Body = strings.TrimSpace(text)
		return slide
	}
	slide.Body = reply.Body
	slide.SpeakerNotes = reply.SpeakerNotes
	slide.Citations = reply.Citations
	return slide
}
