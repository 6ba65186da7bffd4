// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/completion"
	"github.com/pdiddy/deck-engine/internal/enhance"
	"github.com/pdiddy/deck-engine/internal/outline"
	"github.com/pdiddy/deck-engine/internal/research"
	"github.com/pdiddy/deck-engine/internal/search"
	"github.com/pdiddy/deck-engine/internal/store"
	"github.com/pdiddy/deck-engine/pkg/types"
)

// Sink receives pipeline progress events in emission order. Calls are
// serialized; implementations need no locking of their own.
type Sink func(types.StreamEvent)

// RunInput parameterizes one pipeline run.
type RunInput struct {
	// Prompt is the raw topic text.
	Prompt string

	// OwnerID scopes the persisted draft.
	OwnerID string

	// Research enables the web research stage.
	Research bool
}

// RunResult carries everything the run produced, including partial
// results from stages that completed before a later stage failed.
type RunResult struct {
	Enhancement types.EnhancementResult
	Bundle      *types.ResearchBundle
	Outline     types.Outline
	Draft       types.Draft
	Usage       types.TokenUsage
}

// Pipeline wires the stages to their backends.
type Pipeline struct {
	Completion completion.Client
	Search     search.Backend
	Store      store.Store
	Research   types.ResearchConfig
	SearchCfg  types.SearchConfig
	Log        *zap.Logger
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

// sinkEmitter adapts the slide parser's emissions to stream events and
// collects completed slides.
type sinkEmitter struct {
	ctx    context.Context
	sink   Sink
	slides []types.OutlineSlide
}

func (e *sinkEmitter) ContentChunk(chunk string) {
	e.emit(types.StreamEvent{Type: types.EventContentChunk, Chunk: chunk})
}

func (e *sinkEmitter) SlideComplete(s types.OutlineSlide) {
	e.slides = append(e.slides, s)
	slide := s
	e.emit(types.StreamEvent{Type: types.EventSlideComplete, Index: s.Index, Parsed: &slide})
}

// emit drops events once the run is cancelled so a detached listener
// never observes output past the cancellation point.
func (e *sinkEmitter) emit(ev types.StreamEvent) {
	if e.ctx.Err() != nil {
		return
	}
	e.sink(ev)
}

// Run executes enhance, optional research, and outline streaming, then
// persists the draft. The returned RunResult holds whatever the
// completed stages produced even when a later stage failed.
func (p *Pipeline) Run(ctx context.Context, in RunInput, sink Sink) (RunResult, error) {
	var out RunResult
	emit := func(ev types.StreamEvent) {
		if ctx.Err() == nil {
			sink(ev)
		}
	}

	emit(types.StreamEvent{
		Type:           types.EventPreprocessing,
		Status:         "enhancing",
		OriginalPrompt: in.Prompt,
	})

	result, err := enhance.Enhance(ctx, p.Completion, in.Prompt)
	if err != nil {
		emit(types.StreamEvent{Type: types.EventError, Message: err.Error()})
		return out, err
	}
	out.Enhancement = result
	if !result.IsValid {
		err := fmt.Errorf("enhancement: prompt rejected: %s", strings.Join(result.Warnings, "; "))
		emit(types.StreamEvent{Type: types.EventError, Message: err.Error()})
		return out, err
	}
	emit(types.StreamEvent{
		Type:           types.EventPreprocessing,
		Status:         "enhanced",
		EnhancedPrompt: result.EnhancedText,
	})

	if in.Research {
		bundle, err := p.runResearch(ctx, result.EnhancedText, emit)
		if err != nil {
			emit(types.StreamEvent{Type: types.EventError, Message: err.Error()})
			return out, err
		}
		out.Bundle = bundle
	}

	ol, usage, err := p.streamOutline(ctx, result.EnhancedText, out.Bundle, emit)
	out.Outline = ol
	out.Usage = usage
	if err != nil {
		emit(types.StreamEvent{Type: types.EventError, Message: err.Error()})
		return out, err
	}

	draft, err := p.Store.CreateDraft(ctx, types.Draft{
		OwnerID:        in.OwnerID,
		Title:          ol.Title,
		Prompt:         in.Prompt,
		EnhancedPrompt: result.EnhancedText,
		Outline:        ol,
	})
	if err != nil {
		err = fmt.Errorf("outline: persisting draft: %w", err)
		emit(types.StreamEvent{Type: types.EventError, Message: err.Error()})
		return out, err
	}
	out.Draft = draft

	emit(types.StreamEvent{Type: types.EventDraftCreated, DraftID: draft.ID})
	emit(types.StreamEvent{Type: types.EventComplete, SlideCount: len(ol.Slides)})
	return out, nil
}

func (p *Pipeline) runResearch(ctx context.Context, topic string, emit Sink) (*types.ResearchBundle, error) {
	r := &research.Researcher{
		Completion: p.Completion,
		Search:     p.Search,
		Config:     p.Research,
		SearchCfg:  p.SearchCfg,
		Log:        p.logger(),
		OnQuery: func(q string) {
			emit(types.StreamEvent{Type: types.EventResearchQuery, Query: q})
		},
		OnSource: func(res types.SearchResult) {
			domain := search.Domain(res.URL)
			emit(types.StreamEvent{
				Type: types.EventResearchSource,
				Source: &types.EventSource{
					Domain:  domain,
					Favicon: search.FaviconURL(domain),
				},
			})
		},
	}

	sources := 0
	onSource := r.OnSource
	r.OnSource = func(res types.SearchResult) {
		sources++
		onSource(res)
	}

	bundle, err := r.Research(ctx, topic)
	if err != nil {
		return nil, err
	}
	emit(types.StreamEvent{Type: types.EventResearchComplete, SourceCount: sources})
	return &bundle, nil
}

// streamOutline runs the drafting completion as a stream through the
// incremental parser, emitting chunk and slide events as they confirm.
func (p *Pipeline) streamOutline(ctx context.Context, topic string, bundle *types.ResearchBundle, emit Sink) (types.Outline, types.TokenUsage, error) {
	emitter := &sinkEmitter{ctx: ctx, sink: emit}
	parser := outline.NewParser(emitter)

	res, err := p.Completion.Stream(ctx, outlineSystem, outlineUser(topic, bundle), func(chunk string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		parser.Feed(chunk)
		return nil
	})
	if err != nil {
		return types.Outline{}, types.TokenUsage{}, fmt.Errorf("outline: %w", err)
	}
	parser.Flush()

	if len(emitter.slides) == 0 {
		return types.Outline{}, types.TokenUsage{}, fmt.Errorf("outline: the model produced no slides")
	}

	ol := types.Outline{Title: emitter.slides[0].Title, Slides: emitter.slides}
	return ol, types.TokenUsage{Total: res.Tokens}, nil
}

// outlineUser builds the drafting prompt, appending research findings
// and frameworks when a bundle is present.
func outlineUser(topic string, bundle *types.ResearchBundle) string {
	var sb strings.Builder
	sb.WriteString("Topic: ")
	sb.WriteString(topic)
	if bundle == nil || (len(bundle.Findings) == 0 && len(bundle.Frameworks) == 0) {
		return sb.String()
	}

	sb.WriteString("\n\n")
	sb.WriteString(researchPreamble)
	for _, f := range bundle.Findings {
		fmt.Fprintf(&sb, "- %s (%s) [%s]\n", f.StatText, f.Context, f.Source.Domain)
	}
	for _, f := range bundle.Frameworks {
		fmt.Fprintf(&sb, "- Framework: %s: %s [%s]\n", f.Name, f.Description, f.Source.Domain)
	}
	return sb.String()
}
