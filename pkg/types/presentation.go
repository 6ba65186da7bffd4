// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Status tracks a Presentation through its generation lifecycle.
// Per prd004-generation-jobs R1.1.
type Status string

const (
	// StatusGenerating means the background job is still producing slides.
	StatusGenerating Status = "generating"

	// StatusCompleted means the job finished and slides are populated.
	StatusCompleted Status = "completed"

	// StatusFailed means the job failed; ErrorMessage carries the cause.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status admits no further transition (R1.3).
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// OutlineSlide is a lightweight slide skeleton: a title plus bullet points,
// no speaker notes or citations. Index is assigned at emission time in
// stream order, 0-based and gap-free. Per prd003-outline-streaming R2.1.
type OutlineSlide struct {
	// Index is the slide's position in stream order.
	Index int `json:"index" yaml:"index"`

	// Title is the slide heading.
	Title string `json:"title" yaml:"title"`

	// Bullets are the slide's bullet points, list markers stripped.
	Bullets []string `json:"bullets" yaml:"bullets"`
}

// Outline is a titled sequence of outline slides.
type Outline struct {
	// Title is the deck title.
	Title string `json:"title" yaml:"title"`

	// Slides are the outline slides in presentation order.
	Slides []OutlineSlide `json:"slides" yaml:"slides"`
}

// Slide is a fully expanded slide derived from an OutlineSlide by the
// content-expansion backend. Per prd004-generation-jobs R2.2.
type Slide struct {
	// Index matches the originating outline slide's index.
	Index int `json:"index" yaml:"index"`

	// Title is the slide heading.
	Title string `json:"title" yaml:"title"`

	// Body is the slide's full body text in Markdown.
	Body string `json:"body" yaml:"body"`

	// SpeakerNotes hold the presenter narration for the slide.
	SpeakerNotes string `json:"speaker_notes,omitempty" yaml:"speaker_notes,omitempty"`

	// Citations lists source attributions for the slide's content.
	Citations []string `json:"citations,omitempty" yaml:"citations,omitempty"`
}

// Draft is a persisted outline produced by the streaming pipeline. Drafts
// are created once an outline finishes streaming and mutated only by
// outline edits; the core never deletes them. Per prd006-record-store R2.1.
type Draft struct {
	// ID is the draft's record identifier.
	ID string `json:"id" yaml:"id"`

	// OwnerID scopes the draft to its creator.
	OwnerID string `json:"owner_id" yaml:"owner_id"`

	// Title is the deck title, usually the outline title.
	Title string `json:"title" yaml:"title"`

	// Prompt is the raw topic the user entered.
	Prompt string `json:"prompt" yaml:"prompt"`

	// EnhancedPrompt is the enhancement stage's rewrite, when one was produced.
	EnhancedPrompt string `json:"enhanced_prompt,omitempty" yaml:"enhanced_prompt,omitempty"`

	// Outline is the streamed slide skeleton.
	Outline Outline `json:"outline" yaml:"outline"`

	// CreatedAt is the record creation time (UTC).
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// UpdatedAt is the last modification time (UTC).
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// TokenUsage records completion-service token consumption for one
// generation run.
type TokenUsage struct {
	// Total is the combined prompt and completion token count.
	Total int64 `json:"total" yaml:"total"`
}

// Presentation is the unit of background generation. It is created with
// StatusGenerating and empty Slides the instant a generation request is
// accepted, then mutated exactly once more by the job controller to a
// terminal status. Per prd004-generation-jobs R1.1-R1.4.
type Presentation struct {
	// ID is the presentation's record identifier.
	ID string `json:"id" yaml:"id"`

	// OwnerID scopes the presentation to its creator.
	OwnerID string `json:"owner_id" yaml:"owner_id"`

	// DraftID references the originating draft. Multiple presentations may
	// reference the same draft, each with an independent lifecycle.
	DraftID string `json:"draft_id" yaml:"draft_id"`

	// Title is the deck title.
	Title string `json:"title" yaml:"title"`

	// Outline is the skeleton the slides were expanded from.
	Outline Outline `json:"outline" yaml:"outline"`

	// Slides are the expanded slides; empty until the job completes.
	Slides []Slide `json:"slides" yaml:"slides"`

	// CitationStyle selects how citations are formatted (e.g. "apa").
	CitationStyle string `json:"citation_style,omitempty" yaml:"citation_style,omitempty"`

	// Theme is the visual theme name; opaque to the core.
	Theme string `json:"theme,omitempty" yaml:"theme,omitempty"`

	// Status is the generation lifecycle state. It transitions at most once
	// after creation and only through the job controller's transition
	// methods; the general update path cannot touch it.
	Status Status `json:"status" yaml:"status"`

	// ErrorMessage carries the failure cause when Status is failed.
	ErrorMessage string `json:"error_message,omitempty" yaml:"error_message,omitempty"`

	// TokenUsage is the completion-service consumption for the run.
	TokenUsage TokenUsage `json:"token_usage" yaml:"token_usage"`

	// Version increments on every store write; the terminal status write is
	// version-checked so concurrent updates fail loudly instead of
	// clobbering each other.
	Version int64 `json:"version" yaml:"version"`

	// CreatedAt is the record creation time (UTC).
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// UpdatedAt is the last modification time (UTC).
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}
