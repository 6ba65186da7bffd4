// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// StreamEventType discriminates pipeline stream events.
// Per prd003-outline-streaming R4.1; docs/ARCHITECTURE § Outline Streaming.
type StreamEventType string

const (
	EventPreprocessing    StreamEventType = "preprocessing"
	EventResearchQuery    StreamEventType = "research_query"
	EventResearchSource   StreamEventType = "research_source"
	EventResearchComplete StreamEventType = "research_complete"
	EventContentChunk     StreamEventType = "content_chunk"
	EventSlideComplete    StreamEventType = "slide_complete"
	EventDraftCreated     StreamEventType = "draft_created"
	EventComplete         StreamEventType = "complete"
	EventError            StreamEventType = "error"
)

// StreamEvent is one pipeline progress event, serialized as a single JSON
// object per data line. Exactly the fields relevant to Type are populated.
type StreamEvent struct {
	// Type discriminates the event.
	Type StreamEventType `json:"type"`

	// Status is a short phase label for preprocessing events.
	Status string `json:"status,omitempty"`

	// OriginalPrompt echoes the raw prompt on preprocessing events.
	OriginalPrompt string `json:"originalPrompt,omitempty"`

	// EnhancedPrompt carries the enhancement rewrite on preprocessing events.
	EnhancedPrompt string `json:"enhancedPrompt,omitempty"`

	// Query is the search query on research_query events.
	Query string `json:"query,omitempty"`

	// Source identifies a consulted site on research_source events.
	Source *EventSource `json:"source,omitempty"`

	// SourceCount is the number of consulted results on research_complete.
	SourceCount int `json:"sourceCount,omitempty"`

	// Chunk is the raw streamed text on content_chunk events.
	Chunk string `json:"chunk,omitempty"`

	// Index is the completed slide's index on slide_complete events.
	Index int `json:"index,omitempty"`

	// Parsed is the completed slide on slide_complete events.
	Parsed *OutlineSlide `json:"parsed,omitempty"`

	// DraftID is the persisted draft's id on draft_created events.
	DraftID string `json:"draftId,omitempty"`

	// SlideCount is the total emitted slide count on complete events.
	SlideCount int `json:"slideCount,omitempty"`

	// Message is the failure description on error events.
	Message string `json:"message,omitempty"`
}

// EventSource is the research_source payload: just enough for a client to
// show which site is being consulted.
type EventSource struct {
	// Domain is the site's host, "www." stripped.
	Domain string `json:"domain"`

	// Favicon is a best-effort favicon URL for the domain.
	Favicon string `json:"favicon"`
}
