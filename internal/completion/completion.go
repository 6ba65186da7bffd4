// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package completion abstracts the text-completion service behind a narrow
// client interface so stages and tests can swap implementations.
// Implements: prd001-prompt-enhancement (R3), prd003-outline-streaming (R1);
//
//	docs/ARCHITECTURE § Completion Service.
package completion

import "context"

// Result is the outcome of one completion call.
type Result struct {
	// Text is the full generated text.
	Text string

	// Tokens is the total token count reported by the service, 0 when the
	// service does not report usage.
	Tokens int64
}

// ChunkFunc receives one incremental text chunk from a streaming
// completion. Chunk boundaries are arbitrary: a chunk may end mid-word,
// mid-line, or mid-separator. Returning an error aborts the stream.
type ChunkFunc func(chunk string) error

// Client is a text-completion service. Both calls are potential suspension
// points and honor ctx cancellation.
type Client interface {
	// Complete generates text for the system and user instructions and
	// returns it whole.
	Complete(ctx context.Context, system, user string) (Result, error)

	// Stream generates text for the system and user instructions,
	// delivering it incrementally through fn in arrival order. The
	// returned Result carries the concatenated text and token usage.
	Stream(ctx context.Context, system, user string, fn ChunkFunc) (Result, error)
}
