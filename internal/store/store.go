// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists drafts and presentations behind a key-addressed
// record store interface. Two backends conform: an in-memory map for tests
// and ephemeral runs, and SQLite for durable deployments. Callers must not
// depend on which backend they are given.
// Implements: prd006-record-store (R1-R4);
//
//	docs/ARCHITECTURE § Record Store.
package store

import (
	"context"
	"errors"

	"github.com/pdiddy/deck-engine/pkg/types"
)

var (
	// ErrNotFound means no record has the given id, or the owner scope
	// does not match. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict means a version-checked write observed a
	// different version than expected. The write did not happen.
	ErrVersionConflict = errors.New("record version conflict")

	// ErrTerminal means a status transition was attempted on a
	// presentation already in a terminal status.
	ErrTerminal = errors.New("presentation already in terminal status")
)

// DraftPatch is a merge update for a draft. Nil fields are left untouched.
type DraftPatch struct {
	Title          *string
	EnhancedPrompt *string
	Outline        *types.Outline
}

// PresentationPatch is a merge update for a presentation. Nil fields are
// left untouched. Status is intentionally absent: the lifecycle state can
// only move through the transition methods, so no caller of the general
// update path can touch it.
type PresentationPatch struct {
	Title         *string
	CitationStyle *string
	Theme         *string
}

// Store is the record store consumed by the pipeline, the job controller,
// and the HTTP surface. All methods honor ctx cancellation. Updates are
// merge-by-id and atomic per call; ownerID scopes reads and writes when
// non-empty and is ignored when empty (internal callers).
type Store interface {
	CreateDraft(ctx context.Context, d types.Draft) (types.Draft, error)
	GetDraft(ctx context.Context, id, ownerID string) (types.Draft, error)
	UpdateDraft(ctx context.Context, id, ownerID string, p DraftPatch) (types.Draft, error)
	DeleteDraft(ctx context.Context, id, ownerID string) error
	ListDraftsByOwner(ctx context.Context, ownerID string) ([]types.Draft, error)

	CreatePresentation(ctx context.Context, p types.Presentation) (types.Presentation, error)
	GetPresentation(ctx context.Context, id, ownerID string) (types.Presentation, error)
	UpdatePresentation(ctx context.Context, id, ownerID string, p PresentationPatch) (types.Presentation, error)
	DeletePresentation(ctx context.Context, id, ownerID string) error
	ListPresentationsByOwner(ctx context.Context, ownerID string) ([]types.Presentation, error)

	// CompleteGeneration moves a generating presentation to completed,
	// populating slides and token usage. The write is version-checked:
	// ErrVersionConflict if the record moved since expectedVersion,
	// ErrTerminal if the status already left generating.
	CompleteGeneration(ctx context.Context, id string, expectedVersion int64, slides []types.Slide, usage types.TokenUsage) (types.Presentation, error)

	// FailGeneration moves a generating presentation to failed with the
	// given error message. Version semantics as CompleteGeneration.
	FailGeneration(ctx context.Context, id string, expectedVersion int64, message string) (types.Presentation, error)

	Close() error
}

// applyDraftPatch merges p into d.
func applyDraftPatch(d *types.Draft, p DraftPatch) {
	if p.Title != nil {
		d.Title = *p.Title
	}
	if p.EnhancedPrompt != nil {
		d.EnhancedPrompt = *p.EnhancedPrompt
	}
	if p.Outline != nil {
		d.Outline = *p.Outline
	}
}

// applyPresentationPatch merges p into pr.
func applyPresentationPatch(pr *types.Presentation, p PresentationPatch) {
	if p.Title != nil {
		pr.Title = *p.Title
	}
	if p.CitationStyle != nil {
		pr.CitationStyle = *p.CitationStyle
	}
	if p.Theme != nil {
		pr.Theme = *p.Theme
	}
}
