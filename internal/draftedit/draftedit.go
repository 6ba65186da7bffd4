// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package draftedit applies outline edits to persisted drafts: deck and
// slide retitling, bullet replacement, and slide reordering. Edits are
// validated against the outline before anything is written.
// Implements: prd006-record-store (R5);
//
//	docs/ARCHITECTURE § Draft Editing.
package draftedit

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/deck-engine/internal/store"
	"github.com/pdiddy/deck-engine/pkg/types"
)

// SlideTitleEdit retitles one slide.
type SlideTitleEdit struct {
	Index int    `json:"index"`
	Title string `json:"title"`
}

// BulletsEdit replaces one slide's bullets wholesale.
type BulletsEdit struct {
	Index   int      `json:"index"`
	Bullets []string `json:"bullets"`
}

// Edit is one batch of outline changes. Nil fields are skipped; the
// order of application is deck title, slide titles, bullets, reorder.
type Edit struct {
	// Title renames the deck.
	Title *string `json:"title,omitempty"`

	// SlideTitles renames individual slides.
	SlideTitles []SlideTitleEdit `json:"slideTitles,omitempty"`

	// Bullets replaces individual slides' bullets.
	Bullets []BulletsEdit `json:"bullets,omitempty"`

	// Reorder is a permutation of current slide positions: the slide at
	// old position Reorder[i] moves to position i.
	Reorder []int `json:"reorder,omitempty"`
}

// Apply returns a new outline with e applied, leaving the input intact.
// Slide indexes are renumbered to stay gap-free after a reorder.
func Apply(outline types.Outline, e Edit) (types.Outline, error) {
	out := outline
	out.Slides = make([]types.OutlineSlide, len(outline.Slides))
	for i, s := range outline.Slides {
		cp := s
		cp.Bullets = append([]string(nil), s.Bullets...)
		out.Slides[i] = cp
	}

	if e.Title != nil {
		if strings.TrimSpace(*e.Title) == "" {
			return types.Outline{}, fmt.Errorf("draftedit: deck title cannot be empty")
		}
		out.Title = *e.Title
	}

	for _, st := range e.SlideTitles {
		if st.Index < 0 || st.Index >= len(out.Slides) {
			return types.Outline{}, fmt.Errorf("draftedit: slide index %d out of range", st.Index)
		}
		if strings.TrimSpace(st.Title) == "" {
			return types.Outline{}, fmt.Errorf("draftedit: slide %d title cannot be empty", st.Index)
		}
		out.Slides[st.Index].Title = st.Title
	}

	for _, be := range e.Bullets {
		if be.Index < 0 || be.Index >= len(out.Slides) {
			return types.Outline{}, fmt.Errorf("draftedit: slide index %d out of range", be.Index)
		}
		out.Slides[be.Index].Bullets = append([]string(nil), be.Bullets...)
	}

	if e.Reorder != nil {
		reordered, err := reorder(out.Slides, e.Reorder)
		if err != nil {
			return types.Outline{}, err
		}
		out.Slides = reordered
	}

	for i := range out.Slides {
		out.Slides[i].Index = i
	}
	return out, nil
}

// reorder validates that perm is a complete permutation before moving
// anything.
func reorder(slides []types.OutlineSlide, perm []int) ([]types.OutlineSlide, error) {
	if len(perm) != len(slides) {
		return nil, fmt.Errorf("draftedit: reorder has %d positions, outline has %d slides", len(perm), len(slides))
	}
	seen := make([]bool, len(slides))
	out := make([]types.OutlineSlide, len(slides))
	for i, from := range perm {
		if from < 0 || from >= len(slides) {
			return nil, fmt.Errorf("draftedit: reorder position %d out of range", from)
		}
		if seen[from] {
			return nil, fmt.Errorf("draftedit: reorder repeats position %d", from)
		}
		seen[from] = true
		out[i] = slides[from]
	}
	return out, nil
}

// ApplyToDraft loads the draft, applies e, and writes the result back as
// a merge update.
func ApplyToDraft(ctx context.Context, st store.Store, id, ownerID string, e Edit) (types.Draft, error) {
	d, err := st.GetDraft(ctx, id, ownerID)
	if err != nil {
		return types.Draft{}, err
	}

	outline, err := Apply(d.Outline, e)
	if err != nil {
		return types.Draft{}, err
	}

	patch := store.DraftPatch{Outline: &outline}
	if e.Title != nil {
		patch.Title = e.Title
	}
	return st.UpdateDraft(ctx, id, ownerID, patch)
}
