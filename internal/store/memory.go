// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/deck-engine/pkg/types"
)

// Memory is an in-memory Store for tests and ephemeral runs. All records
// are deep-copied on the way in and out so callers never share slices
// with the store.
type Memory struct {
	mu            sync.RWMutex
	drafts        map[string]types.Draft
	presentations map[string]types.Presentation
	now           func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		drafts:        make(map[string]types.Draft),
		presentations: make(map[string]types.Presentation),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Close is a no-op for the in-memory backend.
func (m *Memory) Close() error { return nil }

func copyDraft(d types.Draft) types.Draft {
	out := d
	out.Outline = copyOutline(d.Outline)
	return out
}

func copyOutline(o types.Outline) types.Outline {
	out := o
	out.Slides = make([]types.OutlineSlide, len(o.Slides))
	for i, s := range o.Slides {
		cp := s
		cp.Bullets = append([]string(nil), s.Bullets...)
		out.Slides[i] = cp
	}
	return out
}

func copyPresentation(p types.Presentation) types.Presentation {
	out := p
	out.Outline = copyOutline(p.Outline)
	out.Slides = make([]types.Slide, len(p.Slides))
	for i, s := range p.Slides {
		cp := s
		cp.Citations = append([]string(nil), s.Citations...)
		out.Slides[i] = cp
	}
	return out
}

// CreateDraft stores d, assigning an id and timestamps when absent.
func (m *Memory) CreateDraft(_ context.Context, d types.Draft) (types.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := m.now()
	d.CreatedAt = now
	d.UpdatedAt = now
	m.drafts[d.ID] = copyDraft(d)
	return copyDraft(d), nil
}

// GetDraft returns the draft with the given id within the owner scope.
func (m *Memory) GetDraft(_ context.Context, id, ownerID string) (types.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.drafts[id]
	if !ok || (ownerID != "" && d.OwnerID != ownerID) {
		return types.Draft{}, ErrNotFound
	}
	return copyDraft(d), nil
}

// UpdateDraft merges p into the stored draft.
func (m *Memory) UpdateDraft(_ context.Context, id, ownerID string, p DraftPatch) (types.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.drafts[id]
	if !ok || (ownerID != "" && d.OwnerID != ownerID) {
		return types.Draft{}, ErrNotFound
	}
	applyDraftPatch(&d, p)
	d.UpdatedAt = m.now()
	m.drafts[id] = copyDraft(d)
	return copyDraft(d), nil
}

// DeleteDraft removes the draft with the given id within the owner scope.
func (m *Memory) DeleteDraft(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.drafts[id]
	if !ok || (ownerID != "" && d.OwnerID != ownerID) {
		return ErrNotFound
	}
	delete(m.drafts, d.ID)
	return nil
}

// ListDraftsByOwner returns the owner's drafts, newest first.
func (m *Memory) ListDraftsByOwner(_ context.Context, ownerID string) ([]types.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.Draft
	for _, d := range m.drafts {
		if d.OwnerID == ownerID {
			out = append(out, copyDraft(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CreatePresentation stores p, assigning an id, version 1, and timestamps.
func (m *Memory) CreatePresentation(_ context.Context, p types.Presentation) (types.Presentation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := m.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Version = 1
	m.presentations[p.ID] = copyPresentation(p)
	return copyPresentation(p), nil
}

// GetPresentation returns the presentation with the given id within the
// owner scope.
func (m *Memory) GetPresentation(_ context.Context, id, ownerID string) (types.Presentation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.presentations[id]
	if !ok || (ownerID != "" && p.OwnerID != ownerID) {
		return types.Presentation{}, ErrNotFound
	}
	return copyPresentation(p), nil
}

// UpdatePresentation merges p into the stored presentation. Status is not
// reachable through this path.
func (m *Memory) UpdatePresentation(_ context.Context, id, ownerID string, patch PresentationPatch) (types.Presentation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.presentations[id]
	if !ok || (ownerID != "" && p.OwnerID != ownerID) {
		return types.Presentation{}, ErrNotFound
	}
	applyPresentationPatch(&p, patch)
	p.Version++
	p.UpdatedAt = m.now()
	m.presentations[id] = copyPresentation(p)
	return copyPresentation(p), nil
}

// DeletePresentation removes the presentation with the given id within
// the owner scope.
func (m *Memory) DeletePresentation(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.presentations[id]
	if !ok || (ownerID != "" && p.OwnerID != ownerID) {
		return ErrNotFound
	}
	delete(m.presentations, p.ID)
	return nil
}

// ListPresentationsByOwner returns the owner's presentations, newest first.
func (m *Memory) ListPresentationsByOwner(_ context.Context, ownerID string) ([]types.Presentation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.Presentation
	for _, p := range m.presentations {
		if p.OwnerID == ownerID {
			out = append(out, copyPresentation(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// transition applies fn to a generating presentation under the version
// check shared by both terminal transitions.
func (m *Memory) transition(id string, expectedVersion int64, fn func(*types.Presentation)) (types.Presentation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.presentations[id]
	if !ok {
		return types.Presentation{}, ErrNotFound
	}
	if p.Status.Terminal() {
		return types.Presentation{}, ErrTerminal
	}
	if p.Version != expectedVersion {
		return types.Presentation{}, ErrVersionConflict
	}
	fn(&p)
	p.Version++
	p.UpdatedAt = m.now()
	m.presentations[id] = copyPresentation(p)
	return copyPresentation(p), nil
}

// CompleteGeneration moves a generating presentation to completed.
func (m *Memory) CompleteGeneration(_ context.Context, id string, expectedVersion int64, slides []types.Slide, usage types.TokenUsage) (types.Presentation, error) {
	return m.transition(id, expectedVersion, func(p *types.Presentation) {
		p.Status = types.StatusCompleted
		p.Slides = slides
		p.TokenUsage = usage
	})
}

// FailGeneration moves a generating presentation to failed.
func (m *Memory) FailGeneration(_ context.Context, id string, expectedVersion int64, message string) (types.Presentation, error) {
	return m.transition(id, expectedVersion, func(p *types.Presentation) {
		p.Status = types.StatusFailed
		p.ErrorMessage = message
	})
}
