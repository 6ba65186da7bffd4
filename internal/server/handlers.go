// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/pdiddy/deck-engine/internal/draftedit"
	"github.com/pdiddy/deck-engine/internal/generation"
	"github.com/pdiddy/deck-engine/internal/store"
	"github.com/pdiddy/deck-engine/pkg/types"
)

type errorBody struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Message: msg})
}

// writeStoreError maps store sentinels onto HTTP codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrTerminal), errors.Is(err, store.ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// owner reads the owner scope from the query string. Authentication is
// an upstream concern; the id arrives already resolved.
func owner(r *http.Request) string {
	return r.URL.Query().Get("owner")
}

type startGenerationRequest struct {
	DraftID       string         `json:"draftId"`
	OwnerID       string         `json:"ownerId"`
	Outline       *types.Outline `json:"outline,omitempty"`
	CitationStyle string         `json:"citationStyle,omitempty"`
	Theme         string         `json:"theme,omitempty"`
}

type startGenerationResponse struct {
	PresentationID string `json:"presentationId"`
	Status         string `json:"status"`
}

// HandleStartGeneration triggers a background generation job and replies
// immediately with the new presentation id. When the request omits the
// outline, the draft's stored outline is used.
func (h *Handlers) HandleStartGeneration(w http.ResponseWriter, r *http.Request) {
	var req startGenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	outline := types.Outline{}
	if req.Outline != nil {
		outline = *req.Outline
	} else if req.DraftID != "" {
		d, err := h.Store.GetDraft(r.Context(), req.DraftID, req.OwnerID)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		outline = d.Outline
	}

	id, err := h.Controller.StartGeneration(r.Context(), generation.StartRequest{
		DraftID:       req.DraftID,
		OwnerID:       req.OwnerID,
		Outline:       outline,
		CitationStyle: req.CitationStyle,
		Theme:         req.Theme,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, startGenerationResponse{
		PresentationID: id,
		Status:         string(types.StatusGenerating),
	})
}

func (h *Handlers) HandleGetPresentation(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetPresentation(r.Context(), r.PathValue("id"), owner(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) HandleListPresentations(w http.ResponseWriter, r *http.Request) {
	o := owner(r)
	if o == "" {
		writeError(w, http.StatusBadRequest, "owner query parameter is required")
		return
	}
	list, err := h.Store.ListPresentationsByOwner(r.Context(), o)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []types.Presentation{}
	}
	writeJSON(w, http.StatusOK, list)
}

type presentationPatchRequest struct {
	Title         *string `json:"title,omitempty"`
	CitationStyle *string `json:"citationStyle,omitempty"`
	Theme         *string `json:"theme,omitempty"`
}

// HandlePatchPresentation merges metadata edits. The lifecycle status is
// not editable here or anywhere else on the HTTP surface.
func (h *Handlers) HandlePatchPresentation(w http.ResponseWriter, r *http.Request) {
	var req presentationPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := h.Store.UpdatePresentation(r.Context(), r.PathValue("id"), owner(r), store.PresentationPatch{
		Title:         req.Title,
		CitationStyle: req.CitationStyle,
		Theme:         req.Theme,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) HandleDeletePresentation(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeletePresentation(r.Context(), r.PathValue("id"), owner(r)); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleListDrafts(w http.ResponseWriter, r *http.Request) {
	o := owner(r)
	if o == "" {
		writeError(w, http.StatusBadRequest, "owner query parameter is required")
		return
	}
	list, err := h.Store.ListDraftsByOwner(r.Context(), o)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []types.Draft{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.Store.GetDraft(r.Context(), r.PathValue("id"), owner(r))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandlePatchDraft applies outline edits: deck/slide retitling, bullet
// replacement, slide reorder.
func (h *Handlers) HandlePatchDraft(w http.ResponseWriter, r *http.Request) {
	var edit draftedit.Edit
	if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	d, err := draftedit.ApplyToDraft(r.Context(), h.Store, r.PathValue("id"), owner(r), edit)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeStoreError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) HandleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteDraft(r.Context(), r.PathValue("id"), owner(r)); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// logError is a helper for handlers that cannot write to the response
// anymore (streams already started).
func (h *Handlers) logError(msg string, err error) {
	h.logger().Error(msg, zap.Error(err))
}
