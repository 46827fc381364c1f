package httptransport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"spyral/internal/platform/middleware"
	dErrors "spyral/pkg/domain-errors"
)

type createAssetRequest struct {
	Recipient     string `json:"recipient"`
	IntegrityHash string `json:"integrity_hash"`
}

func (h *Handler) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	a, err := h.lifecycle.CreateAsset(ctx, middleware.GetHolder(ctx), req.Recipient, req.IntegrityHash)
	if err != nil {
		h.logger.WarnContext(ctx, "create asset failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssetResponse(a))
}

func (h *Handler) handleAdvance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := assetID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := h.lifecycle.Advance(ctx, id, middleware.GetHolder(ctx))
	if err != nil {
		h.logger.WarnContext(ctx, "advance failed",
			"request_id", middleware.GetRequestID(ctx),
			"asset_id", id,
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetResponse(a))
}

type addCollaboratorRequest struct {
	Holder     string `json:"holder"`
	Percentage int    `json:"percentage"`
}

func (h *Handler) handleAddCollaborator(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := assetID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req addCollaboratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	splits, err := h.collab.AddCollaborator(ctx, id, middleware.GetHolder(ctx), req.Holder, req.Percentage)
	if err != nil {
		h.logger.WarnContext(ctx, "add collaborator failed",
			"request_id", middleware.GetRequestID(ctx),
			"asset_id", id,
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collaborators": toCollaboratorResponses(splits),
	})
}

func (h *Handler) handleListCollaborators(w http.ResponseWriter, r *http.Request) {
	id, err := assetID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	splits, err := h.collab.ListCollaborators(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collaborators": toCollaboratorResponses(splits),
	})
}

type setTrackIDRequest struct {
	TrackID string `json:"track_id"`
}

func (h *Handler) handleSetTrackID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := assetID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req setTrackIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	a, err := h.lifecycle.SetExternalTrackID(ctx, id, middleware.GetHolder(ctx), req.TrackID)
	if err != nil {
		h.logger.WarnContext(ctx, "set track id failed",
			"request_id", middleware.GetRequestID(ctx),
			"asset_id", id,
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetResponse(a))
}

func (h *Handler) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := assetID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := h.lifecycle.GetAssetData(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssetResponse(a))
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	id, err := assetID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.events.List(r.Context(), id)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list events"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": list})
}

func assetID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid asset id")
	}
	return id, nil
}
