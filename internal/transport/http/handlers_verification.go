package httptransport

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"spyral/internal/asset"
	"spyral/internal/platform/middleware"
	dErrors "spyral/pkg/domain-errors"
)

type requestVerificationRequest struct {
	Kind   string `json:"kind"`
	Script string `json:"script"`
}

func (h *Handler) handleRequestVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := assetID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req requestVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	requestID, err := h.verification.RequestVerification(ctx, id, middleware.GetHolder(ctx), asset.VerificationKind(req.Kind), req.Script)
	if err != nil {
		h.logger.WarnContext(ctx, "verification request failed",
			"request_id", middleware.GetRequestID(ctx),
			"asset_id", id,
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	// Accepted, not created: the result arrives out of band.
	writeJSON(w, http.StatusAccepted, map[string]string{"request_id": requestID})
}

type fulfillRequest struct {
	RequestID string `json:"request_id"`
	// Response and Error are the network's opaque byte payloads,
	// base64-encoded on the wire.
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// handleFulfill receives the network's out-of-band result. Domain
// failures are absorbed by the gateway, so the callback almost always
// sees 204; only infrastructure faults surface as 500 so the network's
// delivery layer retries.
func (h *Handler) handleFulfill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req fulfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.RequestID == "" {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "request_id is required"))
		return
	}

	response, err := base64.StdEncoding.DecodeString(req.Response)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "response is not valid base64"))
		return
	}
	errPayload, err := base64.StdEncoding.DecodeString(req.Error)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "error is not valid base64"))
		return
	}

	if err := h.verification.Fulfill(ctx, req.RequestID, response, errPayload); err != nil {
		h.logger.ErrorContext(ctx, "fulfillment processing failed",
			"request_id", middleware.GetRequestID(ctx),
			"verification_request_id", req.RequestID,
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
