package httptransport

import (
	"encoding/json"
	"net/http"

	"spyral/internal/platform/middleware"
	dErrors "spyral/pkg/domain-errors"
)

type depositRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handler) handleDeposit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := assetID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req depositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	a, err := h.revenue.Deposit(ctx, id, req.Amount)
	if err != nil {
		h.logger.WarnContext(ctx, "deposit failed",
			"request_id", middleware.GetRequestID(ctx),
			"asset_id", id,
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{
		"lifetime_revenue":      a.LifetimeRevenue,
		"distributable_balance": a.DistributableBalance,
	})
}

type distributeRequest struct {
	// Amount optionally attaches a deposit settled in the same call.
	Amount int64 `json:"amount,omitempty"`
}

func (h *Handler) handleDistribute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := assetID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req distributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	paid, err := h.revenue.Distribute(ctx, id, req.Amount)
	if err != nil {
		h.logger.WarnContext(ctx, "distribution failed",
			"request_id", middleware.GetRequestID(ctx),
			"asset_id", id,
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"distributed": paid})
}
