package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"spyral/internal/asset"
	dErrors "spyral/pkg/domain-errors"
)

// writeError centralizes domain error translation to HTTP responses so
// every handler reports the same JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": string(code),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// assetResponse is the read-only snapshot returned by asset endpoints.
type assetResponse struct {
	ID                   uint64                 `json:"id"`
	Owner                string                 `json:"owner"`
	Phase                string                 `json:"phase"`
	LastPhaseChangeAt    time.Time              `json:"last_phase_change_at"`
	PublishedAt          *time.Time             `json:"published_at,omitempty"`
	LifetimeRevenue      int64                  `json:"lifetime_revenue"`
	DistributableBalance int64                  `json:"distributable_balance"`
	IntegrityHash        string                 `json:"integrity_hash"`
	StreamCount          uint64                 `json:"stream_count"`
	ExternalTrackID      string                 `json:"external_track_id,omitempty"`
	Collaborators        []collaboratorResponse `json:"collaborators"`
	CreatedAt            time.Time              `json:"created_at"`
}

type collaboratorResponse struct {
	Holder     string `json:"holder"`
	Percentage int    `json:"percentage"`
}

func toAssetResponse(a *asset.Asset) assetResponse {
	resp := assetResponse{
		ID:                   a.ID,
		Owner:                a.Owner,
		Phase:                string(a.Phase),
		LastPhaseChangeAt:    a.LastPhaseChangeAt,
		LifetimeRevenue:      a.LifetimeRevenue,
		DistributableBalance: a.DistributableBalance,
		IntegrityHash:        a.IntegrityHash,
		StreamCount:          a.StreamCount,
		ExternalTrackID:      a.ExternalTrackID,
		Collaborators:        toCollaboratorResponses(a.Collaborators),
		CreatedAt:            a.CreatedAt,
	}
	if !a.PublishedAt.IsZero() {
		published := a.PublishedAt
		resp.PublishedAt = &published
	}
	return resp
}

func toCollaboratorResponses(cs []asset.Collaborator) []collaboratorResponse {
	out := make([]collaboratorResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, collaboratorResponse{Holder: c.Holder, Percentage: c.Percentage})
	}
	return out
}
