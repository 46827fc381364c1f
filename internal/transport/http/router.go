// Package httptransport is the thin HTTP layer. Handlers delegate to
// the domain services; transport concerns (auth, decoding, error
// translation) stay here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"spyral/internal/asset"
	"spyral/internal/events"
	"spyral/internal/platform/middleware"
)

// LifecycleService is the lifecycle controller surface the handlers use.
type LifecycleService interface {
	CreateAsset(ctx context.Context, caller, recipient, integrityHash string) (*asset.Asset, error)
	Advance(ctx context.Context, assetID uint64, caller string) (*asset.Asset, error)
	SetExternalTrackID(ctx context.Context, assetID uint64, caller, trackID string) (*asset.Asset, error)
	GetAssetData(ctx context.Context, assetID uint64) (*asset.Asset, error)
}

// CollabService is the collaborator ledger surface.
type CollabService interface {
	AddCollaborator(ctx context.Context, assetID uint64, caller, holder string, percentage int) ([]asset.Collaborator, error)
	ListCollaborators(ctx context.Context, assetID uint64) ([]asset.Collaborator, error)
}

// VerificationService is the gateway surface.
type VerificationService interface {
	RequestVerification(ctx context.Context, assetID uint64, caller string, kind asset.VerificationKind, script string) (string, error)
	Fulfill(ctx context.Context, requestID string, response, errPayload []byte) error
}

// RevenueService is the distributor surface.
type RevenueService interface {
	Deposit(ctx context.Context, assetID uint64, amount int64) (*asset.Asset, error)
	Distribute(ctx context.Context, assetID uint64, attached int64) (int64, error)
}

// EventReader lists recorded events for downstream polling.
type EventReader interface {
	List(ctx context.Context, assetID uint64) ([]events.Event, error)
}

// Handler bundles the domain services behind the HTTP surface.
type Handler struct {
	lifecycle     LifecycleService
	collab        CollabService
	verification  VerificationService
	revenue       RevenueService
	events        EventReader
	logger        *slog.Logger
	validator     middleware.TokenValidator
	networkSecret string
}

func NewHandler(
	lifecycle LifecycleService,
	collab CollabService,
	verification VerificationService,
	revenue RevenueService,
	eventReader EventReader,
	validator middleware.TokenValidator,
	networkSecret string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		lifecycle:     lifecycle,
		collab:        collab,
		verification:  verification,
		revenue:       revenue,
		events:        eventReader,
		logger:        logger,
		validator:     validator,
		networkSecret: networkSecret,
	}
}

// NewRouter wires all endpoints. Caller-facing mutations sit behind
// bearer auth; the fulfillment callback authenticates with the network
// secret; reads and metadata are public, as the original service was.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/", h.handleStatus)
	r.Get("/healthz", h.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Get("/assets/{id}", h.handleGetAsset)
		r.Get("/assets/{id}/collaborators", h.handleListCollaborators)
		r.Get("/assets/{id}/events", h.handleListEvents)
		r.Get("/assets/{id}/metadata", h.handleMetadata)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/assets", h.handleCreateAsset)
		r.Post("/assets/{id}/advance", h.handleAdvance)
		r.Post("/assets/{id}/collaborators", h.handleAddCollaborator)
		r.Post("/assets/{id}/track", h.handleSetTrackID)
		r.Post("/assets/{id}/verifications", h.handleRequestVerification)
		r.Post("/assets/{id}/deposits", h.handleDeposit)
		r.Post("/assets/{id}/distributions", h.handleDistribute)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.RequireNetworkSecret(h.networkSecret, h.logger))
		r.Post("/verifications/fulfill", h.handleFulfill)
	})

	return r
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
