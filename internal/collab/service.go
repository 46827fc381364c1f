// Package collab owns the collaborator split list. The creator starts
// with 100% and every addition moves points from the creator's
// remainder to a new immutable entry, so the sum is always 100.
package collab

import (
	"context"
	"errors"
	"log/slog"

	"spyral/internal/asset"
	"spyral/internal/events"
	"spyral/internal/registry"
	dErrors "spyral/pkg/domain-errors"
	"spyral/pkg/platform/sentinel"
)

type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service is the collaborator ledger.
type Service struct {
	assets   asset.Store
	registry registry.AssetRegistry
	events   EventPublisher
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(assets asset.Store, reg registry.AssetRegistry, pub EventPublisher, opts ...Option) *Service {
	s := &Service{assets: assets, registry: reg, events: pub, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddCollaborator grants holder a fixed percentage carved out of the
// creator's remaining share. Allowed only while the asset sits in
// Collaborate; entries are immutable once written.
func (s *Service) AddCollaborator(ctx context.Context, assetID uint64, caller, holder string, percentage int) ([]asset.Collaborator, error) {
	if holder == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "holder is required")
	}

	ok, err := s.registry.IsAuthorized(ctx, assetID, caller)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "registry lookup failed")
	}
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not authorized for this asset")
	}

	updated, err := s.assets.Update(ctx, assetID, func(a *asset.Asset) error {
		if a.Phase != asset.PhaseCollaborate {
			return dErrors.New(dErrors.CodePhaseViolation, "collaborator editing window closed or not yet open")
		}
		return a.AllocateShare(holder, percentage)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return nil, err
	}

	if err := s.events.Emit(ctx, events.Event{
		Type:       events.TypeCollaboratorAdded,
		AssetID:    assetID,
		Holder:     holder,
		Percentage: percentage,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record collaborator event")
	}

	s.logger.InfoContext(ctx, "collaborator added",
		"asset_id", assetID,
		"holder", holder,
		"percentage", percentage,
	)
	return updated.Collaborators, nil
}

// ListCollaborators returns the ordered split list. No side effects.
func (s *Service) ListCollaborators(ctx context.Context, assetID uint64) ([]asset.Collaborator, error) {
	a, err := s.assets.Find(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset")
	}
	return a.Collaborators, nil
}
