// Package lifecycle owns per-asset phase and timestamps: creation,
// manual transitions with their cooldowns and authorization rules, and
// track registration. From Register onward, transitions happen only
// through the verification gateway.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"spyral/internal/asset"
	"spyral/internal/events"
	"spyral/internal/platform/metrics"
	"spyral/internal/registry"
	dErrors "spyral/pkg/domain-errors"
	"spyral/pkg/platform/sentinel"
)

// DefaultCollaborateCooldown is the minimum time an asset must sit in
// Collaborate before the owner may close the collaboration window.
const DefaultCollaborateCooldown = 24 * time.Hour

type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service is the lifecycle controller.
type Service struct {
	assets   asset.Store
	registry registry.AssetRegistry
	events   EventPublisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
	minter   string
	cooldown time.Duration
	now      func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithCooldown(d time.Duration) Option {
	return func(s *Service) { s.cooldown = d }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs the lifecycle service. minter is the only holder
// allowed to create assets.
func New(assets asset.Store, reg registry.AssetRegistry, pub EventPublisher, minter string, opts ...Option) *Service {
	s := &Service{
		assets:   assets,
		registry: reg,
		events:   pub,
		logger:   slog.Default(),
		minter:   minter,
		cooldown: DefaultCollaborateCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAsset mints a new asset in Upload for recipient, who starts
// with the full 100% share.
func (s *Service) CreateAsset(ctx context.Context, caller, recipient, integrityHash string) (*asset.Asset, error) {
	if caller != s.minter {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the minter may create assets")
	}
	if recipient == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "recipient is required")
	}
	if integrityHash == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "integrity hash is required")
	}

	id, err := s.assets.NextID(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate asset id")
	}

	now := s.now()
	a := &asset.Asset{
		ID:                id,
		Owner:             recipient,
		Phase:             asset.PhaseUpload,
		LastPhaseChangeAt: now,
		IntegrityHash:     integrityHash,
		Collaborators:     []asset.Collaborator{{Holder: recipient, Percentage: 100}},
		CreatedAt:         now,
	}
	if err := s.assets.Create(ctx, a); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create asset")
	}

	if err := s.events.Emit(ctx, events.Event{
		Type:    events.TypeAssetCreated,
		AssetID: a.ID,
		Holder:  recipient,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record creation event")
	}
	s.metrics.IncAssetsCreated()

	s.logger.InfoContext(ctx, "asset created",
		"asset_id", a.ID,
		"owner", recipient,
	)
	return a, nil
}

// Advance performs a manual phase transition. Only Upload and
// Collaborate allow manual advancing; later phases move exclusively
// through verification fulfillments.
func (s *Service) Advance(ctx context.Context, assetID uint64, caller string) (*asset.Asset, error) {
	if err := s.authorize(ctx, assetID, caller); err != nil {
		return nil, err
	}

	// The registry is the ownership authority; the record's Owner field
	// can go stale after an external transfer.
	owner, err := s.registry.OwnerOf(ctx, assetID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "registry lookup failed")
	}

	now := s.now()
	var oldPhase asset.Phase
	updated, err := s.assets.Update(ctx, assetID, func(a *asset.Asset) error {
		switch a.Phase {
		case asset.PhaseUpload:
			// No cooldown; any authorized caller may advance.
		case asset.PhaseCollaborate:
			if now.Sub(a.LastPhaseChangeAt) < s.cooldown {
				return dErrors.New(dErrors.CodeCooldown, "collaboration window has not been open long enough")
			}
			// Closing collaboration is judged more sensitive than the
			// earlier transition: the literal owner only, no delegates.
			if caller != owner {
				return dErrors.New(dErrors.CodeUnauthorized, "only the owner may close collaboration")
			}
		case asset.PhaseRegister, asset.PhasePublish:
			return dErrors.New(dErrors.CodePhaseViolation, "this phase requires external verification")
		default:
			return dErrors.New(dErrors.CodePhaseViolation, "lifecycle already final")
		}
		oldPhase = a.Phase
		a.Phase = a.Phase.Next()
		a.LastPhaseChangeAt = now
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return nil, err
	}

	if err := s.emitPhaseChange(ctx, updated.ID, oldPhase, updated.Phase, now); err != nil {
		return nil, err
	}
	return updated, nil
}

// SetExternalTrackID stores the external track id, once, during Register.
func (s *Service) SetExternalTrackID(ctx context.Context, assetID uint64, caller, trackID string) (*asset.Asset, error) {
	if trackID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "track id is required")
	}
	if err := s.authorize(ctx, assetID, caller); err != nil {
		return nil, err
	}

	updated, err := s.assets.Update(ctx, assetID, func(a *asset.Asset) error {
		if a.Phase != asset.PhaseRegister {
			return dErrors.New(dErrors.CodePhaseViolation, "track id can only be set during registration")
		}
		if a.ExternalTrackID != "" {
			return dErrors.New(dErrors.CodeValidation, "track id already set")
		}
		a.ExternalTrackID = trackID
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return nil, err
	}

	if err := s.events.Emit(ctx, events.Event{
		Type:    events.TypeTrackIDSet,
		AssetID: assetID,
		TrackID: trackID,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record track id event")
	}
	return updated, nil
}

// GetAssetData returns a read-only snapshot of the asset.
func (s *Service) GetAssetData(ctx context.Context, assetID uint64) (*asset.Asset, error) {
	a, err := s.assets.Find(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset")
	}
	return a, nil
}

func (s *Service) authorize(ctx context.Context, assetID uint64, caller string) error {
	ok, err := s.registry.IsAuthorized(ctx, assetID, caller)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "registry lookup failed")
	}
	if !ok {
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not authorized for this asset")
	}
	return nil
}

func (s *Service) emitPhaseChange(ctx context.Context, assetID uint64, from, to asset.Phase, at time.Time) error {
	if err := s.events.Emit(ctx, events.Event{
		Type:      events.TypePhaseChanged,
		AssetID:   assetID,
		Timestamp: at,
		OldPhase:  string(from),
		NewPhase:  string(to),
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record phase change event")
	}
	s.metrics.IncPhaseTransition(string(to))
	s.logger.InfoContext(ctx, "phase advanced",
		"asset_id", assetID,
		"from", from,
		"to", to,
	)
	return nil
}
