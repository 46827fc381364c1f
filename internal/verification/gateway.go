// Package verification bridges the lifecycle to the external
// verification network. Requests return immediately with a network-
// assigned id; results arrive later through Fulfill, delivered by the
// network out of band. Fulfill absorbs every failure: the original
// requester returned long ago and has no channel left to hear about it.
package verification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"spyral/internal/asset"
	"spyral/internal/events"
	"spyral/internal/platform/metrics"
	"spyral/internal/registry"
	dErrors "spyral/pkg/domain-errors"
	"spyral/pkg/platform/sentinel"
)

// DefaultMonetizationThreshold is the stream count at which a published
// asset unlocks its revenue phase.
const DefaultMonetizationThreshold = 1000

// Network is the external verification service. Send dispatches a
// script with the asset's track id as its sole argument and returns the
// request id the network assigned.
type Network interface {
	Send(ctx context.Context, script, argument string) (string, error)
}

type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Gateway issues verification requests and applies their fulfillments.
type Gateway struct {
	assets     asset.Store
	pending    asset.PendingStore
	network    Network
	registry   registry.AssetRegistry
	events     EventPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	threshold  uint64
	pendingTTL time.Duration
	now        func() time.Time
}

type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

func WithThreshold(threshold uint64) Option {
	return func(g *Gateway) { g.threshold = threshold }
}

// WithPendingTTL bounds how long a request may stay outstanding. Zero
// keeps requests open forever.
func WithPendingTTL(ttl time.Duration) Option {
	return func(g *Gateway) { g.pendingTTL = ttl }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) { g.now = now }
}

func New(assets asset.Store, pending asset.PendingStore, network Network, reg registry.AssetRegistry, pub EventPublisher, opts ...Option) *Gateway {
	g := &Gateway{
		assets:    assets,
		pending:   pending,
		network:   network,
		registry:  reg,
		events:    pub,
		logger:    slog.Default(),
		tracer:    otel.Tracer("spyral/verification"),
		threshold: DefaultMonetizationThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequestVerification dispatches a request to the network and records
// the pending entry under the id the network assigned. It does not wait
// for the result.
func (g *Gateway) RequestVerification(ctx context.Context, assetID uint64, caller string, kind asset.VerificationKind, script string) (string, error) {
	if !kind.Valid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown verification kind")
	}
	if script == "" {
		return "", dErrors.New(dErrors.CodeValidation, "verification script is required")
	}

	ok, err := g.registry.IsAuthorized(ctx, assetID, caller)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "registry lookup failed")
	}
	if !ok {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller is not authorized for this asset")
	}

	a, err := g.assets.Find(ctx, assetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load asset")
	}

	switch kind {
	case asset.KindCheckPublication:
		if a.Phase != asset.PhaseRegister {
			return "", dErrors.New(dErrors.CodePhaseViolation, "publication check requires the register phase")
		}
		if a.ExternalTrackID == "" {
			return "", dErrors.New(dErrors.CodePhaseViolation, "track id must be set before a publication check")
		}
	case asset.KindUpdateMetric:
		if a.Phase != asset.PhasePublish {
			return "", dErrors.New(dErrors.CodePhaseViolation, "metric updates require the publish phase")
		}
	}

	ctx, span := g.tracer.Start(ctx, "verification.request",
		trace.WithAttributes(
			attribute.Int64("asset.id", int64(assetID)),
			attribute.String("verification.kind", string(kind)),
		))
	defer span.End()

	requestID, err := g.network.Send(ctx, script, a.ExternalTrackID)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "verification network dispatch failed")
	}

	now := g.now()
	p := asset.PendingVerification{AssetID: assetID, Kind: kind, IssuedAt: now}
	if g.pendingTTL > 0 {
		p.ExpiresAt = now.Add(g.pendingTTL)
	}
	if err := g.pending.Put(ctx, requestID, p); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to record pending request")
	}

	if err := g.events.Emit(ctx, events.Event{
		Type:      events.TypeVerificationRequested,
		AssetID:   assetID,
		RequestID: requestID,
		Kind:      string(kind),
	}); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to record request event")
	}
	g.metrics.IncVerificationRequest(string(kind))

	g.logger.InfoContext(ctx, "verification requested",
		"asset_id", assetID,
		"request_id", requestID,
		"kind", kind,
	)
	return requestID, nil
}

// Fulfill applies the network's eventual response. Invoked exclusively
// by the network, never by ordinary callers.
//
// The pending entry is consumed first, whatever happens next: entries
// are single-use, so a duplicate or spurious delivery finds nothing and
// is a no-op. Domain-level failures (error payload, undecodable
// responses, stale values) are absorbed; only infrastructure faults
// surface, so the network's delivery layer can retry on our outage
// without ever replaying an already-consumed request.
func (g *Gateway) Fulfill(ctx context.Context, requestID string, response, errPayload []byte) error {
	ctx, span := g.tracer.Start(ctx, "verification.fulfill",
		trace.WithAttributes(attribute.String("verification.request_id", requestID)))
	defer span.End()

	p, err := g.pending.Take(ctx, requestID)
	if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
		g.metrics.IncFulfillment(metrics.OutcomeNoop)
		g.logger.InfoContext(ctx, "fulfillment without pending entry ignored",
			"request_id", requestID,
		)
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume pending request")
	}

	if len(errPayload) > 0 {
		g.metrics.IncFulfillment(metrics.OutcomeAbsorbed)
		g.logger.WarnContext(ctx, "verification returned an error payload",
			"request_id", requestID,
			"asset_id", p.AssetID,
			"kind", p.Kind,
		)
		return nil
	}

	switch p.Kind {
	case asset.KindCheckPublication:
		return g.applyPublicationCheck(ctx, requestID, p, response)
	case asset.KindUpdateMetric:
		return g.applyMetricUpdate(ctx, requestID, p, response)
	default:
		g.metrics.IncFulfillment(metrics.OutcomeAbsorbed)
		g.logger.WarnContext(ctx, "pending entry with unknown kind discarded",
			"request_id", requestID,
			"kind", p.Kind,
		)
		return nil
	}
}

func (g *Gateway) applyPublicationCheck(ctx context.Context, requestID string, p asset.PendingVerification, response []byte) error {
	published, err := decodeUint(response)
	if err != nil {
		g.metrics.IncFulfillment(metrics.OutcomeAbsorbed)
		g.logger.WarnContext(ctx, "undecodable publication response discarded",
			"request_id", requestID,
			"asset_id", p.AssetID,
			"error", err,
		)
		return nil
	}
	if published == 0 {
		g.metrics.IncFulfillment(metrics.OutcomeNoop)
		return nil
	}

	now := g.now()
	transitioned := false
	_, err = g.assets.Update(ctx, p.AssetID, func(a *asset.Asset) error {
		// A redundant in-flight check may land after the asset already
		// published; forward-only ordering wins over the late delivery.
		if a.Phase != asset.PhaseRegister {
			return nil
		}
		a.Phase = asset.PhasePublish
		a.PublishedAt = now
		a.LastPhaseChangeAt = now
		transitioned = true
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			g.metrics.IncFulfillment(metrics.OutcomeAbsorbed)
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply publication")
	}
	if !transitioned {
		g.metrics.IncFulfillment(metrics.OutcomeNoop)
		return nil
	}

	if err := g.events.Emit(ctx, events.Event{
		Type:      events.TypePhaseChanged,
		AssetID:   p.AssetID,
		Timestamp: now,
		OldPhase:  string(asset.PhaseRegister),
		NewPhase:  string(asset.PhasePublish),
		RequestID: requestID,
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record publication event")
	}
	g.metrics.IncFulfillment(metrics.OutcomeApplied)
	g.metrics.IncPhaseTransition(string(asset.PhasePublish))

	g.logger.InfoContext(ctx, "asset published",
		"asset_id", p.AssetID,
		"request_id", requestID,
	)
	return nil
}

func (g *Gateway) applyMetricUpdate(ctx context.Context, requestID string, p asset.PendingVerification, response []byte) error {
	value, err := decodeUint(response)
	if err != nil {
		g.metrics.IncFulfillment(metrics.OutcomeAbsorbed)
		g.logger.WarnContext(ctx, "undecodable metric response discarded",
			"request_id", requestID,
			"asset_id", p.AssetID,
			"error", err,
		)
		return nil
	}

	now := g.now()
	var (
		updated  bool
		unlocked bool
	)
	_, err = g.assets.Update(ctx, p.AssetID, func(a *asset.Asset) error {
		// Anti-rollback: out-of-order or stale deliveries never lower
		// the stored count.
		if value <= a.StreamCount {
			return nil
		}
		a.StreamCount = value
		updated = true
		if a.Phase == asset.PhasePublish && value >= g.threshold {
			a.Phase = asset.PhaseRevenue
			a.LastPhaseChangeAt = now
			unlocked = true
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			g.metrics.IncFulfillment(metrics.OutcomeAbsorbed)
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply metric update")
	}
	if !updated {
		g.metrics.IncFulfillment(metrics.OutcomeNoop)
		return nil
	}

	if err := g.events.Emit(ctx, events.Event{
		Type:      events.TypeMetricUpdated,
		AssetID:   p.AssetID,
		Timestamp: now,
		Metric:    value,
		RequestID: requestID,
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record metric event")
	}

	if unlocked {
		if err := g.events.Emit(ctx, events.Event{
			Type:      events.TypePhaseChanged,
			AssetID:   p.AssetID,
			Timestamp: now,
			OldPhase:  string(asset.PhasePublish),
			NewPhase:  string(asset.PhaseRevenue),
			RequestID: requestID,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record phase change event")
		}
		if err := g.events.Emit(ctx, events.Event{
			Type:      events.TypeMonetizationUnlocked,
			AssetID:   p.AssetID,
			Timestamp: now,
			Metric:    value,
			RequestID: requestID,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record unlock event")
		}
		g.metrics.IncPhaseTransition(string(asset.PhaseRevenue))
		g.logger.InfoContext(ctx, "monetization unlocked",
			"asset_id", p.AssetID,
			"streams", value,
		)
	}
	g.metrics.IncFulfillment(metrics.OutcomeApplied)
	return nil
}
