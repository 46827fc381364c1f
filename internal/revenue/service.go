// Package revenue accepts deposits for revenue-phase assets and pays
// the accumulated balance out along the collaborator split.
//
// Distribute follows checks-effects-interactions: the balance is zeroed
// inside the asset's exclusive update before any transfer runs, so a
// reentrant call triggered by a payee observes an empty balance and
// cannot double-spend. A failed transfer reverses every completed
// payout of the cycle and rolls the whole operation back, the zeroing
// included, so a retry never double-pays.
package revenue

import (
	"context"
	"errors"
	"log/slog"

	"spyral/internal/asset"
	"spyral/internal/events"
	"spyral/internal/platform/metrics"
	dErrors "spyral/pkg/domain-errors"
	"spyral/pkg/platform/sentinel"
)

// Payout is the external payment rail that moves funds to a holder.
// Transfer may hand control to the payee (receive hooks), which is why
// it must only ever run after the balance was zeroed. Reverse claws a
// completed transfer back when a later one in the same distribution
// fails; without it the early payees would keep their funds while the
// restored balance pays them again on retry.
type Payout interface {
	Transfer(ctx context.Context, holder string, amount int64) error
	Reverse(ctx context.Context, holder string, amount int64) error
}

type EventPublisher interface {
	Emit(ctx context.Context, event events.Event) error
}

// Service is the revenue distributor.
type Service struct {
	assets  asset.Store
	payout  Payout
	events  EventPublisher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(assets asset.Store, payout Payout, pub EventPublisher, opts ...Option) *Service {
	s := &Service{assets: assets, payout: payout, events: pub, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deposit credits amount to the asset's lifetime revenue and
// distributable balance. Only revenue-phase assets accept deposits.
func (s *Service) Deposit(ctx context.Context, assetID uint64, amount int64) (*asset.Asset, error) {
	if amount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "deposit amount must be positive")
	}

	updated, err := s.assets.Update(ctx, assetID, func(a *asset.Asset) error {
		return applyDeposit(a, amount)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return nil, err
	}

	if err := s.emitReceived(ctx, assetID, amount); err != nil {
		return nil, err
	}
	return updated, nil
}

// Distribute pays the accumulated balance out to every collaborator in
// list order, flooring each share. attached > 0 applies a deposit first
// (pay-and-settle in one call). The undistributed flooring remainder is
// carried forward into the next cycle.
func (s *Service) Distribute(ctx context.Context, assetID uint64, attached int64) (int64, error) {
	if attached < 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "attached amount cannot be negative")
	}

	var (
		balance int64
		splits  []asset.Collaborator
	)
	_, err := s.assets.Update(ctx, assetID, func(a *asset.Asset) error {
		if attached > 0 {
			if err := applyDeposit(a, attached); err != nil {
				return err
			}
		} else if a.Phase != asset.PhaseRevenue {
			return dErrors.New(dErrors.CodePhaseViolation, "monetization threshold not reached")
		}
		balance = a.DistributableBalance
		if balance <= 0 {
			return dErrors.New(dErrors.CodeInsufficientFunds, "nothing to distribute")
		}
		// Zero before any transfer; reentrant callers must see nothing
		// left to spend.
		a.DistributableBalance = 0
		splits = append([]asset.Collaborator(nil), a.Collaborators...)
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeNotFound, "asset not found")
		}
		return 0, err
	}

	var (
		paid int64
		done []completedTransfer
	)
	for _, c := range splits {
		amount := balance * int64(c.Percentage) / 100
		if amount == 0 {
			continue
		}
		if err := s.payout.Transfer(ctx, c.Holder, amount); err != nil {
			s.reverse(ctx, assetID, done)
			s.rollback(ctx, assetID, balance, attached)
			return 0, dErrors.Wrap(err, dErrors.CodeTransferFailure, "payout transfer failed")
		}
		done = append(done, completedTransfer{holder: c.Holder, amount: amount})
		paid += amount
	}

	remainder := balance - paid
	if remainder > 0 {
		if _, err := s.assets.Update(ctx, assetID, func(a *asset.Asset) error {
			a.DistributableBalance += remainder
			return nil
		}); err != nil {
			return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to carry remainder forward")
		}
	}

	if attached > 0 {
		if err := s.emitReceived(ctx, assetID, attached); err != nil {
			return 0, err
		}
	}
	if err := s.events.Emit(ctx, events.Event{
		Type:      events.TypeRevenueDistributed,
		AssetID:   assetID,
		Amount:    paid,
		Remainder: remainder,
	}); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record distribution event")
	}
	s.metrics.ObserveDistribution(paid)

	s.logger.InfoContext(ctx, "revenue distributed",
		"asset_id", assetID,
		"paid", paid,
		"remainder", remainder,
	)
	return paid, nil
}

type completedTransfer struct {
	holder string
	amount int64
}

// reverse claws back the transfers that completed before the failure,
// newest first. Funds only re-enter the balance through rollback once
// the rail has given them back; a reversal the rail cannot honor is
// money stuck outside the system and needs an operator.
func (s *Service) reverse(ctx context.Context, assetID uint64, done []completedTransfer) {
	for i := len(done) - 1; i >= 0; i-- {
		t := done[i]
		if err := s.payout.Reverse(ctx, t.holder, t.amount); err != nil {
			s.logger.ErrorContext(ctx, "CRITICAL: payout reversal failed after transfer failure",
				"asset_id", assetID,
				"holder", t.holder,
				"amount", t.amount,
				"error", err,
			)
		}
	}
}

// rollback restores the pre-operation state after a transfer failure:
// the zeroed balance comes back and an attached deposit is undone.
func (s *Service) rollback(ctx context.Context, assetID uint64, balance, attached int64) {
	if _, err := s.assets.Update(ctx, assetID, func(a *asset.Asset) error {
		a.DistributableBalance += balance - attached
		a.LifetimeRevenue -= attached
		return nil
	}); err != nil {
		s.logger.ErrorContext(ctx, "CRITICAL: balance restore failed after transfer failure",
			"asset_id", assetID,
			"balance", balance,
			"error", err,
		)
	}
}

func applyDeposit(a *asset.Asset, amount int64) error {
	if a.Phase != asset.PhaseRevenue {
		return dErrors.New(dErrors.CodePhaseViolation, "monetization threshold not reached")
	}
	a.LifetimeRevenue += amount
	a.DistributableBalance += amount
	return nil
}

func (s *Service) emitReceived(ctx context.Context, assetID uint64, amount int64) error {
	if err := s.events.Emit(ctx, events.Event{
		Type:    events.TypeRevenueReceived,
		AssetID: assetID,
		Amount:  amount,
	}); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record deposit event")
	}
	s.metrics.IncDeposit()
	return nil
}
