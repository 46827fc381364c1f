package revenue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"spyral/internal/asset"
	assetstore "spyral/internal/asset/store/asset"
	"spyral/internal/events"
	dErrors "spyral/pkg/domain-errors"
)

type RevenueSuite struct {
	suite.Suite
	ctx      context.Context
	assets   *assetstore.InMemory
	payout   *InMemoryPayout
	eventLog *events.InMemoryStore
	svc      *Service
}

func TestRevenueSuite(t *testing.T) {
	suite.Run(t, new(RevenueSuite))
}

func (s *RevenueSuite) SetupTest() {
	s.ctx = context.Background()
	s.assets = assetstore.NewInMemory()
	s.payout = NewInMemoryPayout()
	s.eventLog = events.NewInMemoryStore()
	s.svc = New(s.assets, s.payout, events.NewPublisher(s.eventLog))
}

func (s *RevenueSuite) seed(phase asset.Phase, splits ...asset.Collaborator) uint64 {
	if len(splits) == 0 {
		splits = []asset.Collaborator{{Holder: "creator", Percentage: 100}}
	}
	id, err := s.assets.NextID(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(s.assets.Create(s.ctx, &asset.Asset{
		ID:            id,
		Owner:         "creator",
		Phase:         phase,
		Collaborators: splits,
	}))
	return id
}

func (s *RevenueSuite) find(id uint64) *asset.Asset {
	a, err := s.assets.Find(s.ctx, id)
	s.Require().NoError(err)
	return a
}

func (s *RevenueSuite) TestDeposit() {
	id := s.seed(asset.PhaseRevenue)

	a, err := s.svc.Deposit(s.ctx, id, 250)
	s.Require().NoError(err)
	s.Equal(int64(250), a.LifetimeRevenue)
	s.Equal(int64(250), a.DistributableBalance)

	a, err = s.svc.Deposit(s.ctx, id, 50)
	s.Require().NoError(err)
	s.Equal(int64(300), a.LifetimeRevenue)
	s.Equal(int64(300), a.DistributableBalance)

	recorded, err := s.eventLog.ListByAsset(s.ctx, id)
	s.Require().NoError(err)
	s.Require().Len(recorded, 2)
	s.Equal(events.TypeRevenueReceived, recorded[0].Type)
	s.Equal(int64(250), recorded[0].Amount)
}

func (s *RevenueSuite) TestDepositGates() {
	for _, phase := range []asset.Phase{asset.PhaseUpload, asset.PhaseCollaborate, asset.PhaseRegister, asset.PhasePublish} {
		id := s.seed(phase)
		_, err := s.svc.Deposit(s.ctx, id, 100)
		s.True(dErrors.HasCode(err, dErrors.CodePhaseViolation), "phase %s", phase)
	}

	id := s.seed(asset.PhaseRevenue)
	_, err := s.svc.Deposit(s.ctx, id, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = s.svc.Deposit(s.ctx, id, -5)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Deposit(s.ctx, 999, 100)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *RevenueSuite) TestDistributeExact() {
	id := s.seed(asset.PhaseRevenue,
		asset.Collaborator{Holder: "creator", Percentage: 40},
		asset.Collaborator{Holder: "producer", Percentage: 20},
		asset.Collaborator{Holder: "vocalist", Percentage: 40},
	)
	_, err := s.svc.Deposit(s.ctx, id, 100)
	s.Require().NoError(err)

	paid, err := s.svc.Distribute(s.ctx, id, 0)
	s.Require().NoError(err)
	s.Equal(int64(100), paid)
	s.Equal(int64(40), s.payout.Balance("creator"))
	s.Equal(int64(20), s.payout.Balance("producer"))
	s.Equal(int64(40), s.payout.Balance("vocalist"))

	a := s.find(id)
	s.Equal(int64(0), a.DistributableBalance)
	s.Equal(int64(100), a.LifetimeRevenue, "lifetime total survives distribution")
}

func (s *RevenueSuite) TestDistributeCarriesRemainder() {
	id := s.seed(asset.PhaseRevenue,
		asset.Collaborator{Holder: "creator", Percentage: 34},
		asset.Collaborator{Holder: "producer", Percentage: 33},
		asset.Collaborator{Holder: "vocalist", Percentage: 33},
	)
	_, err := s.svc.Deposit(s.ctx, id, 100)
	s.Require().NoError(err)

	paid, err := s.svc.Distribute(s.ctx, id, 0)
	s.Require().NoError(err)
	s.Equal(int64(100), paid, "34+33+33 floors cleanly")

	// 10 units leave 3 + 3 + 3 paid and 1 carried forward.
	_, err = s.svc.Deposit(s.ctx, id, 10)
	s.Require().NoError(err)
	paid, err = s.svc.Distribute(s.ctx, id, 0)
	s.Require().NoError(err)
	s.Equal(int64(9), paid)

	a := s.find(id)
	s.Equal(int64(1), a.DistributableBalance, "dust rolls into the next cycle")

	recorded, err := s.eventLog.ListByAsset(s.ctx, id)
	s.Require().NoError(err)
	last := recorded[len(recorded)-1]
	s.Equal(events.TypeRevenueDistributed, last.Type)
	s.Equal(int64(9), last.Amount)
	s.Equal(int64(1), last.Remainder)
}

func (s *RevenueSuite) TestDistributeAttached() {
	id := s.seed(asset.PhaseRevenue,
		asset.Collaborator{Holder: "creator", Percentage: 50},
		asset.Collaborator{Holder: "producer", Percentage: 50},
	)

	// Pay-and-settle in one call, no prior balance.
	paid, err := s.svc.Distribute(s.ctx, id, 200)
	s.Require().NoError(err)
	s.Equal(int64(200), paid)
	s.Equal(int64(100), s.payout.Balance("creator"))
	s.Equal(int64(100), s.payout.Balance("producer"))

	a := s.find(id)
	s.Equal(int64(200), a.LifetimeRevenue)
	s.Equal(int64(0), a.DistributableBalance)
}

func (s *RevenueSuite) TestDistributeGates() {
	id := s.seed(asset.PhasePublish)
	_, err := s.svc.Distribute(s.ctx, id, 0)
	s.True(dErrors.HasCode(err, dErrors.CodePhaseViolation))
	_, err = s.svc.Distribute(s.ctx, id, 100)
	s.True(dErrors.HasCode(err, dErrors.CodePhaseViolation), "attached deposits obey the phase gate")

	empty := s.seed(asset.PhaseRevenue)
	_, err = s.svc.Distribute(s.ctx, empty, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientFunds))

	_, err = s.svc.Distribute(s.ctx, empty, -1)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Distribute(s.ctx, 999, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// failingPayout fails on a chosen holder, after any earlier transfers
// went through.
type failingPayout struct {
	*InMemoryPayout
	failOn string
}

func (p *failingPayout) Transfer(ctx context.Context, holder string, amount int64) error {
	if holder == p.failOn {
		return errors.New("payment rail unavailable")
	}
	return p.InMemoryPayout.Transfer(ctx, holder, amount)
}

func (s *RevenueSuite) TestDistributeRollsBackOnTransferFailure() {
	payout := &failingPayout{InMemoryPayout: NewInMemoryPayout(), failOn: "producer"}
	svc := New(s.assets, payout, events.NewPublisher(s.eventLog))

	id := s.seed(asset.PhaseRevenue,
		asset.Collaborator{Holder: "creator", Percentage: 60},
		asset.Collaborator{Holder: "producer", Percentage: 40},
	)
	_, err := svc.Deposit(s.ctx, id, 100)
	s.Require().NoError(err)

	_, err = svc.Distribute(s.ctx, id, 0)
	s.True(dErrors.HasCode(err, dErrors.CodeTransferFailure))

	a := s.find(id)
	s.Equal(int64(100), a.DistributableBalance, "balance restored for a retry")
	s.Equal(int64(100), a.LifetimeRevenue)
	s.Equal(int64(0), payout.Balance("creator"), "the completed transfer was reversed")
}

func (s *RevenueSuite) TestDistributeRetryAfterFailurePaysOnce() {
	payout := &failingPayout{InMemoryPayout: NewInMemoryPayout(), failOn: "producer"}
	svc := New(s.assets, payout, events.NewPublisher(s.eventLog))

	id := s.seed(asset.PhaseRevenue,
		asset.Collaborator{Holder: "creator", Percentage: 60},
		asset.Collaborator{Holder: "producer", Percentage: 40},
	)
	_, err := svc.Deposit(s.ctx, id, 100)
	s.Require().NoError(err)

	_, err = svc.Distribute(s.ctx, id, 0)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeTransferFailure))

	// The rail recovers and the caller retries the same cycle.
	payout.failOn = ""
	paid, err := svc.Distribute(s.ctx, id, 0)
	s.Require().NoError(err)
	s.Equal(int64(100), paid)
	s.Equal(int64(60), payout.Balance("creator"), "no double payment across the retry")
	s.Equal(int64(40), payout.Balance("producer"))
	s.Equal(int64(0), s.find(id).DistributableBalance)
}

func (s *RevenueSuite) TestDistributeRollsBackAttachedDeposit() {
	payout := &failingPayout{InMemoryPayout: NewInMemoryPayout(), failOn: "creator"}
	svc := New(s.assets, payout, events.NewPublisher(s.eventLog))

	id := s.seed(asset.PhaseRevenue)
	_, err := svc.Distribute(s.ctx, id, 150)
	s.True(dErrors.HasCode(err, dErrors.CodeTransferFailure))

	a := s.find(id)
	s.Equal(int64(0), a.DistributableBalance, "attached deposit undone with the payout")
	s.Equal(int64(0), a.LifetimeRevenue)

	recorded, err := s.eventLog.ListByAsset(s.ctx, id)
	s.Require().NoError(err)
	s.Empty(recorded, "a failed distribution leaves no trace in the ledger")
}

// reentrantPayout calls back into Distribute from inside a transfer, the
// way a hostile receive hook would.
type reentrantPayout struct {
	*InMemoryPayout
	svc     *Service
	assetID uint64
	nested  error
	fired   bool
}

func (p *reentrantPayout) Transfer(ctx context.Context, holder string, amount int64) error {
	if !p.fired {
		p.fired = true
		_, p.nested = p.svc.Distribute(ctx, p.assetID, 0)
	}
	return p.InMemoryPayout.Transfer(ctx, holder, amount)
}

func (s *RevenueSuite) TestDistributeReentrancy() {
	payout := &reentrantPayout{InMemoryPayout: NewInMemoryPayout()}
	svc := New(s.assets, payout, events.NewPublisher(s.eventLog))
	payout.svc = svc

	id := s.seed(asset.PhaseRevenue,
		asset.Collaborator{Holder: "creator", Percentage: 50},
		asset.Collaborator{Holder: "producer", Percentage: 50},
	)
	payout.assetID = id
	_, err := svc.Deposit(s.ctx, id, 100)
	s.Require().NoError(err)

	paid, err := svc.Distribute(s.ctx, id, 0)
	s.Require().NoError(err)
	s.Equal(int64(100), paid)

	s.Require().True(payout.fired)
	s.True(dErrors.HasCode(payout.nested, dErrors.CodeInsufficientFunds),
		"the nested call must find the balance already zeroed")
	s.Equal(int64(50), payout.Balance("creator"))
	s.Equal(int64(50), payout.Balance("producer"))
}

func (s *RevenueSuite) TestDistributeSkipsZeroShares() {
	id := s.seed(asset.PhaseRevenue,
		asset.Collaborator{Holder: "creator", Percentage: 99},
		asset.Collaborator{Holder: "producer", Percentage: 1},
	)
	_, err := s.svc.Deposit(s.ctx, id, 50)
	s.Require().NoError(err)

	paid, err := s.svc.Distribute(s.ctx, id, 0)
	s.Require().NoError(err)
	s.Equal(int64(49), paid)
	s.Equal(int64(0), s.payout.Balance("producer"), "a floored-to-zero share sends nothing")
	s.Equal(int64(1), s.find(id).DistributableBalance)
}
