package asset

import (
	"time"

	dErrors "spyral/pkg/domain-errors"
)

// Phase is one discrete lifecycle stage of a song asset. Phases are
// strictly ordered and never move backwards.
type Phase string

const (
	PhaseUpload      Phase = "upload"
	PhaseCollaborate Phase = "collaborate"
	PhaseRegister    Phase = "register"
	PhasePublish     Phase = "publish"
	PhaseRevenue     Phase = "revenue"
)

// phaseOrder fixes the forward ordering used by Next and After.
var phaseOrder = map[Phase]int{
	PhaseUpload:      0,
	PhaseCollaborate: 1,
	PhaseRegister:    2,
	PhasePublish:     3,
	PhaseRevenue:     4,
}

// Next returns the phase that follows p, or p itself when terminal.
func (p Phase) Next() Phase {
	switch p {
	case PhaseUpload:
		return PhaseCollaborate
	case PhaseCollaborate:
		return PhaseRegister
	case PhaseRegister:
		return PhasePublish
	case PhasePublish:
		return PhaseRevenue
	default:
		return p
	}
}

// After reports whether p comes strictly after other in the lifecycle.
func (p Phase) After(other Phase) bool {
	return phaseOrder[p] > phaseOrder[other]
}

// Terminal reports whether no further transition exists.
func (p Phase) Terminal() bool { return p == PhaseRevenue }

// Asset is the full lifecycle record for one song. One row per created
// item; mutated only through AssetStore.Update so that multi-field
// invariants (balance accounting, phase ordering) are never observable
// half-written.
type Asset struct {
	ID                   uint64
	Owner                string
	Phase                Phase
	LastPhaseChangeAt    time.Time
	PublishedAt          time.Time // zero until Register -> Publish
	LifetimeRevenue      int64     // monotonic, smallest monetary unit
	DistributableBalance int64
	IntegrityHash        string // hex digest binding the asset to its audio, set at creation
	StreamCount          uint64 // monotonic consumption metric
	ExternalTrackID      string // set once during Register
	Collaborators        []Collaborator
	CreatedAt            time.Time
}

// Collaborator is one stakeholder share. The creator's entry is always
// index 0 and holds the unassigned remainder; entries are append-only
// and immutable once written, so the percentage sum stays 100 by
// construction.
type Collaborator struct {
	Holder     string
	Percentage int
}

// CreatorShare returns the creator's current unassigned remainder.
func (a *Asset) CreatorShare() int {
	if len(a.Collaborators) == 0 {
		return 0
	}
	return a.Collaborators[0].Percentage
}

// AllocateShare moves percentage points from the creator's remainder to
// a newly appended collaborator entry. The 100-sum invariant holds
// before and after because the two writes cancel out.
func (a *Asset) AllocateShare(holder string, percentage int) error {
	if percentage <= 0 || percentage > 100 {
		return dErrors.New(dErrors.CodeInvalidPercentage, "percentage must be in 1..100")
	}
	if a.CreatorShare() < percentage {
		return dErrors.New(dErrors.CodeInsufficientShare, "creator share cannot cover requested percentage")
	}
	a.Collaborators[0].Percentage -= percentage
	a.Collaborators = append(a.Collaborators, Collaborator{Holder: holder, Percentage: percentage})
	return nil
}

// VerificationKind tags what an external verification request is for.
type VerificationKind string

const (
	// KindCheckPublication asks the network whether the registered track
	// is live; a truthy answer moves Register -> Publish.
	KindCheckPublication VerificationKind = "check_publication"

	// KindUpdateMetric asks the network for the current stream count.
	KindUpdateMetric VerificationKind = "update_metric"
)

// Valid reports whether k is a known kind.
func (k VerificationKind) Valid() bool {
	return k == KindCheckPublication || k == KindUpdateMetric
}

// PendingVerification links an outstanding network request id to the
// asset and operation it concerns. Records are single-use: Take removes
// them, so a duplicate delivery finds nothing.
type PendingVerification struct {
	AssetID   uint64
	Kind      VerificationKind
	IssuedAt  time.Time
	ExpiresAt time.Time // zero means no expiry
}
