package events

import "time"

// Type names one observable domain event. Downstream consumers (the
// metadata service, dashboards) key their routing on it.
type Type string

const (
	TypeAssetCreated          Type = "asset_created"
	TypePhaseChanged          Type = "phase_changed"
	TypeCollaboratorAdded     Type = "collaborator_added"
	TypeTrackIDSet            Type = "track_id_set"
	TypeVerificationRequested Type = "verification_requested"
	TypeMetricUpdated         Type = "metric_updated"
	TypeMonetizationUnlocked  Type = "monetization_unlocked"
	TypeRevenueReceived       Type = "revenue_received"
	TypeRevenueDistributed    Type = "revenue_distributed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic (plain strings, no domain types) so stores and
// sinks can fan out without importing the domain packages.
type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	AssetID   uint64    `json:"asset_id"`
	Timestamp time.Time `json:"timestamp"`

	// Phase transitions.
	OldPhase string `json:"old_phase,omitempty"`
	NewPhase string `json:"new_phase,omitempty"`

	// Monetary amounts in the smallest unit; meaning depends on Type
	// (deposit amount, total distributed).
	Amount int64 `json:"amount,omitempty"`

	// Remainder carried forward after a distribution.
	Remainder int64 `json:"remainder,omitempty"`

	// Stream count for metric events and monetization unlocks.
	Metric uint64 `json:"metric,omitempty"`

	// Verification correlation.
	RequestID string `json:"request_id,omitempty"`
	Kind      string `json:"kind,omitempty"`

	// Collaborator added, payout recipient, or caller when relevant.
	Holder     string `json:"holder,omitempty"`
	Percentage int    `json:"percentage,omitempty"`

	// Track registration.
	TrackID string `json:"track_id,omitempty"`
}
