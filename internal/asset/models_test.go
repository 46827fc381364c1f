package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "spyral/pkg/domain-errors"
)

func TestPhaseOrdering(t *testing.T) {
	assert.Equal(t, PhaseCollaborate, PhaseUpload.Next())
	assert.Equal(t, PhaseRegister, PhaseCollaborate.Next())
	assert.Equal(t, PhasePublish, PhaseRegister.Next())
	assert.Equal(t, PhaseRevenue, PhasePublish.Next())
	assert.Equal(t, PhaseRevenue, PhaseRevenue.Next(), "the final phase has no successor")

	assert.True(t, PhaseRevenue.After(PhaseUpload))
	assert.True(t, PhasePublish.After(PhaseRegister))
	assert.False(t, PhaseUpload.After(PhaseUpload))
	assert.False(t, PhaseCollaborate.After(PhaseRegister))

	assert.True(t, PhaseRevenue.Terminal())
	assert.False(t, PhasePublish.Terminal())
}

func TestAllocateShare(t *testing.T) {
	a := &Asset{Collaborators: []Collaborator{{Holder: "creator", Percentage: 100}}}

	require.NoError(t, a.AllocateShare("producer", 40))
	require.NoError(t, a.AllocateShare("vocalist", 20))

	assert.Equal(t, []Collaborator{
		{Holder: "creator", Percentage: 40},
		{Holder: "producer", Percentage: 40},
		{Holder: "vocalist", Percentage: 20},
	}, a.Collaborators)

	sum := 0
	for _, c := range a.Collaborators {
		sum += c.Percentage
	}
	assert.Equal(t, 100, sum)
}

func TestAllocateShareRejections(t *testing.T) {
	a := &Asset{Collaborators: []Collaborator{{Holder: "creator", Percentage: 30}}}

	err := a.AllocateShare("producer", 0)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPercentage))

	err = a.AllocateShare("producer", 101)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidPercentage))

	err = a.AllocateShare("producer", 31)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInsufficientShare))

	assert.Len(t, a.Collaborators, 1, "rejected allocations change nothing")
	assert.Equal(t, 30, a.CreatorShare())

	// The creator may hand out the entire remainder.
	require.NoError(t, a.AllocateShare("producer", 30))
	assert.Equal(t, 0, a.CreatorShare())
}

func TestVerificationKindValid(t *testing.T) {
	assert.True(t, KindCheckPublication.Valid())
	assert.True(t, KindUpdateMetric.Valid())
	assert.False(t, VerificationKind("audit").Valid())
	assert.False(t, VerificationKind("").Valid())
}
