//go:build integration

package assetstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spyral/internal/asset"
	"spyral/pkg/platform/sentinel"
	"spyral/pkg/testutil/containers"
)

const schema = `
CREATE SEQUENCE IF NOT EXISTS asset_ids;
CREATE TABLE IF NOT EXISTS assets (
    id                    BIGINT PRIMARY KEY,
    owner_holder          TEXT        NOT NULL,
    phase                 TEXT        NOT NULL,
    last_phase_change_at  TIMESTAMPTZ NOT NULL,
    published_at          TIMESTAMPTZ,
    lifetime_revenue      BIGINT      NOT NULL DEFAULT 0,
    distributable_balance BIGINT      NOT NULL DEFAULT 0,
    integrity_hash        TEXT        NOT NULL,
    stream_count          BIGINT      NOT NULL DEFAULT 0,
    external_track_id     TEXT        NOT NULL DEFAULT '',
    created_at            TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS asset_collaborators (
    asset_id   BIGINT NOT NULL REFERENCES assets(id),
    position   INT    NOT NULL,
    holder     TEXT   NOT NULL,
    percentage INT    NOT NULL,
    PRIMARY KEY (asset_id, position)
);`

func newPostgresStore(t *testing.T) (*Postgres, *sql.DB) {
	t.Helper()
	db := containers.NewPostgresDB(t)
	_, err := db.Exec(schema)
	require.NoError(t, err)
	return NewPostgres(db), db
}

func TestPostgresRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	store, _ := newPostgresStore(t)

	id, err := store.NextID(ctx)
	require.NoError(t, err)
	next, err := store.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id+1, next)

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := &asset.Asset{
		ID:                id,
		Owner:             "creator",
		Phase:             asset.PhaseUpload,
		LastPhaseChangeAt: created,
		IntegrityHash:     "deadbeef",
		Collaborators:     []asset.Collaborator{{Holder: "creator", Percentage: 100}},
		CreatedAt:         created,
	}
	require.NoError(t, store.Create(ctx, a))

	got, err := store.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, a.Owner, got.Owner)
	assert.Equal(t, a.Phase, got.Phase)
	assert.Equal(t, a.IntegrityHash, got.IntegrityHash)
	assert.Equal(t, a.Collaborators, got.Collaborators)
	assert.True(t, got.PublishedAt.IsZero())
	assert.True(t, got.LastPhaseChangeAt.Equal(created))

	_, err = store.Find(ctx, id+100)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestPostgresUpdate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	store, _ := newPostgresStore(t)

	id, err := store.NextID(ctx)
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, store.Create(ctx, &asset.Asset{
		ID:                id,
		Owner:             "creator",
		Phase:             asset.PhaseCollaborate,
		LastPhaseChangeAt: now,
		IntegrityHash:     "deadbeef",
		Collaborators:     []asset.Collaborator{{Holder: "creator", Percentage: 100}},
		CreatedAt:         now,
	}))

	publishedAt := now.Add(time.Hour)
	updated, err := store.Update(ctx, id, func(a *asset.Asset) error {
		a.Phase = asset.PhasePublish
		a.PublishedAt = publishedAt
		a.StreamCount = 1200
		a.Collaborators = []asset.Collaborator{
			{Holder: "creator", Percentage: 60},
			{Holder: "producer", Percentage: 40},
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, asset.PhasePublish, updated.Phase)

	got, err := store.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, asset.PhasePublish, got.Phase)
	assert.True(t, got.PublishedAt.Equal(publishedAt))
	assert.Equal(t, uint64(1200), got.StreamCount)
	assert.Equal(t, []asset.Collaborator{
		{Holder: "creator", Percentage: 60},
		{Holder: "producer", Percentage: 40},
	}, got.Collaborators)
}

func TestPostgresUpdateRollsBackOnMutateFailure(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	store, _ := newPostgresStore(t)

	id, err := store.NextID(ctx)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, store.Create(ctx, &asset.Asset{
		ID:                id,
		Owner:             "creator",
		Phase:             asset.PhaseUpload,
		LastPhaseChangeAt: now,
		IntegrityHash:     "deadbeef",
		Collaborators:     []asset.Collaborator{{Holder: "creator", Percentage: 100}},
		CreatedAt:         now,
	}))

	_, err = store.Update(ctx, id, func(a *asset.Asset) error {
		a.Phase = asset.PhaseRevenue
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	got, err := store.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, asset.PhaseUpload, got.Phase)
}

func TestPostgresCreateIsAtomic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	store, _ := newPostgresStore(t)

	id, err := store.NextID(ctx)
	require.NoError(t, err)
	now := time.Now().UTC()

	// The second split overflows the INT column, so the collaborator
	// insert fails after the asset row went in.
	err = store.Create(ctx, &asset.Asset{
		ID:                id,
		Owner:             "creator",
		Phase:             asset.PhaseUpload,
		LastPhaseChangeAt: now,
		IntegrityHash:     "deadbeef",
		Collaborators: []asset.Collaborator{
			{Holder: "creator", Percentage: 100},
			{Holder: "intruder", Percentage: 1 << 40},
		},
		CreatedAt: now,
	})
	require.Error(t, err)

	_, err = store.Find(ctx, id)
	assert.ErrorIs(t, err, sentinel.ErrNotFound, "a failed create leaves no asset row behind")
}

func TestPostgresConcurrentUpdates(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	store, _ := newPostgresStore(t)

	id, err := store.NextID(ctx)
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, store.Create(ctx, &asset.Asset{
		ID:                id,
		Owner:             "creator",
		Phase:             asset.PhaseRevenue,
		LastPhaseChangeAt: now,
		IntegrityHash:     "deadbeef",
		Collaborators:     []asset.Collaborator{{Holder: "creator", Percentage: 100}},
		CreatedAt:         now,
	}))

	const writers = 10
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func() {
			_, err := store.Update(ctx, id, func(a *asset.Asset) error {
				a.LifetimeRevenue += 10
				a.DistributableBalance += 10
				return nil
			})
			errs <- err
		}()
	}
	for i := 0; i < writers; i++ {
		require.NoError(t, <-errs)
	}

	got, err := store.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(writers*10), got.LifetimeRevenue, "row lock serializes the increments")
}
