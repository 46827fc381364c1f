package assetstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"spyral/internal/asset"
	"spyral/pkg/platform/sentinel"
	txcontext "spyral/pkg/platform/tx"
)

// Postgres persists assets and their splits. Update wraps the mutation
// in a transaction that locks the asset row, which gives the exclusive-
// lock-per-record discipline on a shared database.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema (migrations live with the deployment, kept here for reference):
//
//	CREATE SEQUENCE IF NOT EXISTS asset_ids;
//	CREATE TABLE IF NOT EXISTS assets (
//	    id                    BIGINT PRIMARY KEY,
//	    owner_holder          TEXT        NOT NULL,
//	    phase                 TEXT        NOT NULL,
//	    last_phase_change_at  TIMESTAMPTZ NOT NULL,
//	    published_at          TIMESTAMPTZ,
//	    lifetime_revenue      BIGINT      NOT NULL DEFAULT 0,
//	    distributable_balance BIGINT      NOT NULL DEFAULT 0,
//	    integrity_hash        TEXT        NOT NULL,
//	    stream_count          BIGINT      NOT NULL DEFAULT 0,
//	    external_track_id     TEXT        NOT NULL DEFAULT '',
//	    created_at            TIMESTAMPTZ NOT NULL
//	);
//	CREATE TABLE IF NOT EXISTS asset_collaborators (
//	    asset_id   BIGINT NOT NULL REFERENCES assets(id),
//	    position   INT    NOT NULL,
//	    holder     TEXT   NOT NULL,
//	    percentage INT    NOT NULL,
//	    PRIMARY KEY (asset_id, position)
//	);

func (s *Postgres) NextID(ctx context.Context) (uint64, error) {
	var id uint64
	if err := s.db.QueryRowContext(ctx, `SELECT nextval('asset_ids')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("next asset id: %w", err)
	}
	return id, nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Create writes the asset row and its splits atomically. A transaction
// already carried on the context is joined; otherwise Create opens its
// own, so a failed collaborator insert never leaves a half-written
// asset behind.
func (s *Postgres) Create(ctx context.Context, a *asset.Asset) error {
	if _, ok := txcontext.From(ctx); ok {
		return s.insert(ctx, a)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.insert(txcontext.WithTx(ctx, tx), a); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Postgres) insert(ctx context.Context, a *asset.Asset) error {
	exec := s.execer(ctx)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO assets (id, owner_holder, phase, last_phase_change_at, published_at,
		                    lifetime_revenue, distributable_balance, integrity_hash,
		                    stream_count, external_track_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.Owner, string(a.Phase), a.LastPhaseChangeAt, nullTime(a.PublishedAt),
		a.LifetimeRevenue, a.DistributableBalance, a.IntegrityHash,
		int64(a.StreamCount), a.ExternalTrackID, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	for i, c := range a.Collaborators {
		if _, err := exec.ExecContext(ctx, `
			INSERT INTO asset_collaborators (asset_id, position, holder, percentage)
			VALUES ($1, $2, $3, $4)`, a.ID, i, c.Holder, c.Percentage); err != nil {
			return fmt.Errorf("insert collaborator: %w", err)
		}
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, id uint64) (*asset.Asset, error) {
	return s.load(ctx, s.execer(ctx), id, false)
}

// Update locks the asset row, applies mutate, and persists the result
// in the same transaction. mutate failing rolls everything back.
func (s *Postgres) Update(ctx context.Context, id uint64, mutate func(*asset.Asset) error) (*asset.Asset, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	a, err := s.load(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if err := mutate(a); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE assets
		SET phase = $2, last_phase_change_at = $3, published_at = $4,
		    lifetime_revenue = $5, distributable_balance = $6,
		    stream_count = $7, external_track_id = $8
		WHERE id = $1`,
		a.ID, string(a.Phase), a.LastPhaseChangeAt, nullTime(a.PublishedAt),
		a.LifetimeRevenue, a.DistributableBalance, int64(a.StreamCount), a.ExternalTrackID); err != nil {
		return nil, fmt.Errorf("update asset: %w", err)
	}

	// Entries are append-only, so rewriting the full list is cheap and
	// keeps positions authoritative.
	if _, err := tx.ExecContext(ctx, `DELETE FROM asset_collaborators WHERE asset_id = $1`, a.ID); err != nil {
		return nil, fmt.Errorf("clear collaborators: %w", err)
	}
	for i, c := range a.Collaborators {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO asset_collaborators (asset_id, position, holder, percentage)
			VALUES ($1, $2, $3, $4)`, a.ID, i, c.Holder, c.Percentage); err != nil {
			return nil, fmt.Errorf("insert collaborator: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

func (s *Postgres) load(ctx context.Context, exec dbExecutor, id uint64, forUpdate bool) (*asset.Asset, error) {
	query := `
		SELECT id, owner_holder, phase, last_phase_change_at, published_at,
		       lifetime_revenue, distributable_balance, integrity_hash,
		       stream_count, external_track_id, created_at
		FROM assets WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var (
		a           asset.Asset
		phase       string
		publishedAt sql.NullTime
		streams     int64
	)
	err := exec.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.Owner, &phase, &a.LastPhaseChangeAt, &publishedAt,
		&a.LifetimeRevenue, &a.DistributableBalance, &a.IntegrityHash,
		&streams, &a.ExternalTrackID, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select asset: %w", err)
	}
	a.Phase = asset.Phase(phase)
	a.StreamCount = uint64(streams)
	if publishedAt.Valid {
		a.PublishedAt = publishedAt.Time
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT holder, percentage FROM asset_collaborators
		WHERE asset_id = $1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("select collaborators: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c asset.Collaborator
		if err := rows.Scan(&c.Holder, &c.Percentage); err != nil {
			return nil, fmt.Errorf("scan collaborator: %w", err)
		}
		a.Collaborators = append(a.Collaborators, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collaborators: %w", err)
	}
	return &a, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
