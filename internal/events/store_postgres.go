package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresStore persists the event log. Rows carry the full event as
// JSONB so the schema never chases the Event struct; a serial sequence
// number preserves append order per asset.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema (migrations live with the deployment, kept here for reference):
//
//	CREATE TABLE IF NOT EXISTS asset_events (
//	    seq         BIGSERIAL PRIMARY KEY,
//	    id          TEXT        NOT NULL UNIQUE,
//	    asset_id    BIGINT      NOT NULL,
//	    type        TEXT        NOT NULL,
//	    occurred_at TIMESTAMPTZ NOT NULL,
//	    payload     JSONB       NOT NULL
//	);
//	CREATE INDEX IF NOT EXISTS asset_events_by_asset ON asset_events (asset_id, seq);

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO asset_events (id, asset_id, type, occurred_at, payload)
		VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.AssetID, string(event.Type), event.Timestamp, payload)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByAsset(ctx context.Context, assetID uint64) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM asset_events
		WHERE asset_id = $1 ORDER BY seq`, assetID)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var e Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
