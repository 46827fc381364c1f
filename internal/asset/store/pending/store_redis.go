package pendingstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"spyral/internal/asset"
	"spyral/pkg/platform/sentinel"
)

const keyPrefix = "spyral:pending:"

// Redis stores pending verification records with GETDEL as the
// consume-once primitive, so duplicate deliveries race safely across
// processes. A non-zero ExpiresAt becomes a native key TTL.
type Redis struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client}
}

type pendingRecord struct {
	AssetID   uint64    `json:"asset_id"`
	Kind      string    `json:"kind"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (s *Redis) Put(ctx context.Context, requestID string, p asset.PendingVerification) error {
	payload, err := json.Marshal(pendingRecord{
		AssetID:   p.AssetID,
		Kind:      string(p.Kind),
		IssuedAt:  p.IssuedAt,
		ExpiresAt: p.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal pending record: %w", err)
	}

	var ttl time.Duration
	if !p.ExpiresAt.IsZero() {
		ttl = time.Until(p.ExpiresAt)
		if ttl <= 0 {
			return sentinel.ErrExpired
		}
	}

	ok, err := s.client.SetNX(ctx, keyPrefix+requestID, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("store pending record: %w", err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Redis) Take(ctx context.Context, requestID string) (asset.PendingVerification, error) {
	payload, err := s.client.GetDel(ctx, keyPrefix+requestID).Bytes()
	if errors.Is(err, redis.Nil) {
		return asset.PendingVerification{}, sentinel.ErrNotFound
	}
	if err != nil {
		return asset.PendingVerification{}, fmt.Errorf("take pending record: %w", err)
	}

	var rec pendingRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return asset.PendingVerification{}, fmt.Errorf("unmarshal pending record: %w", err)
	}
	return asset.PendingVerification{
		AssetID:   rec.AssetID,
		Kind:      asset.VerificationKind(rec.Kind),
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}
