package registry

import (
	"context"
	"sync"

	"spyral/internal/asset"
)

// AssetFinder is the slice of the asset store the adapter reads.
type AssetFinder interface {
	Find(ctx context.Context, id uint64) (*asset.Asset, error)
}

// AssetBacked answers ownership questions from the local asset records.
// It serves development and single-node deployments where no external
// registry runs; approvals are kept in process.
type AssetBacked struct {
	assets AssetFinder

	mu        sync.RWMutex
	approvals map[uint64]map[string]bool
}

func NewAssetBacked(assets AssetFinder) *AssetBacked {
	return &AssetBacked{
		assets:    assets,
		approvals: make(map[uint64]map[string]bool),
	}
}

// Approve grants delegate rights for one asset.
func (r *AssetBacked) Approve(assetID uint64, delegate string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.approvals[assetID] == nil {
		r.approvals[assetID] = make(map[string]bool)
	}
	r.approvals[assetID][delegate] = true
}

func (r *AssetBacked) IsAuthorized(ctx context.Context, assetID uint64, caller string) (bool, error) {
	a, err := r.assets.Find(ctx, assetID)
	if err != nil {
		return false, err
	}
	if a.Owner == caller {
		return true, nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.approvals[assetID][caller], nil
}

func (r *AssetBacked) OwnerOf(ctx context.Context, assetID uint64) (string, error) {
	a, err := r.assets.Find(ctx, assetID)
	if err != nil {
		return "", err
	}
	return a.Owner, nil
}
