// Package registry exposes the authoritative ownership registry as a
// port. Every service consults it; none mutates it. Ownership transfer
// lives in the external system.
package registry

import "context"

//go:generate mockgen -source=registry.go -destination=mocks/mocks.go -package=mocks AssetRegistry

// AssetRegistry answers ownership and delegation questions for assets.
type AssetRegistry interface {
	// IsAuthorized reports whether caller is the owner of the asset or a
	// delegate the registry has approved for it.
	IsAuthorized(ctx context.Context, assetID uint64, caller string) (bool, error)

	// OwnerOf returns the current owner's holder address.
	OwnerOf(ctx context.Context, assetID uint64) (string, error)
}
