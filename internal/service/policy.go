package service

import "github.com/iliyamo/cloud-asset-api/internal/model"

// OwnerPolicy grants access to a resource only to the identity that owns
// it.  Denials are reported by callers as "not found", never "forbidden".
type OwnerPolicy struct{}

// CanAccess reports whether identity may read or change a resource owned
// by owner.
func (OwnerPolicy) CanAccess(identity, owner string) bool {
	return identity != "" && identity == owner
}

// Filter returns the subset of assets identity may see.
func (p OwnerPolicy) Filter(identity string, assets []model.Asset) []model.Asset {
	out := make([]model.Asset, 0, len(assets))
	for _, a := range assets {
		if p.CanAccess(identity, a.Owner) {
			out = append(out, a)
		}
	}
	return out
}
