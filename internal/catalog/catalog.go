// Package catalog resolves sellable items, following the master link
// of slave catalogs so a satellite shop only overrides what it must.
package catalog

import (
	"context"

	"github.com/verzog/merchant/internal/domain"
)

// Store is the persistence surface the resolver needs.
type Store interface {
	Catalog(ctx context.Context, id int64) (*domain.Catalog, error)
	CatalogItemByCode(ctx context.Context, catalogID int64, code string) (*domain.CatalogItem, error)
	CatalogItems(ctx context.Context, catalogID int64) ([]domain.CatalogItem, error)
}

// Resolver looks up items in a catalog, falling back to the master
// catalog for slave catalogs.
type Resolver struct {
	store Store
}

// NewResolver creates a catalog resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Item finds one item by code. A local entry always wins; for slave
// catalogs a miss falls through to the master.
func (r *Resolver) Item(ctx context.Context, catalogID int64, code string) (*domain.CatalogItem, error) {
	item, err := r.store.CatalogItemByCode(ctx, catalogID, code)
	if err == nil {
		return item, nil
	}
	if !domain.IsCode(err, domain.ENOTFOUND) {
		return nil, err
	}

	cat, cerr := r.store.Catalog(ctx, catalogID)
	if cerr != nil {
		return nil, cerr
	}
	if !cat.IsSlave() {
		return nil, err
	}
	return r.store.CatalogItemByCode(ctx, cat.MasterID, code)
}

// Items lists the effective contents of a catalog. For slave catalogs
// the master's items are included except where overridden locally.
func (r *Resolver) Items(ctx context.Context, catalogID int64) ([]domain.CatalogItem, error) {
	local, err := r.store.CatalogItems(ctx, catalogID)
	if err != nil {
		return nil, err
	}

	cat, err := r.store.Catalog(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	if !cat.IsSlave() {
		return local, nil
	}

	master, err := r.store.CatalogItems(ctx, cat.MasterID)
	if err != nil {
		return nil, err
	}

	overridden := make(map[string]bool, len(local))
	for _, item := range local {
		overridden[item.Code] = true
	}

	merged := local
	for _, item := range master {
		if !overridden[item.Code] {
			merged = append(merged, item)
		}
	}
	return merged, nil
}
