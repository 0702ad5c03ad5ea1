package catalog

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verzog/merchant/internal/domain"
)

type fakeStore struct {
	catalogs map[int64]*domain.Catalog
	items    map[int64][]domain.CatalogItem
}

func (s *fakeStore) Catalog(ctx context.Context, id int64) (*domain.Catalog, error) {
	cat, ok := s.catalogs[id]
	if !ok {
		return nil, domain.NotFound("catalog.get", "catalog", strconv.FormatInt(id, 10))
	}
	return cat, nil
}

func (s *fakeStore) CatalogItemByCode(ctx context.Context, catalogID int64, code string) (*domain.CatalogItem, error) {
	for _, item := range s.items[catalogID] {
		if item.Code == code {
			return &item, nil
		}
	}
	return nil, domain.NotFound("catalog.item", "catalog item", code)
}

func (s *fakeStore) CatalogItems(ctx context.Context, catalogID int64) ([]domain.CatalogItem, error) {
	return s.items[catalogID], nil
}

func twoTierStore() *fakeStore {
	return &fakeStore{
		catalogs: map[int64]*domain.Catalog{
			1: {ID: 1, Name: "master"},
			2: {ID: 2, Name: "shop", MasterID: 1},
		},
		items: map[int64][]domain.CatalogItem{
			1: {
				{ID: 10, CatalogID: 1, Code: "SEAT1", Name: "Seat pack"},
				{ID: 11, CatalogID: 1, Code: "BOOK1", Name: "Course book"},
			},
			2: {
				{ID: 20, CatalogID: 2, Code: "SEAT1", Name: "Local seat pack"},
			},
		},
	}
}

func TestResolver_Item(t *testing.T) {
	resolver := NewResolver(twoTierStore())
	ctx := context.Background()

	t.Run("local override wins", func(t *testing.T) {
		item, err := resolver.Item(ctx, 2, "SEAT1")
		require.NoError(t, err)
		assert.Equal(t, int64(20), item.ID)
		assert.Equal(t, "Local seat pack", item.Name)
	})

	t.Run("miss falls through to master", func(t *testing.T) {
		item, err := resolver.Item(ctx, 2, "BOOK1")
		require.NoError(t, err)
		assert.Equal(t, int64(11), item.ID)
	})

	t.Run("master catalog has no fallback", func(t *testing.T) {
		_, err := resolver.Item(ctx, 1, "MISSING")
		require.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
	})

	t.Run("miss in both tiers", func(t *testing.T) {
		_, err := resolver.Item(ctx, 2, "MISSING")
		require.Error(t, err)
		assert.True(t, domain.IsCode(err, domain.ENOTFOUND))
	})
}

func TestResolver_Items(t *testing.T) {
	resolver := NewResolver(twoTierStore())
	ctx := context.Background()

	t.Run("slave merges master minus overrides", func(t *testing.T) {
		items, err := resolver.Items(ctx, 2)
		require.NoError(t, err)
		require.Len(t, items, 2)

		byCode := make(map[string]domain.CatalogItem)
		for _, item := range items {
			byCode[item.Code] = item
		}
		assert.Equal(t, int64(20), byCode["SEAT1"].ID, "local override shadows master")
		assert.Equal(t, int64(11), byCode["BOOK1"].ID, "master fills the gaps")
	})

	t.Run("master lists only itself", func(t *testing.T) {
		items, err := resolver.Items(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})
}
