package postgres

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/verzog/merchant/internal/domain"
)

// Catalog loads one catalog header.
func (s *Store) Catalog(ctx context.Context, id int64) (*domain.Catalog, error) {
	var c domain.Catalog
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, description, master_id, created_at, updated_at
		FROM catalogs WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Description, &c.MasterID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("catalog.get", "catalog", strconv.FormatInt(id, 10))
		}
		return nil, domain.Internal(err, "catalog.get", "failed to load catalog")
	}
	return &c, nil
}

const catalogItemColumns = `id, catalog_id, code, name, description, tax_code, tiers,
	max_delivery_quantity, eligibility, handler_params, pack_size, shipping_value, leaflet,
	created_at, updated_at`

func scanCatalogItem(row pgx.Row) (*domain.CatalogItem, error) {
	var item domain.CatalogItem
	err := row.Scan(
		&item.ID, &item.CatalogID, &item.Code, &item.Name, &item.Description, &item.TaxCode, &item.Tiers,
		&item.MaxDeliveryQuantity, &item.Eligibility, &item.HandlerParams, &item.PackSize,
		&item.ShippingValue, &item.Leaflet, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CatalogItemByCode loads one item of a catalog by its short code.
func (s *Store) CatalogItemByCode(ctx context.Context, catalogID int64, code string) (*domain.CatalogItem, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+catalogItemColumns+` FROM catalog_items
		WHERE catalog_id = $1 AND code = $2`, catalogID, code)
	item, err := scanCatalogItem(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("catalog.item", "catalog item", code)
		}
		return nil, domain.Internal(err, "catalog.item", "failed to load catalog item")
	}
	return item, nil
}

// CatalogItems lists the items of one catalog.
func (s *Store) CatalogItems(ctx context.Context, catalogID int64) ([]domain.CatalogItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+catalogItemColumns+` FROM catalog_items
		WHERE catalog_id = $1 ORDER BY code`, catalogID)
	if err != nil {
		return nil, domain.Internal(err, "catalog.items", "failed to list catalog items")
	}
	defer rows.Close()

	var items []domain.CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, domain.Internal(err, "catalog.items", "failed to scan catalog item")
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "catalog.items", "failed to read catalog items")
	}
	return items, nil
}
