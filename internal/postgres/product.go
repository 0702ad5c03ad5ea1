package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/verzog/merchant/internal/domain"
)

const productColumns = `id, customer_id, bill_item_id, catalog_item_id, item_code, reference,
	status, start_date, end_date, extra_data, created_at, updated_at, deleted_at`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p         domain.Product
		start     *time.Time
		end       *time.Time
		deletedAt *time.Time
	)
	err := row.Scan(
		&p.ID, &p.CustomerID, &p.BillItemID, &p.CatalogItemID, &p.ItemCode, &p.Reference,
		&p.Status, &start, &end, &p.ExtraData, &p.CreatedAt, &p.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.StartDate = timeOrZero(start)
	p.EndDate = timeOrZero(end)
	p.DeletedAt = timeOrZero(deletedAt)
	return &p, nil
}

// Product loads one delivered instance.
func (s *Store) Product(ctx context.Context, id int64) (*domain.Product, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("product.get", "product", strconv.FormatInt(id, 10))
		}
		return nil, domain.Internal(err, "product.get", "failed to load product")
	}
	return product, nil
}

// CreateProduct inserts one delivered instance.
func (s *Store) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	created := *product
	extraData := product.ExtraData
	if extraData == nil {
		extraData = map[string]string{}
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO products (customer_id, bill_item_id, catalog_item_id, item_code, reference,
			status, start_date, end_date, extra_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		product.CustomerID, product.BillItemID, product.CatalogItemID, product.ItemCode, product.Reference,
		product.Status, nullTime(product.StartDate), nullTime(product.EndDate), extraData,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, domain.Internal(err, "product.create", "failed to insert product")
	}
	return &created, nil
}

// UpdateProduct rewrites the mutable instance fields.
func (s *Store) UpdateProduct(ctx context.Context, product *domain.Product) error {
	extraData := product.ExtraData
	if extraData == nil {
		extraData = map[string]string{}
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE products SET status = $1, start_date = $2, end_date = $3, extra_data = $4, updated_at = now()
		WHERE id = $5`,
		product.Status, nullTime(product.StartDate), nullTime(product.EndDate), extraData, product.ID)
	if err != nil {
		return domain.Internal(err, "product.update", "failed to update product")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("product.update", "product", strconv.FormatInt(product.ID, 10))
	}
	return nil
}

// SoftDeleteProduct retires an instance, keeping the row.
func (s *Store) SoftDeleteProduct(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE products SET status = $1, deleted_at = now(), updated_at = now()
		WHERE id = $2`, domain.ProductStatusDeleted, id)
	if err != nil {
		return domain.Internal(err, "product.delete", "failed to soft delete product")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("product.delete", "product", strconv.FormatInt(id, 10))
	}
	return nil
}

// RestoreProduct reactivates a soft deleted instance.
func (s *Store) RestoreProduct(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE products SET status = $1, deleted_at = NULL, updated_at = now()
		WHERE id = $2`, domain.ProductStatusActive, id)
	if err != nil {
		return domain.Internal(err, "product.restore", "failed to restore product")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("product.restore", "product", strconv.FormatInt(id, 10))
	}
	return nil
}

// HardDeleteProduct removes the row. The cascade takes its events.
func (s *Store) HardDeleteProduct(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return domain.Internal(err, "product.destroy", "failed to delete product")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("product.destroy", "product", strconv.FormatInt(id, 10))
	}
	return nil
}

// CreateProductEvent appends one audit trail entry.
func (s *Store) CreateProductEvent(ctx context.Context, event *domain.ProductEvent) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO product_events (product_id, event_type, actor, detail)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		event.ProductID, event.Type, event.Actor, event.Detail,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return domain.Internal(err, "product.event", "failed to insert product event")
	}
	return nil
}

// SetItemProduced marks a bill line fulfilled.
func (s *Store) SetItemProduced(ctx context.Context, itemID int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bill_items SET produced = TRUE, production_error = '' WHERE id = $1`, itemID)
	if err != nil {
		return domain.Internal(err, "billitem.update", "failed to mark item produced")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("billitem.update", "bill item", strconv.FormatInt(itemID, 10))
	}
	return nil
}

// SetItemProductionError records why a bill line failed to produce.
func (s *Store) SetItemProductionError(ctx context.Context, itemID int64, message string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bill_items SET production_error = $1 WHERE id = $2`, message, itemID)
	if err != nil {
		return domain.Internal(err, "billitem.update", "failed to record production error")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("billitem.update", "bill item", strconv.FormatInt(itemID, 10))
	}
	return nil
}
