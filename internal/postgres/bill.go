package postgres

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/verzog/merchant/internal/domain"
)

const billColumns = `id, customer_id, catalog_id, transaction_id, online_transaction_id,
	id_number, status, gateway, currency, country, zip,
	untaxed_amount, tax_amount, shipping_amount, discount_amount, amount,
	paid_amount, payment_fee, created_at, updated_at`

func scanBill(row pgx.Row) (*domain.Bill, error) {
	var bill domain.Bill
	err := row.Scan(
		&bill.ID, &bill.CustomerID, &bill.CatalogID, &bill.TransactionID, &bill.OnlineTransactionID,
		&bill.IDNumber, &bill.Status, &bill.Gateway, &bill.Currency, &bill.Country, &bill.Zip,
		&bill.UntaxedAmount, &bill.TaxAmount, &bill.ShippingAmount, &bill.DiscountAmount, &bill.Amount,
		&bill.PaidAmount, &bill.PaymentFee, &bill.CreatedAt, &bill.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &bill, nil
}

// WithBillLock runs fn while holding the bill's session advisory lock,
// serializing the verify, transition and produce section across
// processes. The lock lives on a dedicated connection so fn is free to
// use the pool.
func (s *Store) WithBillLock(ctx context.Context, billID int64, fn func() error) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return domain.Internal(err, "bill.lock", "failed to acquire a connection")
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, billID); err != nil {
		return domain.Internal(err, "bill.lock", "failed to take the advisory lock")
	}
	defer func() {
		// Unlock even when ctx is already done; an unreleased session
		// lock would outlive the request.
		if _, err := conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, billID); err != nil {
			_ = conn.Conn().Close(context.WithoutCancel(ctx))
		}
	}()

	return fn()
}

// Bill loads one bill with its lines.
func (s *Store) Bill(ctx context.Context, id int64) (*domain.Bill, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE id = $1`, id)
	bill, err := scanBill(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("bill.get", "bill", strconv.FormatInt(id, 10))
		}
		return nil, domain.Internal(err, "bill.get", "failed to load bill")
	}
	if bill.Items, err = s.billItems(ctx, bill.ID); err != nil {
		return nil, err
	}
	return bill, nil
}

// BillByTransactionID loads the bill a gateway token refers to.
func (s *Store) BillByTransactionID(ctx context.Context, transID string) (*domain.Bill, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+billColumns+` FROM bills WHERE transaction_id = $1`, transID)
	bill, err := scanBill(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("bill.get", "bill", transID)
		}
		return nil, domain.Internal(err, "bill.get", "failed to load bill")
	}
	if bill.Items, err = s.billItems(ctx, bill.ID); err != nil {
		return nil, err
	}
	return bill, nil
}

func (s *Store) billItems(ctx context.Context, billID int64) ([]domain.BillItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, bill_id, item_type, item_code, catalog_item_id, label, quantity,
			unit_price, total_price, tax_amount, produced, production_error, customer_data
		FROM bill_items WHERE bill_id = $1 ORDER BY id`, billID)
	if err != nil {
		return nil, domain.Internal(err, "bill.items", "failed to load bill items")
	}
	defer rows.Close()

	var items []domain.BillItem
	for rows.Next() {
		var item domain.BillItem
		if err := rows.Scan(
			&item.ID, &item.BillID, &item.Type, &item.ItemCode, &item.CatalogItemID,
			&item.Label, &item.Quantity, &item.UnitPrice, &item.TotalPrice, &item.TaxAmount,
			&item.Produced, &item.ProductionError, &item.CustomerData,
		); err != nil {
			return nil, domain.Internal(err, "bill.items", "failed to scan bill item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "bill.items", "failed to read bill items")
	}
	return items, nil
}

// CreateBill inserts a bill and its lines in one transaction.
func (s *Store) CreateBill(ctx context.Context, bill *domain.Bill) (*domain.Bill, error) {
	created := *bill
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO bills (customer_id, catalog_id, transaction_id, status, gateway, currency,
				country, zip, untaxed_amount, tax_amount, shipping_amount, discount_amount, amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id, created_at, updated_at`,
			bill.CustomerID, bill.CatalogID, bill.TransactionID, bill.Status, bill.Gateway, bill.Currency,
			bill.Country, bill.Zip, bill.UntaxedAmount, bill.TaxAmount, bill.ShippingAmount,
			bill.DiscountAmount, bill.Amount,
		).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.Conflict("bill.create", "transaction id already in use")
			}
			return domain.Internal(err, "bill.create", "failed to insert bill")
		}

		created.Items = append([]domain.BillItem(nil), bill.Items...)
		for i := range created.Items {
			created.Items[i].BillID = created.ID
			if err := insertBillItem(ctx, tx, &created.Items[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func insertBillItem(ctx context.Context, tx pgx.Tx, item *domain.BillItem) error {
	customerData := item.CustomerData
	if customerData == nil {
		customerData = map[string]string{}
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO bill_items (bill_id, item_type, item_code, catalog_item_id, label, quantity,
			unit_price, total_price, tax_amount, produced, production_error, customer_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		item.BillID, item.Type, item.ItemCode, item.CatalogItemID, item.Label, item.Quantity,
		item.UnitPrice, item.TotalPrice, item.TaxAmount, item.Produced, item.ProductionError, customerData,
	).Scan(&item.ID)
	if err != nil {
		return domain.Internal(err, "bill.create", "failed to insert bill item")
	}
	return nil
}

// UpdateBillStatus moves a bill from one status to another. The
// conditional update makes concurrent transitions lose cleanly.
func (s *Store) UpdateBillStatus(ctx context.Context, billID int64, from, to domain.BillStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bills SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`, to, billID, from)
	if err != nil {
		return domain.Internal(err, "bill.update", "failed to update bill status")
	}
	if tag.RowsAffected() == 0 {
		return domain.Conflict("bill.update", "bill status changed concurrently")
	}
	return nil
}

// UpdateBillTotals rewrites the pricing fields and lines after a
// recalculation.
func (s *Store) UpdateBillTotals(ctx context.Context, bill *domain.Bill) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE bills SET untaxed_amount = $1, tax_amount = $2, shipping_amount = $3,
				discount_amount = $4, amount = $5, updated_at = now()
			WHERE id = $6`,
			bill.UntaxedAmount, bill.TaxAmount, bill.ShippingAmount,
			bill.DiscountAmount, bill.Amount, bill.ID)
		if err != nil {
			return domain.Internal(err, "bill.update", "failed to update bill totals")
		}
		if tag.RowsAffected() == 0 {
			return domain.NotFound("bill.update", "bill", strconv.FormatInt(bill.ID, 10))
		}

		if _, err := tx.Exec(ctx, `DELETE FROM bill_items WHERE bill_id = $1`, bill.ID); err != nil {
			return domain.Internal(err, "bill.update", "failed to clear bill items")
		}
		for i := range bill.Items {
			bill.Items[i].BillID = bill.ID
			if err := insertBillItem(ctx, tx, &bill.Items[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// SetBillIDNumber stamps the accounting number that freezes the bill.
func (s *Store) SetBillIDNumber(ctx context.Context, billID int64, idNumber string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bills SET id_number = $1, updated_at = now() WHERE id = $2`, idNumber, billID)
	if err != nil {
		return domain.Internal(err, "bill.update", "failed to set bill id number")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("bill.update", "bill", strconv.FormatInt(billID, 10))
	}
	return nil
}

// SetBillPayment records what the gateway reported received.
func (s *Store) SetBillPayment(ctx context.Context, billID int64, paid, fee float64, onlineTransactionID string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bills SET paid_amount = $1, payment_fee = $2, online_transaction_id = $3, updated_at = now()
		WHERE id = $4`, paid, fee, onlineTransactionID, billID)
	if err != nil {
		return domain.Internal(err, "bill.update", "failed to record bill payment")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("bill.update", "bill", strconv.FormatInt(billID, 10))
	}
	return nil
}

// ListBillsByStatus returns bills sitting in a status since before the
// cutoff, items included. The sweep worker feeds on this.
func (s *Store) ListBillsByStatus(ctx context.Context, status domain.BillStatus, olderThan time.Time) ([]domain.Bill, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+billColumns+` FROM bills
		WHERE status = $1 AND updated_at < $2 ORDER BY updated_at`, status, olderThan)
	if err != nil {
		return nil, domain.Internal(err, "bill.list", "failed to list bills")
	}
	defer rows.Close()

	var bills []domain.Bill
	for rows.Next() {
		bill, err := scanBill(rows)
		if err != nil {
			return nil, domain.Internal(err, "bill.list", "failed to scan bill")
		}
		bills = append(bills, *bill)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "bill.list", "failed to read bills")
	}

	for i := range bills {
		if bills[i].Items, err = s.billItems(ctx, bills[i].ID); err != nil {
			return nil, err
		}
	}
	return bills, nil
}
