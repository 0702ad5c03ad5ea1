package postgres

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/verzog/merchant/internal/domain"
)

const customerColumns = `id, email, first_name, last_name, account_id,
	country, zip, city, address, created_at, updated_at`

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID, &c.Email, &c.FirstName, &c.LastName, &c.AccountID,
		&c.Country, &c.Zip, &c.City, &c.Address, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Customer loads one customer by id.
func (s *Store) Customer(ctx context.Context, id int64) (*domain.Customer, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	customer, err := scanCustomer(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("customer.get", "customer", strconv.FormatInt(id, 10))
		}
		return nil, domain.Internal(err, "customer.get", "failed to load customer")
	}
	return customer, nil
}

// CustomerByEmail looks a customer up by their checkout email.
func (s *Store) CustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE email = $1`, email)
	customer, err := scanCustomer(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("customer.get", "customer", email)
		}
		return nil, domain.Internal(err, "customer.get", "failed to load customer")
	}
	return customer, nil
}

// CreateCustomer inserts a new customer record.
func (s *Store) CreateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	created := *customer
	err := s.pool.QueryRow(ctx, `
		INSERT INTO customers (email, first_name, last_name, account_id, country, zip, city, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		customer.Email, customer.FirstName, customer.LastName, customer.AccountID,
		customer.Country, customer.Zip, customer.City, customer.Address,
	).Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.Conflict("customer.create", "email already registered")
		}
		return nil, domain.Internal(err, "customer.create", "failed to insert customer")
	}
	return &created, nil
}
