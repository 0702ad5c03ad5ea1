package domain

import "time"

// Cart is the pre-bill shopping state, keyed by the transaction token
// that will follow the order through the gateway round trip.
type Cart struct {
	TransactionID string
	CustomerID    int64
	CatalogID     int64

	Currency string
	Country  string
	Zip      string

	Lines []CartLine

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLine is one item and quantity in a cart.
type CartLine struct {
	ItemCode string
	Quantity int

	// CustomerData carries per-line required answers (attendee names,
	// seat assignments) collected at checkout.
	CustomerData map[string]string
}

// TotalQuantity sums the ordered quantities across lines.
func (c *Cart) TotalQuantity() int {
	total := 0
	for _, line := range c.Lines {
		total += line.Quantity
	}
	return total
}

// Line returns the cart line for an item code, or nil.
func (c *Cart) Line(code string) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ItemCode == code {
			return &c.Lines[i]
		}
	}
	return nil
}

// Customer is the purchasing party. Guest checkouts create a customer
// row from the billing form.
type Customer struct {
	ID        int64
	Email     string
	FirstName string
	LastName  string

	// AccountID links the customer to a provisioned identity, 0 until
	// first production assigns one.
	AccountID int64

	Country string
	Zip     string
	City    string
	Address string

	CreatedAt time.Time
	UpdatedAt time.Time
}
