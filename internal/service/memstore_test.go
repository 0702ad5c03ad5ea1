package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/verzog/merchant/internal/catalog"
	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/events"
	"github.com/verzog/merchant/internal/locks"
	"github.com/verzog/merchant/internal/pricing"
	"github.com/verzog/merchant/internal/production"
	"github.com/verzog/merchant/internal/provision"
	"github.com/verzog/merchant/internal/shipping"
	"github.com/verzog/merchant/internal/tax"
)

// memStore is the in-memory store backing the service tests. It
// implements the checkout, product, production and catalog store
// surfaces.
type memStore struct {
	mu sync.Mutex

	bills     map[int64]*domain.Bill
	customers map[int64]*domain.Customer
	products  map[int64]*domain.Product
	events    []*domain.ProductEvent
	catalogs  map[int64]*domain.Catalog
	items     map[int64][]domain.CatalogItem

	billLocks []int64

	nextID int64
}

func newMemStore() *memStore {
	return &memStore{
		bills:     make(map[int64]*domain.Bill),
		customers: make(map[int64]*domain.Customer),
		products:  make(map[int64]*domain.Product),
		catalogs:  make(map[int64]*domain.Catalog),
		items:     make(map[int64][]domain.CatalogItem),
		nextID:    1,
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

// ---- BillStore ----

func (m *memStore) Bill(ctx context.Context, id int64) (*domain.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bill, ok := m.bills[id]
	if !ok {
		return nil, domain.NotFound("bill.get", "bill", strconv.FormatInt(id, 10))
	}
	copied := *bill
	copied.Items = append([]domain.BillItem(nil), bill.Items...)
	return &copied, nil
}

func (m *memStore) BillByTransactionID(ctx context.Context, transID string) (*domain.Bill, error) {
	m.mu.Lock()
	var found *domain.Bill
	for _, bill := range m.bills {
		if bill.TransactionID == transID {
			found = bill
			break
		}
	}
	m.mu.Unlock()
	if found == nil {
		return nil, domain.NotFound("bill.get", "bill", transID)
	}
	return m.Bill(ctx, found.ID)
}

func (m *memStore) CreateBill(ctx context.Context, bill *domain.Bill) (*domain.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *bill
	copied.ID = m.id()
	copied.CreatedAt = time.Now()
	copied.UpdatedAt = copied.CreatedAt
	copied.Items = append([]domain.BillItem(nil), bill.Items...)
	for i := range copied.Items {
		copied.Items[i].ID = m.id()
		copied.Items[i].BillID = copied.ID
	}
	m.bills[copied.ID] = &copied

	out := copied
	out.Items = append([]domain.BillItem(nil), copied.Items...)
	return &out, nil
}

func (m *memStore) UpdateBillStatus(ctx context.Context, billID int64, from, to domain.BillStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bill, ok := m.bills[billID]
	if !ok {
		return domain.NotFound("bill.update", "bill", strconv.FormatInt(billID, 10))
	}
	if bill.Status != from {
		return domain.Conflict("bill.update", "bill status changed concurrently")
	}
	bill.Status = to
	bill.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) UpdateBillTotals(ctx context.Context, bill *domain.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.bills[bill.ID]
	if !ok {
		return domain.NotFound("bill.update", "bill", strconv.FormatInt(bill.ID, 10))
	}
	stored.UntaxedAmount = bill.UntaxedAmount
	stored.TaxAmount = bill.TaxAmount
	stored.ShippingAmount = bill.ShippingAmount
	stored.DiscountAmount = bill.DiscountAmount
	stored.Amount = bill.Amount
	stored.Items = append([]domain.BillItem(nil), bill.Items...)
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) SetBillIDNumber(ctx context.Context, billID int64, idNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bill, ok := m.bills[billID]
	if !ok {
		return domain.NotFound("bill.update", "bill", strconv.FormatInt(billID, 10))
	}
	bill.IDNumber = idNumber
	return nil
}

func (m *memStore) SetBillPayment(ctx context.Context, billID int64, paid, fee float64, onlineTransactionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bill, ok := m.bills[billID]
	if !ok {
		return domain.NotFound("bill.update", "bill", strconv.FormatInt(billID, 10))
	}
	bill.PaidAmount = paid
	bill.PaymentFee = fee
	bill.OnlineTransactionID = onlineTransactionID
	return nil
}

func (m *memStore) WithBillLock(ctx context.Context, billID int64, fn func() error) error {
	m.mu.Lock()
	m.billLocks = append(m.billLocks, billID)
	m.mu.Unlock()
	return fn()
}

func (m *memStore) ListBillsByStatus(ctx context.Context, status domain.BillStatus, olderThan time.Time) ([]domain.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Bill
	for _, bill := range m.bills {
		if bill.Status == status && bill.UpdatedAt.Before(olderThan) {
			copied := *bill
			copied.Items = append([]domain.BillItem(nil), bill.Items...)
			out = append(out, copied)
		}
	}
	return out, nil
}

// ---- CheckoutStore ----

func (m *memStore) CustomerByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, customer := range m.customers {
		if customer.Email == email {
			copied := *customer
			return &copied, nil
		}
	}
	return nil, domain.NotFound("customer.get", "customer", email)
}

func (m *memStore) CreateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *customer
	copied.ID = m.id()
	m.customers[copied.ID] = &copied
	out := copied
	return &out, nil
}

// ---- production.Store ----

func (m *memStore) Customer(ctx context.Context, id int64) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	customer, ok := m.customers[id]
	if !ok {
		return nil, domain.NotFound("customer.get", "customer", strconv.FormatInt(id, 10))
	}
	copied := *customer
	return &copied, nil
}

func (m *memStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *product
	copied.ID = m.id()
	copied.CreatedAt = time.Now()
	m.products[copied.ID] = &copied
	out := copied
	return &out, nil
}

func (m *memStore) CreateProductEvent(ctx context.Context, event *domain.ProductEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = m.id()
	event.CreatedAt = time.Now()
	m.events = append(m.events, event)
	return nil
}

func (m *memStore) SetItemProduced(ctx context.Context, itemID int64) error {
	return m.updateItem(itemID, func(item *domain.BillItem) {
		item.Produced = true
	})
}

func (m *memStore) SetItemProductionError(ctx context.Context, itemID int64, message string) error {
	return m.updateItem(itemID, func(item *domain.BillItem) {
		item.ProductionError = message
	})
}

func (m *memStore) updateItem(itemID int64, fn func(*domain.BillItem)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bill := range m.bills {
		for i := range bill.Items {
			if bill.Items[i].ID == itemID {
				fn(&bill.Items[i])
				return nil
			}
		}
	}
	return domain.NotFound("billitem.update", "bill item", strconv.FormatInt(itemID, 10))
}

// ---- ProductStore ----

func (m *memStore) Product(ctx context.Context, id int64) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return nil, domain.NotFound("product.get", "product", strconv.FormatInt(id, 10))
	}
	copied := *product
	if product.ExtraData != nil {
		copied.ExtraData = make(map[string]string, len(product.ExtraData))
		for k, v := range product.ExtraData {
			copied.ExtraData[k] = v
		}
	}
	return &copied, nil
}

func (m *memStore) UpdateProduct(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[product.ID]; !ok {
		return domain.NotFound("product.update", "product", strconv.FormatInt(product.ID, 10))
	}
	copied := *product
	m.products[product.ID] = &copied
	return nil
}

func (m *memStore) SoftDeleteProduct(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return domain.NotFound("product.delete", "product", strconv.FormatInt(id, 10))
	}
	product.Status = domain.ProductStatusDeleted
	product.DeletedAt = time.Now()
	return nil
}

func (m *memStore) RestoreProduct(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	product, ok := m.products[id]
	if !ok {
		return domain.NotFound("product.restore", "product", strconv.FormatInt(id, 10))
	}
	product.Status = domain.ProductStatusActive
	product.DeletedAt = time.Time{}
	return nil
}

func (m *memStore) HardDeleteProduct(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return domain.NotFound("product.destroy", "product", strconv.FormatInt(id, 10))
	}
	delete(m.products, id)
	return nil
}

// ---- catalog.Store ----

func (m *memStore) Catalog(ctx context.Context, id int64) (*domain.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cat, ok := m.catalogs[id]
	if !ok {
		return nil, domain.NotFound("catalog.get", "catalog", strconv.FormatInt(id, 10))
	}
	copied := *cat
	return &copied, nil
}

func (m *memStore) CatalogItemByCode(ctx context.Context, catalogID int64, code string) (*domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items[catalogID] {
		if item.Code == code {
			copied := item
			return &copied, nil
		}
	}
	return nil, domain.NotFound("catalog.item", "catalog item", code)
}

func (m *memStore) CatalogItems(ctx context.Context, catalogID int64) ([]domain.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CatalogItem(nil), m.items[catalogID]...), nil
}

// ---- test stack ----

// stack bundles a fully wired service set over the in-memory store.
type stack struct {
	store      *memStore
	directory  *provision.Mock
	bills      *BillService
	checkout   *CheckoutService
	products   *ProductService
	controller *production.Controller
}

// newStack builds a catalog with a seat item (quantity discounts, 20%
// tax) and a flat 5 per bill shipping zone for France.
func newStack() *stack {
	store := newMemStore()
	store.catalogs[1] = &domain.Catalog{ID: 1, Name: "main"}
	store.items[1] = []domain.CatalogItem{
		{
			ID: 10, CatalogID: 1, Code: "SEAT1", Name: "Course seat",
			TaxCode: "VAT20",
			Tiers: []domain.PriceTier{
				{From: 1, Range: 4, Price: 10},
				{From: 5, Range: 5, Price: 9},
				{From: 10, Range: 0, Price: 8},
			},
			HandlerParams: "handler=generateseats&rolename=student&coursescsv=C1",
			PackSize:      1,
		},
		{
			ID: 11, CatalogID: 1, Code: "BOOK1", Name: "Course book",
			TaxCode:       "VAT20",
			Tiers:         []domain.PriceTier{{From: 1, Range: 0, Price: 15}},
			ShippingValue: 1.5,
		},
	}

	calc, err := tax.NewTable([]tax.Rule{
		{Code: "VAT20", Ratio: 20, Formula: "ttc = ht * (1 + tr / 100)"},
	})
	if err != nil {
		panic(err)
	}
	quoter, err := shipping.NewResolver([]shipping.Zone{
		{Code: "01", Pattern: "FR", BillScopeAmount: 5, TaxCode: "VAT20"},
	}, nil, calc)
	if err != nil {
		panic(err)
	}

	resolver := catalog.NewResolver(store)
	directory := provision.NewMock()
	registry := production.NewRegistry()
	registry.Register(production.NewSeatsHandler(directory))
	registry.Register(production.NewRoleHandler(directory))

	logger := zerolog.Nop()
	publisher := events.NewNoop()
	controller := production.NewController(registry, resolver, store, publisher, logger)
	bills := NewBillService(store, resolver, calc, quoter, pricing.Discount{Threshold: 500, Rate: 10}, publisher, locks.NewKeyed(), logger)
	checkout := NewCheckoutService(store, bills, resolver, controller, publisher, logger)
	products := NewProductService(store, controller, publisher, logger)

	return &stack{
		store:      store,
		directory:  directory,
		bills:      bills,
		checkout:   checkout,
		products:   products,
		controller: controller,
	}
}

func validCheckout() *CheckoutRequest {
	return &CheckoutRequest{
		CatalogID: 1,
		Gateway:   "paypal",
		Currency:  "EUR",
		Email:     "alice@example.org",
		FirstName: "Alice",
		LastName:  "Doe",
		Country:   "FR",
		Zip:       "75001",
		Lines: []CheckoutLine{
			{ItemCode: "SEAT1", Quantity: 2},
		},
	}
}
