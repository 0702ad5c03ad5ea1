package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verzog/merchant/internal/catalog"
	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/events"
	"github.com/verzog/merchant/internal/production"
	"github.com/verzog/merchant/internal/telemetry"
)

// CheckoutStore extends the bill store with the customer lookups
// checkout needs.
type CheckoutStore interface {
	BillStore
	CustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error)
}

// CheckoutRequest is the validated billing form.
type CheckoutRequest struct {
	CatalogID int64  `validate:"required"`
	Gateway   string `validate:"required"`
	Currency  string `validate:"required,iso4217"`

	Email     string `validate:"required,email"`
	FirstName string `validate:"required"`
	LastName  string `validate:"required"`

	Country string `validate:"required,iso3166_1_alpha2"`
	Zip     string `validate:"required"`
	City    string
	Address string

	// LoggedIn marks an authenticated purchaser, for item eligibility.
	LoggedIn bool

	Lines []CheckoutLine `validate:"required,min=1,dive"`
}

// CheckoutLine is one ordered item in the form.
type CheckoutLine struct {
	ItemCode     string `validate:"required"`
	Quantity     int    `validate:"required,gt=0"`
	CustomerData map[string]string
}

// CheckoutResult is a placed bill with the prepay handler feedback.
type CheckoutResult struct {
	Bill     *domain.Bill
	Feedback []production.ItemFeedback
}

// CheckoutService turns billing forms into placed bills.
type CheckoutService struct {
	store      CheckoutStore
	bills      *BillService
	catalog    *catalog.Resolver
	production *production.Controller
	validate   *validator.Validate
	events     events.Publisher
	logger     zerolog.Logger
}

// NewCheckoutService wires the checkout flow.
func NewCheckoutService(store CheckoutStore, bills *BillService, resolver *catalog.Resolver, controller *production.Controller, publisher events.Publisher, logger zerolog.Logger) *CheckoutService {
	return &CheckoutService{
		store:      store,
		bills:      bills,
		catalog:    resolver,
		production: controller,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		events:     publisher,
		logger:     logger.With().Str("component", "checkout").Logger(),
	}
}

// Place validates the form, prices the order and places the bill.
// The returned bill is in PLACED status, priced and persisted, with a
// fresh transaction token for the gateway round trip.
func (s *CheckoutService) Place(ctx context.Context, req *CheckoutRequest) (*CheckoutResult, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, s.fieldErrors(err)
	}
	if telemetry.Business != nil {
		telemetry.Business.CheckoutStarted.WithLabelValues(req.Gateway).Inc()
	}

	if err := s.checkEligibility(ctx, req); err != nil {
		return nil, err
	}

	customer, err := s.findOrCreateCustomer(ctx, req)
	if err != nil {
		return nil, err
	}

	bill := &domain.Bill{
		CustomerID:    customer.ID,
		CatalogID:     req.CatalogID,
		TransactionID: NewTransactionID(),
		Status:        domain.BillStatusWorking,
		Gateway:       req.Gateway,
		Currency:      req.Currency,
		Country:       strings.ToUpper(req.Country),
		Zip:           req.Zip,
	}
	for _, line := range req.Lines {
		bill.Items = append(bill.Items, domain.BillItem{
			Type:         domain.BillItemProduct,
			ItemCode:     line.ItemCode,
			Quantity:     line.Quantity,
			CustomerData: line.CustomerData,
		})
	}

	if err := s.bills.price(ctx, bill); err != nil {
		return nil, err
	}

	created, err := s.store.CreateBill(ctx, bill)
	if err != nil {
		return nil, err
	}
	placed, err := s.bills.Transition(ctx, created.ID, domain.BillStatusPlaced)
	if err != nil {
		return nil, err
	}

	feedback, err := s.production.RunPrepay(ctx, placed)
	if err != nil {
		// Prepay feedback is advisory; a failure must not lose the
		// placed bill.
		s.logger.Warn().Err(err).Int64("bill_id", placed.ID).Msg("prepay feedback failed")
	}

	if telemetry.Business != nil {
		telemetry.Business.CheckoutCompleted.WithLabelValues(req.Gateway).Inc()
		telemetry.Business.BillValue.WithLabelValues(placed.Currency).Observe(placed.Amount)
	}
	_ = s.events.Publish(events.SubjectBillPlaced, events.BillStatusEvent{
		BillID:        placed.ID,
		TransactionID: placed.TransactionID,
		To:            string(domain.BillStatusPlaced),
		Gateway:       placed.Gateway,
		Amount:        placed.Amount,
		OccurredAt:    time.Now().UTC(),
	})

	return &CheckoutResult{Bill: placed, Feedback: feedback}, nil
}

// checkEligibility enforces per-item audience constraints.
func (s *CheckoutService) checkEligibility(ctx context.Context, req *CheckoutRequest) error {
	for _, line := range req.Lines {
		ci, err := s.catalog.Item(ctx, req.CatalogID, line.ItemCode)
		if err != nil {
			return err
		}
		switch ci.Eligibility {
		case domain.EligibleLoggedIn:
			if !req.LoggedIn {
				return domain.WrapError(ErrNotEligible, domain.EFORBIDDEN, "checkout.place",
					"item "+line.ItemCode+" requires an authenticated purchaser")
			}
		case domain.EligibleGuest:
			if req.LoggedIn {
				return domain.WrapError(ErrNotEligible, domain.EFORBIDDEN, "checkout.place",
					"item "+line.ItemCode+" is only sold to guests")
			}
		}
	}
	return nil
}

func (s *CheckoutService) findOrCreateCustomer(ctx context.Context, req *CheckoutRequest) (*domain.Customer, error) {
	customer, err := s.store.CustomerByEmail(ctx, req.Email)
	if err == nil {
		return customer, nil
	}
	if !domain.IsCode(err, domain.ENOTFOUND) {
		return nil, err
	}
	return s.store.CreateCustomer(ctx, &domain.Customer{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Country:   strings.ToUpper(req.Country),
		Zip:       req.Zip,
		City:      req.City,
		Address:   req.Address,
	})
}

// fieldErrors converts validator output into the domain's field error
// shape so handlers render it uniformly.
func (s *CheckoutService) fieldErrors(err error) error {
	var verrs validator.ValidationErrors
	out := &domain.ValidationError{Op: "checkout.place", Fields: make(map[string]string)}
	if !errors.As(err, &verrs) {
		return domain.WrapError(err, domain.EINVALID, "checkout.place", "invalid checkout form")
	}
	for _, fe := range verrs {
		out.Fields[fe.Field()] = "failed " + fe.Tag() + " validation"
	}
	return out
}

// NewTransactionID mints the unique uppercase token that identifies a
// bill to payment gateways.
func NewTransactionID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}
