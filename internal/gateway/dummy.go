package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verzog/merchant/internal/domain"
)

// Dummy is a development gateway that settles any posted payment
// immediately. It must never be registered in production.
type Dummy struct {
	processor *Processor
	logger    zerolog.Logger
}

func NewDummy(processor *Processor, logger zerolog.Logger) *Dummy {
	return &Dummy{
		processor: processor,
		logger:    logger.With().Str("component", "dummy-gateway").Logger(),
	}
}

func (d *Dummy) Name() string { return "dummy" }

// BuildPaymentRequest points the customer straight back at our own
// webhook endpoint so a form submit settles the bill.
func (d *Dummy) BuildPaymentRequest(ctx context.Context, bill *domain.Bill) (*PaymentRequest, error) {
	fields := url.Values{}
	fields.Set("transaction_id", bill.TransactionID)
	fields.Set("amount", strconv.FormatFloat(bill.Amount, 'f', 2, 64))
	fields.Set("currency", bill.Currency)
	return &PaymentRequest{URL: "/webhooks/dummy", Method: http.MethodPost, Fields: fields}, nil
}

func (d *Dummy) HandleReturn(ctx context.Context, transID string) (*domain.Bill, error) {
	return d.processor.Return(ctx, transID)
}

// HandleNotification accepts a form post with transaction_id, amount
// and currency and applies it as a settled payment.
func (d *Dummy) HandleNotification(ctx context.Context, r *http.Request) (*Outcome, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	transID := r.PostForm.Get("transaction_id")
	amount, err := strconv.ParseFloat(r.PostForm.Get("amount"), 64)

	externalID := r.PostForm.Get("reference")
	if externalID == "" {
		externalID = "DUMMY-" + strings.ToUpper(uuid.NewString()[:8])
	}
	n, duplicate, intakeErr := d.processor.Intake(ctx, d.Name(), externalID, transID, r.PostForm.Encode())
	if intakeErr != nil {
		return nil, intakeErr
	}
	if duplicate {
		return &Outcome{Notification: n, Duplicate: true}, nil
	}
	if transID == "" || err != nil {
		return d.processor.Reject(ctx, n, "malformed"), nil
	}

	d.logger.Info().Str("transaction_id", transID).Msg("dummy payment accepted")
	return d.processor.Apply(ctx, n, &Payment{
		TransactionID: transID,
		ExternalID:    externalID,
		Amount:        amount,
		Currency:      r.PostForm.Get("currency"),
		Settled:       true,
	})
}
