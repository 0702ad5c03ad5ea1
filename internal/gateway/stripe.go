package gateway

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	stripelib "github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/telemetry"
)

// StripeConfig configures the Stripe webhook adapter.
type StripeConfig struct {
	// SigningSecret is the endpoint secret used to check the
	// Stripe-Signature header.
	SigningSecret string
	// BaseURL is our own public address, used for the success and
	// cancel URLs on created checkout sessions.
	BaseURL string
}

// Stripe handles Checkout Session webhooks. The session's client
// reference id carries our bill transaction token.
type Stripe struct {
	processor *Processor
	secret    string
	baseURL   string
	logger    zerolog.Logger
}

func NewStripe(processor *Processor, cfg StripeConfig, logger zerolog.Logger) *Stripe {
	return &Stripe{
		processor: processor,
		secret:    cfg.SigningSecret,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		logger:    logger.With().Str("component", "stripe").Logger(),
	}
}

func (s *Stripe) Name() string { return "stripe" }

// BuildPaymentRequest creates a Checkout Session and returns its
// hosted payment page URL. The client reference id carries our
// transaction token back on the completion webhook.
func (s *Stripe) BuildPaymentRequest(ctx context.Context, bill *domain.Bill) (*PaymentRequest, error) {
	if bill.Status != domain.BillStatusPlaced {
		return nil, domain.Errorf(domain.ECONFLICT, "stripe.pay",
			"bill %s is %s, only placed bills can be paid", bill.TransactionID, bill.Status)
	}

	params := &stripelib.CheckoutSessionParams{
		Mode:              stripelib.String(string(stripelib.CheckoutSessionModePayment)),
		ClientReferenceID: stripelib.String(bill.TransactionID),
		LineItems: []*stripelib.CheckoutSessionLineItemParams{
			{
				PriceData: &stripelib.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripelib.String(strings.ToLower(bill.Currency)),
					UnitAmount: stripelib.Int64(int64(math.Round(bill.Amount * 100))),
					ProductData: &stripelib.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripelib.String("Order " + bill.TransactionID),
					},
				},
				Quantity: stripelib.Int64(1),
			},
		},
		SuccessURL: stripelib.String(s.baseURL + "/pay/return?transaction_id=" + url.QueryEscape(bill.TransactionID)),
		CancelURL:  stripelib.String(s.baseURL + "/pay/cancel?transaction_id=" + url.QueryEscape(bill.TransactionID)),
	}
	params.Context = ctx

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, domain.WrapError(err, domain.EPAYMENT, "stripe.pay", "failed to create checkout session")
	}
	return &PaymentRequest{URL: sess.URL, Method: http.MethodGet}, nil
}

// HandleReturn walks the bill to PENDING when the customer lands on
// the success URL before the completion webhook arrives.
func (s *Stripe) HandleReturn(ctx context.Context, transID string) (*domain.Bill, error) {
	return s.processor.Return(ctx, transID)
}

func (s *Stripe) HandleNotification(ctx context.Context, r *http.Request) (*Outcome, error) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), s.secret)
	if err != nil {
		// A bad signature never reaches the dedup table; there is
		// nothing trustworthy to record it under.
		s.logger.Warn().Err(err).Msg("webhook signature check failed")
		if telemetry.Business != nil {
			telemetry.Business.NotificationsRejected.WithLabelValues(s.Name(), "bad_signature").Inc()
		}
		return nil, err
	}

	n, duplicate, err := s.processor.Intake(ctx, s.Name(), event.ID, "", string(payload))
	if err != nil {
		return nil, err
	}
	if duplicate {
		return &Outcome{Notification: n, Duplicate: true}, nil
	}

	switch event.Type {
	case "checkout.session.completed":
		var session stripelib.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return s.processor.Reject(ctx, n, "malformed"), nil
		}
		if session.ClientReferenceID == "" {
			return s.processor.Reject(ctx, n, "missing_reference"), nil
		}
		n.TransactionID = session.ClientReferenceID
		return s.processor.Apply(ctx, n, &Payment{
			TransactionID: session.ClientReferenceID,
			ExternalID:    event.ID,
			Amount:        float64(session.AmountTotal) / 100,
			Currency:      strings.ToUpper(string(session.Currency)),
			Settled:       session.PaymentStatus == stripelib.CheckoutSessionPaymentStatusPaid,
		})
	case "checkout.session.expired":
		var session stripelib.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return s.processor.Reject(ctx, n, "malformed"), nil
		}
		if session.ClientReferenceID == "" {
			return s.processor.Reject(ctx, n, "missing_reference"), nil
		}
		n.TransactionID = session.ClientReferenceID
		return s.processor.FailPayment(ctx, n, session.ClientReferenceID, "checkout session expired")
	default:
		return s.processor.Ignore(ctx, n, "event "+string(event.Type)), nil
	}
}
