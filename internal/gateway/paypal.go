package gateway

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/verzog/merchant/internal/domain"
)

// PayPal IPN endpoints. The adapter posts every notification back to
// PayPal for verification before trusting a single field of it.
const (
	PaypalLiveVerifyURL    = "https://ipnpb.paypal.com/cgi-bin/webscr"
	PaypalSandboxVerifyURL = "https://ipnpb.sandbox.paypal.com/cgi-bin/webscr"

	PaypalLivePayURL    = "https://www.paypal.com/cgi-bin/webscr"
	PaypalSandboxPayURL = "https://www.sandbox.paypal.com/cgi-bin/webscr"
)

// PaypalConfig configures the IPN adapter.
type PaypalConfig struct {
	// Seller is the merchant account email. Notifications addressed to
	// any other receiver are rejected.
	Seller string
	// VerifyURL is the echo back endpoint. Defaults to the live one;
	// tests and sandbox deployments point it elsewhere.
	VerifyURL string
	// PayURL is the checkout form target. Defaults to the live one.
	PayURL string
	// BaseURL is our own public address, used for the return, cancel
	// and notify URLs handed to PayPal.
	BaseURL string
	// Client performs the verification round trip.
	Client *http.Client
}

// Paypal handles PayPal Instant Payment Notifications. The invoice
// field carries our bill transaction token.
type Paypal struct {
	processor *Processor
	seller    string
	verifyURL string
	payURL    string
	baseURL   string
	client    *http.Client
	logger    zerolog.Logger
}

func NewPaypal(processor *Processor, cfg PaypalConfig, logger zerolog.Logger) *Paypal {
	verifyURL := cfg.VerifyURL
	if verifyURL == "" {
		verifyURL = PaypalLiveVerifyURL
	}
	payURL := cfg.PayURL
	if payURL == "" {
		payURL = PaypalLivePayURL
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Paypal{
		processor: processor,
		seller:    cfg.Seller,
		verifyURL: verifyURL,
		payURL:    payURL,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		client:    client,
		logger:    logger.With().Str("component", "paypal").Logger(),
	}
}

func (p *Paypal) Name() string { return "paypal" }

// BuildPaymentRequest assembles the classic PayPal checkout form. The
// invoice field carries our transaction token so the IPN can find the
// bill again.
func (p *Paypal) BuildPaymentRequest(ctx context.Context, bill *domain.Bill) (*PaymentRequest, error) {
	if bill.Status != domain.BillStatusPlaced {
		return nil, domain.Errorf(domain.ECONFLICT, "paypal.pay",
			"bill %s is %s, only placed bills can be paid", bill.TransactionID, bill.Status)
	}

	fields := url.Values{}
	fields.Set("cmd", "_xclick")
	fields.Set("business", p.seller)
	fields.Set("invoice", bill.TransactionID)
	fields.Set("item_name", "Order "+bill.TransactionID)
	fields.Set("amount", strconv.FormatFloat(bill.Amount, 'f', 2, 64))
	fields.Set("currency_code", bill.Currency)
	fields.Set("no_shipping", "1")
	fields.Set("return", p.baseURL+"/pay/return?transaction_id="+url.QueryEscape(bill.TransactionID))
	fields.Set("cancel_return", p.baseURL+"/pay/cancel?transaction_id="+url.QueryEscape(bill.TransactionID))
	fields.Set("notify_url", p.baseURL+"/webhooks/paypal")

	return &PaymentRequest{URL: p.payURL, Method: http.MethodPost, Fields: fields}, nil
}

// HandleReturn walks the bill to PENDING when the customer comes back
// from PayPal before the IPN arrives.
func (p *Paypal) HandleReturn(ctx context.Context, transID string) (*domain.Bill, error) {
	return p.processor.Return(ctx, transID)
}

// HandleNotification processes one IPN post. The notification is
// recorded before verification so a redelivery is recognized even when
// the first attempt died mid flight.
func (p *Paypal) HandleNotification(ctx context.Context, r *http.Request) (*Outcome, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}

	txnID := values.Get("txn_id")
	transID := values.Get("invoice")
	if txnID == "" || transID == "" {
		p.logger.Warn().Msg("notification missing txn_id or invoice")
		n, _, err := p.processor.Intake(ctx, p.Name(), "malformed-"+time.Now().UTC().Format(time.RFC3339Nano), transID, string(body))
		if err != nil {
			return nil, err
		}
		return p.processor.Reject(ctx, n, "malformed"), nil
	}

	n, duplicate, err := p.processor.Intake(ctx, p.Name(), txnID, transID, string(body))
	if err != nil {
		return nil, err
	}
	if duplicate {
		return &Outcome{Notification: n, Duplicate: true}, nil
	}

	verified, err := p.verify(ctx, string(body))
	if err != nil {
		// Leave the row RECEIVED and answer non-2xx so PayPal
		// redelivers. Intake hands a RECEIVED row back to this path, so
		// the retry runs verification again instead of dead-ending as a
		// duplicate.
		return nil, err
	}
	if !verified {
		return p.processor.Reject(ctx, n, "not_verified"), nil
	}

	receiver := values.Get("business")
	if receiver == "" {
		receiver = values.Get("receiver_email")
	}
	if !strings.EqualFold(receiver, p.seller) {
		return p.processor.Reject(ctx, n, "wrong_receiver"), nil
	}

	status := values.Get("payment_status")
	switch status {
	case "Completed", "Pending":
		payment, err := p.payment(values, txnID, transID, status == "Completed")
		if err != nil {
			return p.processor.Reject(ctx, n, "bad_amount"), nil
		}
		return p.processor.Apply(ctx, n, payment)
	case "Denied", "Failed", "Expired":
		return p.processor.FailPayment(ctx, n, transID, "payment "+strings.ToLower(status))
	default:
		// Refunds, reversals and the rest are recorded for the books
		// but do not drive the bill lifecycle.
		return p.processor.Ignore(ctx, n, "payment_status "+status), nil
	}
}

func (p *Paypal) payment(values url.Values, txnID, transID string, settled bool) (*Payment, error) {
	gross, err := strconv.ParseFloat(values.Get("mc_gross"), 64)
	if err != nil {
		return nil, err
	}
	fee := 0.0
	if raw := values.Get("mc_fee"); raw != "" {
		if fee, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, err
		}
	}
	return &Payment{
		TransactionID: transID,
		ExternalID:    txnID,
		Amount:        gross,
		Fee:           fee,
		Currency:      values.Get("mc_currency"),
		Settled:       settled,
	}, nil
}

// verify echoes the notification back to PayPal with the
// _notify-validate command. Only the literal VERIFIED response marks
// the notification genuine.
func (p *Paypal) verify(ctx context.Context, body string) (bool, error) {
	payload := "cmd=_notify-validate&" + body
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.verifyURL, strings.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	// Only a 200 carries a verdict. Anything else is an outage on
	// PayPal's side and must surface as an error, not as INVALID.
	if resp.StatusCode != http.StatusOK {
		return false, domain.Errorf(domain.EINTERNAL, "paypal.verify",
			"verification endpoint answered %d", resp.StatusCode)
	}

	verdict, err := io.ReadAll(io.LimitReader(resp.Body, 32))
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(verdict)) == "VERIFIED", nil
}
