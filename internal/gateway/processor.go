package gateway

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/telemetry"
)

// amountTolerance absorbs rounding differences between our totals and
// the amount echoed back by a provider.
const amountTolerance = 0.005

// Payment is the provider independent summary of a verified callback.
type Payment struct {
	// TransactionID is our token, echoed back by the provider.
	TransactionID string
	// ExternalID is the provider's own transaction identifier.
	ExternalID string
	Amount     float64
	Fee        float64
	Currency   string
	// Settled is false while the provider still holds the funds, as
	// with a PayPal eCheck.
	Settled bool
}

// Processor applies verified payments to bills. It owns redelivery
// detection, amount checks, the status walk and synchronous
// production.
type Processor struct {
	bills    Bills
	producer Producer
	store    Store
	logger   zerolog.Logger
}

func NewProcessor(bills Bills, producer Producer, store Store, logger zerolog.Logger) *Processor {
	return &Processor{
		bills:    bills,
		producer: producer,
		store:    store,
		logger:   logger.With().Str("component", "gateway").Logger(),
	}
}

// Intake records a notification before any verification work. The
// returned bool is true when the same (gateway, external id) pair
// already carries a verdict, in which case the caller must acknowledge
// and stop. A redelivery whose stored row is still RECEIVED means the
// previous attempt died before verification finished, so the caller
// gets the stored row back and runs the full pipeline again.
func (p *Processor) Intake(ctx context.Context, gateway, externalID, transID, payload string) (*domain.Notification, bool, error) {
	if telemetry.Business != nil {
		telemetry.Business.NotificationsReceived.WithLabelValues(gateway).Inc()
	}
	n := &domain.Notification{
		Gateway:       gateway,
		ExternalID:    externalID,
		TransactionID: transID,
		Status:        domain.NotificationReceived,
		RawPayload:    payload,
		ReceivedAt:    time.Now().UTC(),
	}
	err := p.store.CreateNotification(ctx, n)
	if err == nil {
		return n, false, nil
	}
	if !domain.IsCode(err, domain.ECONFLICT) {
		return nil, false, err
	}

	stored, err := p.store.Notification(ctx, gateway, externalID)
	if err != nil {
		return nil, false, err
	}
	if stored.Status == domain.NotificationReceived {
		p.logger.Warn().
			Str("gateway", gateway).
			Str("external_id", externalID).
			Msg("redelivery of a notification without a verdict, reprocessing")
		return stored, false, nil
	}

	p.logger.Info().
		Str("gateway", gateway).
		Str("external_id", externalID).
		Str("verdict", string(stored.Status)).
		Msg("notification redelivered")
	if telemetry.Business != nil {
		telemetry.Business.NotificationsDuplicate.WithLabelValues(gateway).Inc()
	}
	return stored, true, nil
}

// Reject marks a notification as failed verification. The caller still
// acknowledges the provider so it stops retrying.
func (p *Processor) Reject(ctx context.Context, n *domain.Notification, reason string) *Outcome {
	n.Status = domain.NotificationRejected
	n.Detail = reason
	if err := p.store.UpdateNotification(ctx, n); err != nil {
		p.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("update notification")
	}
	p.logger.Warn().
		Str("gateway", n.Gateway).
		Str("external_id", n.ExternalID).
		Str("reason", reason).
		Msg("notification rejected")
	if telemetry.Business != nil {
		telemetry.Business.NotificationsRejected.WithLabelValues(n.Gateway, reason).Inc()
	}
	return &Outcome{Notification: n}
}

// Ignore marks a genuine notification that carries a status we take no
// action on, such as a refund initiated notice.
func (p *Processor) Ignore(ctx context.Context, n *domain.Notification, detail string) *Outcome {
	n.Status = domain.NotificationIgnored
	n.Detail = detail
	if err := p.store.UpdateNotification(ctx, n); err != nil {
		p.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("update notification")
	}
	return &Outcome{Notification: n}
}

// Apply moves the referenced bill through the payment statuses under
// its key lock. An unsettled payment parks the bill in PENDING; a
// settled one records the funds, marks the bill sold out, runs
// production and completes the bill when every line delivered.
//
// A bill that already carries this provider transaction is a
// redelivery that slipped past intake dedup; it is acknowledged
// without changes.
func (p *Processor) Apply(ctx context.Context, n *domain.Notification, payment *Payment) (*Outcome, error) {
	start := time.Now()
	bill, err := p.bills.GetByTransactionID(ctx, payment.TransactionID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return p.Reject(ctx, n, "unknown_transaction"), nil
		}
		return nil, err
	}
	n.BillID = bill.ID

	var outcome *Outcome
	err = p.bills.WithLock(ctx, bill.ID, func() error {
		var applyErr error
		outcome, applyErr = p.applyLocked(ctx, n, payment, bill.ID)
		return applyErr
	})
	if err != nil {
		return nil, err
	}
	if telemetry.Business != nil {
		telemetry.Business.NotificationLatency.WithLabelValues(n.Gateway).Observe(time.Since(start).Seconds())
	}
	return outcome, nil
}

func (p *Processor) applyLocked(ctx context.Context, n *domain.Notification, payment *Payment, billID int64) (*Outcome, error) {
	// Reload under the lock, the status may have moved.
	bill, err := p.bills.GetByTransactionID(ctx, payment.TransactionID)
	if err != nil {
		return nil, err
	}

	if bill.OnlineTransactionID == payment.ExternalID && bill.PaidAmount > 0 {
		n.Status = domain.NotificationProcessed
		n.Detail = "already applied"
		if err := p.store.UpdateNotification(ctx, n); err != nil {
			return nil, err
		}
		if telemetry.Business != nil {
			telemetry.Business.NotificationsDuplicate.WithLabelValues(n.Gateway).Inc()
		}
		return &Outcome{Notification: n, Bill: bill, Duplicate: true}, nil
	}

	if payment.Currency != bill.Currency {
		return p.Reject(ctx, n, "currency_mismatch"), nil
	}
	if math.Abs(payment.Amount-bill.Amount) > amountTolerance {
		p.logger.Warn().
			Int64("bill_id", bill.ID).
			Float64("expected", bill.Amount).
			Float64("received", payment.Amount).
			Msg("payment amount mismatch")
		if _, err := p.refuse(ctx, bill); err != nil {
			return nil, err
		}
		return p.Reject(ctx, n, "amount_mismatch"), nil
	}

	// The notification can outrun the customer's return trip, in which
	// case the bill is still PLACED and walks through PENDING here.
	if bill.Status == domain.BillStatusPlaced {
		if bill, err = p.bills.TransitionLocked(ctx, bill.ID, domain.BillStatusPending); err != nil {
			return nil, err
		}
	}

	if !payment.Settled {
		n.Status = domain.NotificationProcessed
		n.Detail = "awaiting settlement"
		if err := p.store.UpdateNotification(ctx, n); err != nil {
			return nil, err
		}
		return &Outcome{Notification: n, Bill: bill}, nil
	}

	if bill.Status != domain.BillStatusPending {
		return p.Reject(ctx, n, "bill_not_payable"), nil
	}

	if err := p.bills.RecordPayment(ctx, bill.ID, payment.Amount, payment.Fee, payment.ExternalID); err != nil {
		return nil, err
	}
	if bill, err = p.bills.TransitionLocked(ctx, bill.ID, domain.BillStatusSoldOut); err != nil {
		return nil, err
	}

	result, err := p.producer.RunPostpay(ctx, bill)
	if err != nil {
		// Paid but undelivered. The bill stays SOLDOUT and the sweep
		// worker retries production later.
		p.logger.Error().Err(err).Int64("bill_id", bill.ID).Msg("production failed after payment")
	} else if result.Complete() {
		if bill, err = p.bills.TransitionLocked(ctx, bill.ID, domain.BillStatusComplete); err != nil {
			return nil, err
		}
	}

	n.Status = domain.NotificationProcessed
	if err := p.store.UpdateNotification(ctx, n); err != nil {
		return nil, err
	}
	p.logger.Info().
		Int64("bill_id", bill.ID).
		Str("gateway", n.Gateway).
		Str("external_id", payment.ExternalID).
		Float64("amount", payment.Amount).
		Msg("payment applied")
	return &Outcome{Notification: n, Bill: bill}, nil
}

// Return handles the customer's interactive return trip for any
// gateway. The bill walks PLACED to PENDING; when a notification beat
// the customer home the bill is already further along and nothing
// changes. Safe to call any number of times.
func (p *Processor) Return(ctx context.Context, transID string) (*domain.Bill, error) {
	bill, err := p.bills.GetByTransactionID(ctx, transID)
	if err != nil {
		return nil, err
	}
	err = p.bills.WithLock(ctx, bill.ID, func() error {
		bill, err = p.bills.GetByTransactionID(ctx, transID)
		if err != nil {
			return err
		}
		if bill.Status != domain.BillStatusPlaced {
			return nil
		}
		bill, err = p.bills.TransitionLocked(ctx, bill.ID, domain.BillStatusPending)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bill, nil
}

// FailPayment records a definitive gateway failure such as a denied
// or expired payment and moves the bill to FAILED.
func (p *Processor) FailPayment(ctx context.Context, n *domain.Notification, transID, detail string) (*Outcome, error) {
	bill, err := p.bills.GetByTransactionID(ctx, transID)
	if err != nil {
		if domain.IsCode(err, domain.ENOTFOUND) {
			return p.Reject(ctx, n, "unknown_transaction"), nil
		}
		return nil, err
	}
	n.BillID = bill.ID

	err = p.bills.WithLock(ctx, bill.ID, func() error {
		bill, err = p.bills.GetByTransactionID(ctx, transID)
		if err != nil {
			return err
		}
		if bill.Status == domain.BillStatusPlaced {
			if bill, err = p.bills.TransitionLocked(ctx, bill.ID, domain.BillStatusPending); err != nil {
				return err
			}
		}
		if bill.Status != domain.BillStatusPending {
			return nil
		}
		bill, err = p.bills.TransitionLocked(ctx, bill.ID, domain.BillStatusFailed)
		return err
	})
	if err != nil {
		return nil, err
	}

	n.Status = domain.NotificationProcessed
	n.Detail = detail
	if err := p.store.UpdateNotification(ctx, n); err != nil {
		return nil, err
	}
	return &Outcome{Notification: n, Bill: bill}, nil
}

func (p *Processor) refuse(ctx context.Context, bill *domain.Bill) (*domain.Bill, error) {
	if bill.Status == domain.BillStatusPlaced {
		var err error
		if bill, err = p.bills.TransitionLocked(ctx, bill.ID, domain.BillStatusPending); err != nil {
			return nil, err
		}
	}
	if bill.Status != domain.BillStatusPending {
		return bill, nil
	}
	return p.bills.TransitionLocked(ctx, bill.ID, domain.BillStatusRefused)
}
