package postgres

import (
	"context"
	"strconv"

	"github.com/verzog/merchant/internal/domain"
)

// CreateNotification records a gateway callback before verification.
// The (gateway, external_id) unique index turns redeliveries into
// conflicts the processor acknowledges as no-ops.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO notifications (gateway, external_id, transaction_id, bill_id, status, detail, raw_payload, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		n.Gateway, n.ExternalID, n.TransactionID, n.BillID, n.Status, n.Detail, n.RawPayload, n.ReceivedAt,
	).Scan(&n.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict("notification.create", "notification already recorded")
		}
		return domain.Internal(err, "notification.create", "failed to insert notification")
	}
	return nil
}

// Notification loads the stored intake row for one delivery.
func (s *Store) Notification(ctx context.Context, gateway, externalID string) (*domain.Notification, error) {
	var n domain.Notification
	err := s.pool.QueryRow(ctx, `
		SELECT id, gateway, external_id, transaction_id, bill_id, status, detail, raw_payload, received_at
		FROM notifications WHERE gateway = $1 AND external_id = $2`,
		gateway, externalID,
	).Scan(&n.ID, &n.Gateway, &n.ExternalID, &n.TransactionID, &n.BillID, &n.Status, &n.Detail, &n.RawPayload, &n.ReceivedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("notification.get", "notification", gateway+"/"+externalID)
		}
		return nil, domain.Internal(err, "notification.get", "failed to load notification")
	}
	return &n, nil
}

// UpdateNotification stores the processing verdict.
func (s *Store) UpdateNotification(ctx context.Context, n *domain.Notification) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE notifications SET transaction_id = $1, bill_id = $2, status = $3, detail = $4
		WHERE gateway = $5 AND external_id = $6`,
		n.TransactionID, n.BillID, n.Status, n.Detail, n.Gateway, n.ExternalID)
	if err != nil {
		return domain.Internal(err, "notification.update", "failed to update notification")
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("notification.update", "notification", n.Gateway+"/"+strconv.FormatInt(n.ID, 10))
	}
	return nil
}
