package domain

import "time"

// NotificationStatus tracks a gateway notification through intake.
type NotificationStatus string

const (
	// NotificationReceived is the intake state, recorded before any
	// verification so redeliveries can be detected.
	NotificationReceived NotificationStatus = "RECEIVED"
	// NotificationProcessed means the notification changed a bill.
	NotificationProcessed NotificationStatus = "PROCESSED"
	// NotificationIgnored means the notification was genuine but
	// carried a status we do not act on.
	NotificationIgnored NotificationStatus = "IGNORED"
	// NotificationRejected means verification or consistency checks
	// failed.
	NotificationRejected NotificationStatus = "REJECTED"
)

// Notification is one payment gateway callback. The (Gateway,
// ExternalID) pair is unique: a second insert with the same pair is a
// redelivery.
type Notification struct {
	ID            int64              `json:"id"`
	Gateway       string             `json:"gateway"`
	ExternalID    string             `json:"external_id"`
	TransactionID string             `json:"transaction_id"`
	BillID        int64              `json:"bill_id"`
	Status        NotificationStatus `json:"status"`
	Detail        string             `json:"detail,omitempty"`
	RawPayload    string             `json:"-"`
	ReceivedAt    time.Time          `json:"received_at"`
}
