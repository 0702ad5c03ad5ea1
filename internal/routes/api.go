package routes

import (
	"github.com/verzog/merchant/internal/router"
)

// RegisterAPIRoutes registers the merchant API routes. These are called
// by the host application (the LMS front end) and by payment return
// trips, not by end users directly.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	h := deps.Handler

	// Checkout and bill lifecycle
	r.Post("/api/checkout", h.Checkout)
	r.Get("/api/bills/{token}", h.GetBill)
	r.Post("/api/bills/{token}/cancel", h.CancelBill)
	r.Post("/api/bills/{token}/recalculate", h.RecalculateBill)
	r.Post("/api/bills/{token}/freeze", h.FreezeBill)
	r.Get("/api/bills/{token}/payment-request", h.PaymentRequest)

	// Gateway return trips. The browser lands here after paying; the
	// authoritative state change comes from the webhook.
	r.Get("/pay/return", h.PayReturn)
	r.Get("/pay/cancel", h.PayCancel)

	// Product administration
	r.Post("/api/products/{id}/assign", h.AssignSeat)
	r.Post("/api/products/{id}/release", h.ReleaseSeat)
	r.Delete("/api/products/{id}", h.DeleteProduct)
	r.Post("/api/products/{id}/restore", h.RestoreProduct)
	r.Delete("/api/products/{id}/destroy", h.DestroyProduct)

	// Catalog checks
	r.Get("/api/catalogs/{id}/validate", h.ValidateCatalog)
}
