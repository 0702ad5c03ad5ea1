package routes

import (
	"github.com/verzog/merchant/internal/router"
)

// RegisterWebhookRoutes registers the payment gateway callback routes.
//
// Note: webhook routes do NOT have authentication middleware. Each
// gateway adapter is responsible for verifying the notification
// (PayPal IPN echo back, Stripe signature verification).
func RegisterWebhookRoutes(r *router.Router, deps WebhookDeps) {
	r.Post("/webhooks/{gateway}", deps.Handler.HandleNotification)
}
