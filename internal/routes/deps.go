package routes

import (
	"github.com/verzog/merchant/internal/handler/api"
	"github.com/verzog/merchant/internal/handler/webhook"
)

// APIDeps contains dependencies for the merchant API routes.
type APIDeps struct {
	Handler *api.Handler
}

// WebhookDeps contains dependencies for the gateway webhook routes.
type WebhookDeps struct {
	Handler *webhook.Handler
}
