// Package webhook receives payment gateway callbacks.
//
// Note: webhook routes carry no authentication middleware. Each
// gateway adapter verifies its own notifications (IPN echo back,
// signature check) before anything is trusted.
package webhook

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/verzog/merchant/internal/gateway"
	"github.com/verzog/merchant/internal/handler"
	"github.com/verzog/merchant/internal/middleware"
)

type Handler struct {
	gateways *gateway.Registry
	logger   zerolog.Logger
}

func NewHandler(gateways *gateway.Registry, logger zerolog.Logger) *Handler {
	return &Handler{
		gateways: gateways,
		logger:   logger.With().Str("component", "webhook").Logger(),
	}
}

// HandleNotification dispatches a gateway callback to its adapter.
//
//	POST /webhooks/{gateway}
//
// Rejected and redelivered notifications still answer 200 so the
// provider stops retrying; only infrastructure failures answer 5xx.
func (h *Handler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("gateway")
	adapter, err := h.gateways.Get(name)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	outcome, err := adapter.HandleNotification(r.Context(), r)
	if err != nil {
		middleware.GetLogger(r.Context()).Error().
			Err(err).
			Str("gateway", name).
			Msg("notification processing failed")
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}

	body := map[string]any{"status": "ok"}
	if outcome != nil {
		if outcome.Duplicate {
			body["status"] = "duplicate"
		} else if outcome.Notification != nil {
			body["status"] = string(outcome.Notification.Status)
		}
	}
	handler.JSON(w, http.StatusOK, body)
}
