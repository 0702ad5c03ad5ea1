// Package api exposes the merchant operations as a JSON API. Bills
// are addressed by their transaction token, products by id.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/verzog/merchant/internal/gateway"
	"github.com/verzog/merchant/internal/handler"
	"github.com/verzog/merchant/internal/production"
	"github.com/verzog/merchant/internal/service"
)

type Handler struct {
	checkout   *service.CheckoutService
	bills      *service.BillService
	products   *service.ProductService
	controller *production.Controller
	gateways   *gateway.Registry
	logger     zerolog.Logger
}

func NewHandler(checkout *service.CheckoutService, bills *service.BillService, products *service.ProductService, controller *production.Controller, gateways *gateway.Registry, logger zerolog.Logger) *Handler {
	return &Handler{
		checkout:   checkout,
		bills:      bills,
		products:   products,
		controller: controller,
		gateways:   gateways,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// decode reads a JSON request body into dst.
func decode(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// Checkout places an order from a cart.
//
//	POST /api/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req service.CheckoutRequest
	if err := decode(r, &req); err != nil {
		handler.BadRequest(w, r, "malformed request body")
		return
	}

	result, err := h.checkout.Place(r.Context(), &req)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.JSON(w, http.StatusCreated, checkoutResponse(result))
}
