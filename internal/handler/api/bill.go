package api

import (
	"net/http"

	"github.com/verzog/merchant/internal/handler"
)

// GetBill returns a bill by its transaction token.
//
//	GET /api/bills/{token}
func (h *Handler) GetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.bills.GetByTransactionID(r.Context(), r.PathValue("token"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, billResponse(bill))
}

// CancelBill voids a bill. The administrative flag widens the set of
// cancellable statuses to any non-terminal one.
//
//	POST /api/bills/{token}/cancel
func (h *Handler) CancelBill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Administrative bool `json:"administrative"`
	}
	if r.ContentLength > 0 {
		if err := decode(r, &req); err != nil {
			handler.BadRequest(w, r, "malformed request body")
			return
		}
	}

	bill, err := h.bills.GetByTransactionID(r.Context(), r.PathValue("token"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	cancelled, err := h.bills.Cancel(r.Context(), bill.ID, req.Administrative)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, billResponse(cancelled))
}

// RecalculateBill reprices a bill against the current catalog. Frozen
// bills refuse with a conflict.
//
//	POST /api/bills/{token}/recalculate
func (h *Handler) RecalculateBill(w http.ResponseWriter, r *http.Request) {
	bill, err := h.bills.GetByTransactionID(r.Context(), r.PathValue("token"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	updated, err := h.bills.Recalculate(r.Context(), bill.ID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, billResponse(updated))
}

// FreezeBill stamps the accounting number onto a bill, freezing its
// pricing fields.
//
//	POST /api/bills/{token}/idnumber
func (h *Handler) FreezeBill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDNumber string `json:"id_number"`
	}
	if err := decode(r, &req); err != nil {
		handler.BadRequest(w, r, "malformed request body")
		return
	}
	if req.IDNumber == "" {
		handler.BadRequest(w, r, "id_number is required")
		return
	}

	bill, err := h.bills.GetByTransactionID(r.Context(), r.PathValue("token"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	if err := h.bills.AssignIDNumber(r.Context(), bill.ID, req.IDNumber); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	frozen, err := h.bills.Get(r.Context(), bill.ID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, billResponse(frozen))
}

// PaymentRequest returns the provider redirect for a placed bill.
//
//	GET /api/bills/{token}/payment-request
func (h *Handler) PaymentRequest(w http.ResponseWriter, r *http.Request) {
	bill, err := h.bills.GetByTransactionID(r.Context(), r.PathValue("token"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	adapter, err := h.gateways.Get(bill.Gateway)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	req, err := adapter.BuildPaymentRequest(r.Context(), bill)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, req)
}

// PayReturn is where the gateway sends the customer after an
// interactive payment. The bill moves to PENDING until the gateway
// notification confirms the funds; when the notification already
// arrived, the return trip changes nothing.
//
//	GET /pay/return?transaction_id=...
func (h *Handler) PayReturn(w http.ResponseWriter, r *http.Request) {
	transID := r.URL.Query().Get("transaction_id")
	if transID == "" {
		handler.BadRequest(w, r, "transaction_id is required")
		return
	}

	bill, err := h.bills.GetByTransactionID(r.Context(), transID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	adapter, err := h.gateways.Get(bill.Gateway)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	returned, err := adapter.HandleReturn(r.Context(), transID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, billResponse(returned))
}

// PayCancel is where the gateway sends the customer after they back
// out of payment.
//
//	GET /pay/cancel?transaction_id=...
func (h *Handler) PayCancel(w http.ResponseWriter, r *http.Request) {
	transID := r.URL.Query().Get("transaction_id")
	if transID == "" {
		handler.BadRequest(w, r, "transaction_id is required")
		return
	}

	bill, err := h.bills.GetByTransactionID(r.Context(), transID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	cancelled, err := h.bills.Cancel(r.Context(), bill.ID, false)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, billResponse(cancelled))
}
