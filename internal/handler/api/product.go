package api

import (
	"net/http"
	"strconv"

	"github.com/verzog/merchant/internal/handler"
)

func productID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// AssignSeat binds a delivered instance to an account.
//
//	POST /api/products/{id}/assign
func (h *Handler) AssignSeat(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		handler.BadRequest(w, r, "invalid product id")
		return
	}

	var req struct {
		CatalogID int64 `json:"catalog_id"`
		AccountID int64 `json:"account_id"`
	}
	if err := decode(r, &req); err != nil {
		handler.BadRequest(w, r, "malformed request body")
		return
	}
	if req.AccountID == 0 {
		handler.BadRequest(w, r, "account_id is required")
		return
	}

	product, err := h.products.AssignSeat(r.Context(), req.CatalogID, id, req.AccountID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, productResponse(product))
}

// ReleaseSeat unbinds a delivered instance from its account.
//
//	POST /api/products/{id}/release
func (h *Handler) ReleaseSeat(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		handler.BadRequest(w, r, "invalid product id")
		return
	}

	var req struct {
		CatalogID int64 `json:"catalog_id"`
	}
	if err := decode(r, &req); err != nil {
		handler.BadRequest(w, r, "malformed request body")
		return
	}

	product, err := h.products.ReleaseSeat(r.Context(), req.CatalogID, id)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, productResponse(product))
}

// DeleteProduct soft deletes a delivered instance.
//
//	DELETE /api/products/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		handler.BadRequest(w, r, "invalid product id")
		return
	}

	if err := h.products.SoftDelete(r.Context(), id, actor(r)); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RestoreProduct brings a soft deleted instance back.
//
//	POST /api/products/{id}/restore
func (h *Handler) RestoreProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		handler.BadRequest(w, r, "invalid product id")
		return
	}

	if err := h.products.Restore(r.Context(), id, actor(r)); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DestroyProduct permanently removes a soft deleted instance.
//
//	DELETE /api/products/{id}/destroy
func (h *Handler) DestroyProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(r)
	if !ok {
		handler.BadRequest(w, r, "invalid product id")
		return
	}

	if err := h.products.Destroy(r.Context(), id, actor(r)); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// actor reads the operator id forwarded by the calling system, 0 when
// absent.
func actor(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}
