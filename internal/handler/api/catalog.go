package api

import (
	"net/http"
	"strconv"

	"github.com/verzog/merchant/internal/handler"
)

// ValidateCatalog runs every item's production configuration past its
// handler and reports the findings.
//
//	GET /api/catalogs/{id}/validate
func (h *Handler) ValidateCatalog(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		handler.BadRequest(w, r, "invalid catalog id")
		return
	}

	report, reportErr := h.controller.ValidateCatalog(r.Context(), id)
	if reportErr != nil {
		handler.ErrorResponse(w, r, reportErr)
		return
	}
	handler.JSON(w, http.StatusOK, validationResponse(report))
}
