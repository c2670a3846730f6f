package catalog

import (
	"net/http"

	"github.com/palengke-dev/farmgate-api/internal/common"
)

// Handler exposes the public ranked listing endpoint.
type Handler struct {
	Svc *Service
}

// Products handles GET /api/v1/products. Optional lat/lng query params
// carry the buyer location for proximity ranking.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	params, err := h.Svc.ParseListParams(r.URL.Query())
	if err != nil {
		common.RenderError(w, err)
		return
	}
	items, err := h.Svc.ListProducts(r.Context(), params)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}
