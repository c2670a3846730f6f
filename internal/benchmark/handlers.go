package benchmark

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/palengke-dev/farmgate-api/internal/common"
	"github.com/palengke-dev/farmgate-api/internal/events"
	"github.com/palengke-dev/farmgate-api/internal/obs"
)

// Handler exposes the price reference endpoints.
type Handler struct {
	Svc      *Service
	Bus      *events.Bus
	Validate *validator.Validate
}

// Benchmark handles GET /api/v1/prices/benchmark?category=&quality=.
func (h *Handler) Benchmark(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if strings.TrimSpace(category) == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "category is required", nil)
		return
	}
	quality := Quality(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("quality"))))
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Svc.Benchmark(category, quality)})
}

type validatePayload struct {
	Price     float64 `json:"price" validate:"gte=0"`
	Category  string  `json:"category" validate:"required"`
	ProductID string  `json:"productId"`
}

// ValidatePrice handles POST /api/v1/prices/validate. The check is
// advisory; out-of-band prices are flagged and recorded, never rejected.
func (h *Handler) ValidatePrice(w http.ResponseWriter, r *http.Request) {
	var payload validatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return
		}
	}

	result := h.Svc.ValidatePrice(r.Context(), payload.Price, payload.Category)
	if !result.IsValid {
		if obs.PriceFlaggedTotal != nil {
			obs.PriceFlaggedTotal.WithLabelValues(strings.ToLower(strings.TrimSpace(payload.Category))).Inc()
		}
		if h.Bus != nil && payload.ProductID != "" {
			if _, err := h.Bus.Emit(r.Context(), events.TopicPriceFlagged, payload.ProductID, map[string]any{
				"price":      payload.Price,
				"category":   payload.Category,
				"suggestion": result.Suggestion,
				"reason":     result.Reason,
			}); err != nil {
				h.Svc.Logger.Warn().Err(err).Msg("price.flagged emit failed")
			}
		}
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}
