package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/palengke-dev/farmgate-api/internal/common"
	"github.com/palengke-dev/farmgate-api/internal/geo"
	"github.com/palengke-dev/farmgate-api/internal/pricing"
)

type coordinatePayload struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type linePayload struct {
	ProductID            string             `json:"productId" validate:"required"`
	Name                 string             `json:"name"`
	UnitPrice            float64            `json:"unitPrice" validate:"gte=0"`
	Quantity             int                `json:"quantity" validate:"gte=1"`
	Unit                 string             `json:"unit"`
	MinimumOrderQuantity int                `json:"minimumOrderQuantity" validate:"gte=0"`
	SellerID             string             `json:"sellerId"`
	FarmerLocation       *coordinatePayload `json:"farmerLocation"`
	RequiresColdChain    bool               `json:"requiresColdChain"`
	Category             string             `json:"category"`
	Stock                *int               `json:"stock"`
}

type cartPayload struct {
	Items         []linePayload      `json:"items" validate:"required,min=1,dive"`
	BuyerLocation *coordinatePayload `json:"buyerLocation"`
	ShippingFee   *float64           `json:"shippingFee" validate:"omitempty,gte=0"`
}

func (p cartPayload) lines() []LineItem {
	items := make([]LineItem, 0, len(p.Items))
	for _, l := range p.Items {
		li := LineItem{
			ProductID:            l.ProductID,
			Name:                 l.Name,
			UnitPrice:            l.UnitPrice,
			Quantity:             l.Quantity,
			Unit:                 l.Unit,
			MinimumOrderQuantity: l.MinimumOrderQuantity,
			SellerID:             l.SellerID,
			RequiresColdChain:    l.RequiresColdChain,
			Category:             l.Category,
			Stock:                l.Stock,
		}
		if l.FarmerLocation != nil {
			li.FarmerLocation = &geo.Coordinate{Lat: l.FarmerLocation.Lat, Lng: l.FarmerLocation.Lng}
		}
		items = append(items, NormalizeLine(li))
	}
	return items
}

func (p cartPayload) buyer() *geo.Coordinate {
	if p.BuyerLocation == nil {
		return nil
	}
	return &geo.Coordinate{Lat: p.BuyerLocation.Lat, Lng: p.BuyerLocation.Lng}
}

// Handler exposes cart quoting and validation over HTTP. All three
// endpoints take a cart snapshot in the request body; nothing is stored.
type Handler struct {
	Svc      QuoteService
	Validate *validator.Validate
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (cartPayload, bool) {
	var payload cartPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return payload, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
			return payload, false
		}
	}
	return payload, true
}

// Quote returns delivery options, the smart fee and ETA, and the full
// price breakdown for the submitted cart.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	quote, err := h.Svc.Quote(payload.lines(), payload.buyer())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

// ValidateCart reports every MOQ or stock violation in the cart.
func (h *Handler) ValidateCart(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": ValidateCart(payload.lines())})
}

// Breakdown prices the cart against an explicit shipping fee. When the
// fee is omitted the smart delivery fee for the cart's distance is used.
func (h *Handler) Breakdown(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	if payload.ShippingFee == nil {
		quote, err := h.Svc.Quote(payload.lines(), payload.buyer())
		if err != nil {
			h.writeError(w, err)
			return
		}
		common.JSON(w, http.StatusOK, map[string]any{"data": quote.Breakdown})
		return
	}
	breakdown, err := h.Svc.Breakdown(payload.lines(), *payload.ShippingFee)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": breakdown})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cart has no items", nil)
	case errors.Is(err, pricing.ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.RenderError(w, err)
	}
}
