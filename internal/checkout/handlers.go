package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/palengke-dev/farmgate-api/internal/cart"
	"github.com/palengke-dev/farmgate-api/internal/common"
	"github.com/palengke-dev/farmgate-api/internal/geo"
	"github.com/palengke-dev/farmgate-api/internal/obs"
)

type coordinatePayload struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type linePayload struct {
	ProductID         string             `json:"productId" validate:"required"`
	Name              string             `json:"name"`
	UnitPrice         float64            `json:"unitPrice" validate:"gte=0"`
	Quantity          int                `json:"quantity" validate:"gte=1"`
	Unit              string             `json:"unit"`
	SellerID          string             `json:"sellerId"`
	FarmerLocation    *coordinatePayload `json:"farmerLocation"`
	RequiresColdChain bool               `json:"requiresColdChain"`
	Category          string             `json:"category"`
}

type placePayload struct {
	BuyerID       string             `json:"buyerId" validate:"required"`
	Items         []linePayload      `json:"items" validate:"required,min=1,dive"`
	BuyerLocation *coordinatePayload `json:"buyerLocation"`
	ShippingFee   *float64           `json:"shippingFee" validate:"omitempty,gte=0"`
	PaymentRef    string             `json:"paymentRef"`
}

// Handler exposes order placement over HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Place runs the checkout pipeline for the submitted cart snapshot.
func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	var payload placePayload
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

	req := Request{
		BuyerID:     payload.BuyerID,
		ShippingFee: payload.ShippingFee,
		PaymentRef:  payload.PaymentRef,
	}
	if payload.BuyerLocation != nil {
		req.BuyerLocation = &geo.Coordinate{Lat: payload.BuyerLocation.Lat, Lng: payload.BuyerLocation.Lng}
	}
	for _, l := range payload.Items {
		li := cart.LineItem{
			ProductID:         l.ProductID,
			Name:              l.Name,
			UnitPrice:         l.UnitPrice,
			Quantity:          l.Quantity,
			Unit:              l.Unit,
			SellerID:          l.SellerID,
			RequiresColdChain: l.RequiresColdChain,
			Category:          l.Category,
		}
		if l.FarmerLocation != nil {
			li.FarmerLocation = &geo.Coordinate{Lat: l.FarmerLocation.Lat, Lng: l.FarmerLocation.Lng}
		}
		req.Items = append(req.Items, li)
	}

	result, err := h.Svc.Place(r.Context(), req)
	switch {
	case err == nil:
		placed("ok")
		common.JSON(w, http.StatusCreated, map[string]any{"data": result})
	case errors.Is(err, ErrCartInvalid):
		placed("invalid")
		common.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": map[string]any{"code": "CART_INVALID", "message": "cart failed validation"},
			"data":  map[string]any{"report": result.Report},
		})
	case errors.Is(err, cart.ErrEmptyCart):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cart has no items", nil)
	case errors.Is(err, ErrOrderWriteAfterCapture):
		placed("error")
		common.JSONError(w, http.StatusInternalServerError, "ORDER_WRITE_FAILED",
			"payment captured but order could not be saved, support has been notified", nil)
	default:
		placed("error")
		common.RenderError(w, err)
	}
}

func placed(result string) {
	if obs.OrdersPlacedTotal != nil {
		obs.OrdersPlacedTotal.WithLabelValues(result).Inc()
	}
}
