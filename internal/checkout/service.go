package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/palengke-dev/farmgate-api/internal/cart"
	"github.com/palengke-dev/farmgate-api/internal/events"
	"github.com/palengke-dev/farmgate-api/internal/geo"
	"github.com/palengke-dev/farmgate-api/internal/ordernum"
	"github.com/palengke-dev/farmgate-api/internal/pricing"
	"github.com/palengke-dev/farmgate-api/internal/resilience"
	"github.com/palengke-dev/farmgate-api/internal/store"
)

var (
	// ErrCartInvalid means the authoritative validation found violations;
	// the Result carries the per-line report.
	ErrCartInvalid = errors.New("checkout: cart failed validation")
	// ErrOrderWriteAfterCapture means payment was already captured and the
	// order write failed. The payment reference and order number are
	// logged so the state can be reconciled; callers must not retry
	// payment.
	ErrOrderWriteAfterCapture = errors.New("checkout: order write failed after payment capture")
)

// Store is the persistence surface checkout needs.
type Store interface {
	ProductStocks(ctx context.Context, ids []string) (map[string]store.StockInfo, error)
	InsertOrder(ctx context.Context, o store.Order) error
}

// Request is one order placement attempt. PaymentRef is set when the
// caller already captured payment for the quoted total.
type Request struct {
	BuyerID       string
	Items         []cart.LineItem
	BuyerLocation *geo.Coordinate
	// ShippingFee is the price of the delivery option the buyer picked;
	// nil means the smart option for the cart's distance.
	ShippingFee *float64
	PaymentRef  string
}

// Result is the outcome of a placement attempt. Report is populated only
// when validation blocked the order.
type Result struct {
	OrderID     string            `json:"orderId,omitempty"`
	OrderNumber string            `json:"orderNumber,omitempty"`
	Breakdown   pricing.Breakdown `json:"breakdown"`
	Report      cart.CartReport   `json:"report"`
}

// Service runs the order placement pipeline: authoritative validation,
// number allocation, pricing, persistence, event emission. Steps run in
// that order; a failure at any step stops the pipeline.
type Service struct {
	Store  Store
	Alloc  *ordernum.Allocator
	Quotes cart.QuoteService
	Bus    *events.Bus
	Logger zerolog.Logger
}

// Place validates and persists the order.
func (s *Service) Place(ctx context.Context, req Request) (Result, error) {
	if len(req.Items) == 0 {
		return Result{}, cart.ErrEmptyCart
	}

	items := make([]cart.LineItem, len(req.Items))
	for i, li := range req.Items {
		items[i] = cart.NormalizeLine(li)
	}

	report, err := s.validate(ctx, items)
	if err != nil {
		return Result{}, err
	}
	if !report.Valid {
		return Result{Report: report}, ErrCartInvalid
	}

	number, err := s.Alloc.Allocate(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("checkout: allocate order number: %w", err)
	}

	var breakdown pricing.Breakdown
	if req.ShippingFee != nil {
		breakdown, err = s.Quotes.Breakdown(items, *req.ShippingFee)
	} else {
		var q cart.Quote
		q, err = s.Quotes.Quote(items, req.BuyerLocation)
		breakdown = q.Breakdown
	}
	if err != nil {
		return Result{}, fmt.Errorf("checkout: price breakdown: %w", err)
	}

	order := store.Order{
		ID:          uuid.NewString(),
		OrderNumber: number,
		BuyerID:     req.BuyerID,
		ItemsTotal:  breakdown.ItemsTotal,
		PlatformFee: breakdown.PlatformFee,
		ShippingFee: breakdown.ShippingFee,
		VATAmount:   breakdown.VATAmount,
		FinalPrice:  breakdown.FinalPrice,
		Currency:    s.Quotes.Currency,
		PaymentRef:  req.PaymentRef,
	}
	for _, li := range items {
		order.Items = append(order.Items, store.OrderItem{
			ProductID: li.ProductID,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice,
			Subtotal:  pricing.Round2(li.UnitPrice * float64(li.Quantity)),
		})
	}

	if err := s.persist(ctx, &order); err != nil {
		if req.PaymentRef != "" {
			s.Logger.Error().Err(err).
				Str("payment_ref", req.PaymentRef).
				Str("order_number", order.OrderNumber).
				Str("buyer_id", req.BuyerID).
				Msg("order write failed after payment capture, manual reconciliation required")
			return Result{}, ErrOrderWriteAfterCapture
		}
		return Result{}, fmt.Errorf("checkout: persist order: %w", err)
	}

	s.emit(ctx, order)
	return Result{OrderID: order.ID, OrderNumber: order.OrderNumber, Breakdown: breakdown}, nil
}

// validate re-checks quantities against live stock and minimum order
// quantities, overriding whatever snapshot the client sent.
func (s *Service) validate(ctx context.Context, items []cart.LineItem) (cart.CartReport, error) {
	ids := make([]string, 0, len(items))
	for _, li := range items {
		ids = append(ids, li.ProductID)
	}
	facts, err := s.Store.ProductStocks(ctx, ids)
	if err != nil {
		return cart.CartReport{}, fmt.Errorf("checkout: load product stocks: %w", err)
	}

	report := cart.CartReport{Valid: true}
	for i, li := range items {
		fact, ok := facts[li.ProductID]
		if !ok {
			report.Valid = false
			report.Errors = append(report.Errors, cart.LineReport{
				ProductID: li.ProductID,
				Message:   fmt.Sprintf("%s is no longer available", li.ProductID),
			})
			continue
		}
		stock := fact.Stock
		items[i].Stock = &stock
		if fact.MinimumOrderQty > 0 {
			items[i].MinimumOrderQuantity = fact.MinimumOrderQty
		}
		if r := cart.ValidateLine(items[i]); !r.Valid {
			report.Valid = false
			report.Errors = append(report.Errors, r)
		}
	}
	return report, nil
}

// persist writes the order, re-allocating the number when a concurrent
// order slipped past the allocator's collision check and hit the unique
// index instead.
func (s *Service) persist(ctx context.Context, order *store.Order) error {
	const maxAttempts = 3
	for attempt := 1; ; attempt++ {
		err := s.Store.InsertOrder(ctx, *order)
		if !errors.Is(err, store.ErrDuplicateOrderNumber) || attempt == maxAttempts {
			return err
		}
		ordernum.AllocationRetries.Inc()
		// Let the competing transaction commit before re-reading the
		// latest number.
		time.Sleep(resilience.Backoff(10*time.Millisecond, attempt, 0.2))
		number, allocErr := s.Alloc.Allocate(ctx)
		if allocErr != nil {
			return allocErr
		}
		order.OrderNumber = number
	}
}

func (s *Service) emit(ctx context.Context, order store.Order) {
	if s.Bus == nil {
		return
	}
	payload := map[string]any{
		"orderNumber": order.OrderNumber,
		"buyerId":     order.BuyerID,
		"finalPrice":  order.FinalPrice,
		"currency":    order.Currency,
	}
	if _, err := s.Bus.Emit(ctx, events.TopicOrderCreated, order.ID, payload); err != nil {
		s.Logger.Warn().Err(err).Str("order_number", order.OrderNumber).Msg("order.created emit failed")
	}
	if ordernum.IsFallback(order.OrderNumber) {
		if _, err := s.Bus.Emit(ctx, events.TopicOrderNumberFallback, order.ID, map[string]any{
			"orderNumber": order.OrderNumber,
		}); err != nil {
			s.Logger.Warn().Err(err).Msg("order.number_fallback emit failed")
		}
	}
}
