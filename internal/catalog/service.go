package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/palengke-dev/farmgate-api/internal/common"
	"github.com/palengke-dev/farmgate-api/internal/geo"
	"github.com/palengke-dev/farmgate-api/internal/match"
	"github.com/palengke-dev/farmgate-api/internal/store"
)

type storeProvider interface {
	ListActiveProducts(ctx context.Context, category string, limit int) ([]store.Product, error)
	CategoryAverages(ctx context.Context) (map[string]float64, error)
}

// Service assembles the ranked product listing: load active listings,
// score them against the buyer context, sort, cache the anonymous
// default page.
type Service struct {
	store        storeProvider
	cache        *Cache
	scorer       match.Scorer
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store        storeProvider
	Cache        *Cache
	Scorer       match.Scorer
	DefaultLimit int
	MaxLimit     int
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		store:        cfg.Store,
		cache:        cfg.Cache,
		scorer:       cfg.Scorer,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// ListParams captures listing filters and the buyer context.
type ListParams struct {
	Category string
	Buyer    *geo.Coordinate
	Limit    int
}

// ProductListItem is one ranked listing entry.
type ProductListItem struct {
	ID                string      `json:"id"`
	SellerID          string      `json:"sellerId"`
	Name              string      `json:"name"`
	Category          string      `json:"category"`
	Quality           string      `json:"quality"`
	UnitPrice         float64     `json:"unitPrice"`
	Unit              string      `json:"unit"`
	Stock             int         `json:"stock"`
	Rating            float64     `json:"rating"`
	MinimumOrderQty   int         `json:"minimumOrderQuantity"`
	RequiresColdChain bool        `json:"requiresColdChain"`
	Score             match.Score `json:"score"`
}

// ParseListParams normalises raw query values.
func (s *Service) ParseListParams(values url.Values) (ListParams, error) {
	params := ListParams{
		Category: strings.ToLower(strings.TrimSpace(values.Get("category"))),
		Limit:    s.defaultLimit,
	}

	if v := strings.TrimSpace(values.Get("limit")); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return params, badRequest("limit", "limit must be a positive integer", err)
		}
		if limit > s.maxLimit {
			limit = s.maxLimit
		}
		params.Limit = limit
	}

	lat := strings.TrimSpace(values.Get("lat"))
	lng := strings.TrimSpace(values.Get("lng"))
	if (lat == "") != (lng == "") {
		return params, badRequest("location", "lat and lng must be provided together", nil)
	}
	if lat != "" {
		latV, err := strconv.ParseFloat(lat, 64)
		if err != nil || latV < -90 || latV > 90 {
			return params, badRequest("lat", "lat must be a valid latitude", err)
		}
		lngV, err := strconv.ParseFloat(lng, 64)
		if err != nil || lngV < -180 || lngV > 180 {
			return params, badRequest("lng", "lng must be a valid longitude", err)
		}
		params.Buyer = &geo.Coordinate{Lat: latV, Lng: lngV}
	}
	return params, nil
}

// ListProducts returns active listings ranked by match score. Only the
// anonymous default page is cached; any filter or buyer location makes the
// result personal and uncacheable.
func (s *Service) ListProducts(ctx context.Context, params ListParams) ([]ProductListItem, error) {
	key, cacheable := s.listCacheKey(params)
	if cacheable {
		var cached []ProductListItem
		if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}

	products, err := s.store.ListActiveProducts(ctx, params.Category, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	averages, err := s.store.CategoryAverages(ctx)
	if err != nil {
		// Ranking degrades to neutral price scores without averages.
		averages = map[string]float64{}
	}

	candidates := make([]match.Product, 0, len(products))
	for _, p := range products {
		mp := match.Product{
			ID:        p.ID,
			Category:  p.Category,
			UnitPrice: p.UnitPrice,
			SoldCount: p.SoldCount,
			Stock:     p.Stock,
			Rating:    p.Rating,
		}
		if p.FarmLat != nil && p.FarmLng != nil {
			mp.FarmerLocation = &geo.Coordinate{Lat: *p.FarmLat, Lng: *p.FarmLng}
		}
		candidates = append(candidates, mp)
	}

	byID := make(map[string]store.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	ranked := s.scorer.Rank(candidates, params.Buyer, averages)
	items := make([]ProductListItem, 0, len(ranked))
	for _, r := range ranked {
		p := byID[r.Product.ID]
		items = append(items, ProductListItem{
			ID:                p.ID,
			SellerID:          p.SellerID,
			Name:              p.Name,
			Category:          p.Category,
			Quality:           p.Quality,
			UnitPrice:         p.UnitPrice,
			Unit:              p.Unit,
			Stock:             p.Stock,
			Rating:            p.Rating,
			MinimumOrderQty:   p.MinimumOrderQty,
			RequiresColdChain: p.RequiresColdChain,
			Score:             r.Score,
		})
	}

	if cacheable {
		_ = s.cache.SetJSON(ctx, key, items)
	}
	return items, nil
}

func (s *Service) listCacheKey(params ListParams) (string, bool) {
	if s.cache == nil || params.Buyer != nil || params.Category != "" || params.Limit != s.defaultLimit {
		return "", false
	}
	return "catalog:products:ranked:default", true
}

func badRequest(field, message string, err error) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
		Details:    map[string]any{"field": field},
	}
}
