package store

import (
	"context"
	"fmt"
)

// Product is an active marketplace listing as stored.
type Product struct {
	ID                string
	SellerID          string
	Name              string
	Category          string
	Quality           string
	UnitPrice         float64
	Unit              string
	Stock             int
	SoldCount         int
	Rating            float64
	MinimumOrderQty   int
	RequiresColdChain bool
	FarmLat           *float64
	FarmLng           *float64
}

// ActiveListingPrices returns the unit prices of all active listings in a
// category, for the live platform-average benchmark.
func (s *Store) ActiveListingPrices(ctx context.Context, category string) ([]float64, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT unit_price
		FROM products
		WHERE active AND category = $1`, category)
	if err != nil {
		return nil, fmt.Errorf("store: listing prices: %w", err)
	}
	defer rows.Close()

	var prices []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("store: listing prices: %w", err)
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

// ListActiveProducts returns active listings, optionally filtered by
// category, newest first. Ranking happens in the catalog layer.
func (s *Store) ListActiveProducts(ctx context.Context, category string, limit int) ([]Product, error) {
	const q = `
		SELECT id, seller_id, name, category, quality, unit_price, unit,
		       stock, sold_count, rating, minimum_order_qty,
		       requires_cold_chain, farm_lat, farm_lng
		FROM products
		WHERE active AND ($1 = '' OR category = $1)
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := s.Pool.Query(ctx, q, category, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.SellerID, &p.Name, &p.Category, &p.Quality,
			&p.UnitPrice, &p.Unit, &p.Stock, &p.SoldCount, &p.Rating,
			&p.MinimumOrderQty, &p.RequiresColdChain, &p.FarmLat, &p.FarmLng,
		); err != nil {
			return nil, fmt.Errorf("store: list products: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ProductStocks returns the current stock and minimum order quantity for
// the given product ids, for the authoritative pre-checkout validation.
func (s *Store) ProductStocks(ctx context.Context, ids []string) (map[string]StockInfo, error) {
	if len(ids) == 0 {
		return map[string]StockInfo{}, nil
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, stock, minimum_order_qty
		FROM products
		WHERE active AND id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("store: product stocks: %w", err)
	}
	defer rows.Close()

	out := make(map[string]StockInfo, len(ids))
	for rows.Next() {
		var id string
		var info StockInfo
		if err := rows.Scan(&id, &info.Stock, &info.MinimumOrderQty); err != nil {
			return nil, fmt.Errorf("store: product stocks: %w", err)
		}
		out[id] = info
	}
	return out, rows.Err()
}

// StockInfo is the authoritative availability snapshot for one product.
type StockInfo struct {
	Stock           int
	MinimumOrderQty int
}

// CategoryAverages returns the mean active listing price per category, for
// the catalog ranker's price-competitiveness signal.
func (s *Store) CategoryAverages(ctx context.Context) (map[string]float64, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT category, AVG(unit_price)
		FROM products
		WHERE active
		GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("store: category averages: %w", err)
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var category string
		var avg float64
		if err := rows.Scan(&category, &avg); err != nil {
			return nil, fmt.Errorf("store: category averages: %w", err)
		}
		out[category] = avg
	}
	return out, rows.Err()
}

// Categories lists the distinct categories with active listings.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT DISTINCT category FROM products WHERE active ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("store: categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("store: categories: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
