package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of decimal places a price may carry. Prices are
// stored as NUMERIC(12,2).
const PriceScale = 2

// MaxPrice is the exclusive upper bound of a storable price.
var MaxPrice = decimal.New(1, 10)

// Product is a catalog item sold by one seller in one or more categories.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURLs   []string        `json:"image_urls"`
	SellerID    string          `json:"seller_id"`
	Categories  []CategoryRef   `json:"categories"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CategoryIDs returns the ids of p's categories in order.
func (p *Product) CategoryIDs() []string {
	ids := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		ids[i] = c.ID
	}
	return ids
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name        string          `json:"name" validate:"max=500"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURLs   []string        `json:"image_urls" validate:"dive,required,max=2048"`
	SellerID    string          `json:"seller_id"`
	CategoryIDs []string        `json:"category_ids"`
}

// UpdateProductInput is a full replacement of a product's mutable fields.
// A nil SellerID keeps the current seller.
type UpdateProductInput struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"max=500"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURLs   []string        `json:"image_urls" validate:"dive,required,max=2048"`
	SellerID    *string         `json:"seller_id,omitempty"`
	CategoryIDs []string        `json:"category_ids"`
}

// UniqueIDs returns ids without blanks or repeats, keeping first-seen order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// DiffIDs returns the ids in next but not in prev (added) and the ids in
// prev but not in next (removed).
func DiffIDs(prev, next []string) (added, removed []string) {
	inPrev := make(map[string]struct{}, len(prev))
	for _, id := range prev {
		inPrev[id] = struct{}{}
	}
	inNext := make(map[string]struct{}, len(next))
	for _, id := range next {
		inNext[id] = struct{}{}
		if _, ok := inPrev[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range prev {
		if _, ok := inNext[id]; !ok {
			removed = append(removed, id)
		}
	}
	return added, removed
}
