package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/internal/repository"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// memStore is an in-memory backend with the same set semantics as the real
// stores. It is safe for concurrent use.
type memStore struct {
	mu         sync.Mutex
	seq        int
	sellers    map[string]domain.Seller
	categories map[string]*domain.Category
	products   map[string]domain.Product
}

func newMemStore(backend domain.Backend) (*repository.Store, *memStore) {
	m := &memStore{
		sellers:    map[string]domain.Seller{},
		categories: map[string]*domain.Category{},
		products:   map[string]domain.Product{},
	}
	return &repository.Store{
		Backend:    backend,
		Sellers:    memSellers{m},
		Categories: memCategories{m},
		Products:   memProducts{m},
	}, m
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

type memSellers struct{ m *memStore }

func (r memSellers) Create(_ context.Context, s *domain.Seller) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s.ID = r.m.nextID("seller")
	r.m.sellers[s.ID] = *s
	return nil
}

func (r memSellers) GetByID(_ context.Context, id string) (*domain.Seller, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.sellers[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &s, nil
}

func (r memSellers) FindByFirstName(_ context.Context, firstName string) ([]domain.Seller, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.Seller{}
	for _, s := range r.m.sellers {
		if s.Profile.FirstName == firstName {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r memSellers) List(_ context.Context) ([]domain.Seller, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.Seller{}
	for _, s := range r.m.sellers {
		out = append(out, s)
	}
	return out, nil
}

type memCategories struct{ m *memStore }

func (r memCategories) Create(_ context.Context, c *domain.Category) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c.ID = r.m.nextID("category")
	c.ProductsOfCategory = []string{}
	stored := *c
	r.m.categories[c.ID] = &stored
	return nil
}

func (r memCategories) GetByID(_ context.Context, id string) (*domain.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.categories[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *c
	cp.ProductsOfCategory = slices.Clone(c.ProductsOfCategory)
	return &cp, nil
}

func (r memCategories) List(_ context.Context) ([]domain.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.Category{}
	for _, c := range r.m.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (r memCategories) Rename(_ context.Context, id, name string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.categories[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	c.Name = name
	return nil
}

func (r memCategories) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.categories[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.m.categories, id)
	return nil
}

func (r memCategories) AddProductToCategories(_ context.Context, productID string, categoryIDs []string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, id := range categoryIDs {
		c, ok := r.m.categories[id]
		if !ok || slices.Contains(c.ProductsOfCategory, productID) {
			continue
		}
		c.ProductsOfCategory = append(c.ProductsOfCategory, productID)
		n++
	}
	return n, nil
}

func (r memCategories) RemoveProductFromCategories(_ context.Context, productID string, categoryIDs []string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, id := range categoryIDs {
		c, ok := r.m.categories[id]
		if !ok {
			continue
		}
		if i := slices.Index(c.ProductsOfCategory, productID); i >= 0 {
			c.ProductsOfCategory = slices.Delete(c.ProductsOfCategory, i, i+1)
			n++
		}
	}
	return n, nil
}

type memProducts struct{ m *memStore }

func (r memProducts) Create(_ context.Context, p *domain.Product) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p.ID = r.m.nextID("product")
	r.m.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r memProducts) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.products[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	p = cloneProduct(p)
	return &p, nil
}

func (r memProducts) GetByName(_ context.Context, name string) (*domain.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.products {
		if p.Name == name {
			p = cloneProduct(p)
			return &p, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memProducts) List(_ context.Context) ([]domain.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []domain.Product{}
	for _, p := range r.m.products {
		out = append(out, p)
	}
	return out, nil
}

func (r memProducts) Update(_ context.Context, p *domain.Product) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.products[p.ID]; !ok {
		return 0, nil
	}
	r.m.products[p.ID] = cloneProduct(*p)
	return 1, nil
}

func (r memProducts) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.products[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.m.products, id)
	return nil
}

func (r memProducts) RefreshCategorySnapshot(_ context.Context, categoryID, name string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for id, p := range r.m.products {
		changed := false
		for i := range p.Categories {
			if p.Categories[i].ID == categoryID && p.Categories[i].Name != name {
				p.Categories[i].Name = name
				changed = true
			}
		}
		if changed {
			r.m.products[id] = p
			n++
		}
	}
	return n, nil
}

func cloneProduct(p domain.Product) domain.Product {
	p.Categories = slices.Clone(p.Categories)
	p.ImageURLs = slices.Clone(p.ImageURLs)
	return p
}

// noopEvents discards every event.
type noopEvents struct{}

func (noopEvents) PublishProductCreated(context.Context, domain.Backend, *domain.Product) error {
	return nil
}

func (noopEvents) PublishProductUpdated(context.Context, domain.Backend, *domain.Product) error {
	return nil
}

func (noopEvents) PublishProductDeleted(context.Context, domain.Backend, *domain.Product) error {
	return nil
}

func (noopEvents) PublishCategoryRenamed(context.Context, domain.Backend, *domain.Category, string) error {
	return nil
}
