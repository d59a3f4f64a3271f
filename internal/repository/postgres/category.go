package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/pkg/database"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// CategoryRepository implements repository.CategoryRepository using
// PostgreSQL. Back-references live in the categories.product_ids array.
type CategoryRepository struct {
	pool database.DBTX
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool database.DBTX) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// Create inserts a category with an empty back-reference list.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) (err error) {
	query := `INSERT INTO categories (id, name, product_ids, created_at) VALUES ($1, $2, '{}', $3)`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "categories.Create", query)
	defer func() { end(err) }()

	id := newID()
	if _, err = r.pool.Exec(ctx, query, id, c.Name, c.CreatedAt); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}

	c.ID = id
	c.ProductsOfCategory = []string{}
	return nil
}

// GetByID retrieves a category by its ID.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (c *domain.Category, err error) {
	if !isUUID(id) {
		return nil, apperrors.ErrNotFound
	}

	query := `SELECT id, name, product_ids, created_at FROM categories WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "categories.GetByID", query)
	defer func() { end(err) }()

	c, err = scanCategory(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get category by id: %w", err)
	}
	return c, nil
}

// List returns every category ordered by name.
func (r *CategoryRepository) List(ctx context.Context) (categories []domain.Category, err error) {
	query := `SELECT id, name, product_ids, created_at FROM categories ORDER BY name`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "categories.List", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories = []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return categories, nil
}

// Rename updates the category name.
func (r *CategoryRepository) Rename(ctx context.Context, id, name string) (err error) {
	if !isUUID(id) {
		return apperrors.ErrNotFound
	}

	query := `UPDATE categories SET name = $2 WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "categories.Rename", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id, name)
	if err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete removes a category by its ID.
func (r *CategoryRepository) Delete(ctx context.Context, id string) (err error) {
	if !isUUID(id) {
		return apperrors.ErrNotFound
	}

	query := `DELETE FROM categories WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "categories.Delete", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// AddProductToCategories appends productID to product_ids on every listed
// category that does not hold it yet. Row locks serialise concurrent appends
// and the NOT ANY guard is re-checked after the wait, so the id is never
// stored twice.
func (r *CategoryRepository) AddProductToCategories(ctx context.Context, productID string, categoryIDs []string) (n int64, err error) {
	ids := uuids(categoryIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE categories
		SET product_ids = array_append(product_ids, $1)
		WHERE id = ANY($2::uuid[]) AND NOT ($1 = ANY(product_ids))`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "categories.AddProductToCategories", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, productID, ids)
	if err != nil {
		return 0, fmt.Errorf("add product to categories: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RemoveProductFromCategories drops productID from product_ids on every
// listed category that holds it.
func (r *CategoryRepository) RemoveProductFromCategories(ctx context.Context, productID string, categoryIDs []string) (n int64, err error) {
	ids := uuids(categoryIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE categories
		SET product_ids = array_remove(product_ids, $1)
		WHERE id = ANY($2::uuid[]) AND $1 = ANY(product_ids)`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "categories.RemoveProductFromCategories", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, productID, ids)
	if err != nil {
		return 0, fmt.Errorf("remove product from categories: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.ProductsOfCategory, &c.CreatedAt); err != nil {
		return nil, err
	}
	if c.ProductsOfCategory == nil {
		c.ProductsOfCategory = []string{}
	}
	return &c, nil
}
