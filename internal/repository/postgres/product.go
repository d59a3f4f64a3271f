package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/utafrali/CatalogGo/internal/domain"
	"github.com/utafrali/CatalogGo/pkg/database"
	apperrors "github.com/utafrali/CatalogGo/pkg/errors"
)

// Category names are joined in at read time, so relational products never
// carry a stale snapshot.
const selectProducts = `
		SELECT p.id, p.name, p.description, p.price::text, p.image_urls, p.seller_id, p.created_at, p.updated_at,
			COALESCE(
				json_agg(json_build_object('id', c.id, 'name', c.name) ORDER BY pc.position)
					FILTER (WHERE c.id IS NOT NULL),
				'[]'
			)::text AS categories
		FROM products p
		LEFT JOIN product_categories pc ON pc.product_id = p.id
		LEFT JOIN categories c ON c.id = pc.category_id`

const insertProductCategories = `
		INSERT INTO product_categories (product_id, category_id, position)
		SELECT $1, c.id, c.ord - 1
		FROM unnest($2::uuid[]) WITH ORDINALITY AS c(id, ord)`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts the product row and its category memberships in one
// transaction.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	query := `
		INSERT INTO products (id, name, description, price, image_urls, seller_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "products.Create", query)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := newID()
	_, err = tx.Exec(ctx, query,
		id,
		p.Name,
		p.Description,
		p.Price.String(),
		imageURLs(p.ImageURLs),
		p.SellerID,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	if _, err = tx.Exec(ctx, insertProductCategories, id, uuids(p.CategoryIDs())); err != nil {
		return fmt.Errorf("insert product categories: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	p.ID = id
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if !isUUID(id) {
		return nil, apperrors.ErrNotFound
	}
	return r.getOne(ctx, "products.GetByID", selectProducts+` WHERE p.id = $1 GROUP BY p.id`, id)
}

// GetByName retrieves the oldest product with the given name.
func (r *ProductRepository) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	query := selectProducts + ` WHERE p.name = $1 GROUP BY p.id ORDER BY p.created_at LIMIT 1`
	return r.getOne(ctx, "products.GetByName", query, name)
}

func (r *ProductRepository) getOne(ctx context.Context, op, query string, arg string) (p *domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, op, query)
	defer func() { end(err) }()

	p, err = scanProduct(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List returns every product, oldest first.
func (r *ProductRepository) List(ctx context.Context) (products []domain.Product, err error) {
	query := selectProducts + ` GROUP BY p.id ORDER BY p.created_at`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "products.List", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products = []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

// Update overwrites the product row and replaces its category memberships
// in one transaction. A zero match count is returned without error.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (matched int64, err error) {
	if !isUUID(p.ID) {
		return 0, nil
	}

	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4::numeric, image_urls = $5, seller_id = $6, updated_at = $7
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "products.Update", query)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price.String(),
		imageURLs(p.ImageURLs),
		p.SellerID,
		p.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, nil
	}

	if _, err = tx.Exec(ctx, `DELETE FROM product_categories WHERE product_id = $1`, p.ID); err != nil {
		return 0, fmt.Errorf("clear product categories: %w", err)
	}
	if _, err = tx.Exec(ctx, insertProductCategories, p.ID, uuids(p.CategoryIDs())); err != nil {
		return 0, fmt.Errorf("insert product categories: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes a product. Its product_categories rows cascade.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	if !isUUID(id) {
		return apperrors.ErrNotFound
	}

	query := `DELETE FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "products.Delete", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RefreshCategorySnapshot is a no-op: names are joined at read time.
func (r *ProductRepository) RefreshCategorySnapshot(context.Context, string, string) (int64, error) {
	return 0, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p              domain.Product
		price          string
		categoriesJSON string
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&price,
		&p.ImageURLs,
		&p.SellerID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&categoriesJSON,
	)
	if err != nil {
		return nil, err
	}

	if p.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	if err := json.Unmarshal([]byte(categoriesJSON), &p.Categories); err != nil {
		return nil, fmt.Errorf("unmarshal categories: %w", err)
	}
	if p.ImageURLs == nil {
		p.ImageURLs = []string{}
	}
	return &p, nil
}

// imageURLs maps nil to an empty array so the NOT NULL column accepts it.
func imageURLs(urls []string) []string {
	if urls == nil {
		return []string{}
	}
	return urls
}
