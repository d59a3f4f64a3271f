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

const sellerColumns = `id, account_id, first_name, last_name, gender, COALESCE(birthday::text, ''),
		address, email_address, website, created_at`

// SellerRepository implements repository.SellerRepository using PostgreSQL.
type SellerRepository struct {
	pool database.DBTX
}

// NewSellerRepository creates a new PostgreSQL-backed seller repository.
func NewSellerRepository(pool database.DBTX) *SellerRepository {
	return &SellerRepository{pool: pool}
}

// Create inserts a seller and its profile.
func (r *SellerRepository) Create(ctx context.Context, s *domain.Seller) (err error) {
	query := `
		INSERT INTO sellers (id, account_id, first_name, last_name, gender, birthday, address, email_address, website, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::date, $7, $8, $9, $10)`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "sellers.Create", query)
	defer func() { end(err) }()

	id := newID()
	_, err = r.pool.Exec(ctx, query,
		id,
		s.AccountID,
		s.Profile.FirstName,
		s.Profile.LastName,
		s.Profile.Gender,
		s.Profile.Birthday,
		s.Profile.Address,
		s.Profile.EmailAddress,
		s.Profile.Website,
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert seller: %w", err)
	}

	s.ID = id
	return nil
}

// GetByID retrieves a seller by its ID.
func (r *SellerRepository) GetByID(ctx context.Context, id string) (s *domain.Seller, err error) {
	if !isUUID(id) {
		return nil, apperrors.ErrNotFound
	}

	query := `SELECT ` + sellerColumns + ` FROM sellers WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, "sellers.GetByID", query)
	defer func() { end(err) }()

	s, err = scanSeller(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get seller by id: %w", err)
	}
	return s, nil
}

// FindByFirstName returns the sellers whose first name equals firstName.
func (r *SellerRepository) FindByFirstName(ctx context.Context, firstName string) ([]domain.Seller, error) {
	query := `SELECT ` + sellerColumns + ` FROM sellers WHERE first_name = $1 ORDER BY created_at`
	return r.list(ctx, "sellers.FindByFirstName", query, firstName)
}

// List returns every seller.
func (r *SellerRepository) List(ctx context.Context) ([]domain.Seller, error) {
	query := `SELECT ` + sellerColumns + ` FROM sellers ORDER BY created_at`
	return r.list(ctx, "sellers.List", query)
}

func (r *SellerRepository) list(ctx context.Context, op, query string, args ...any) (sellers []domain.Seller, err error) {
	ctx, end := database.TraceQuery(ctx, database.SystemPostgres, op, query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sellers: %w", err)
	}
	defer rows.Close()

	sellers = []domain.Seller{}
	for rows.Next() {
		s, err := scanSeller(rows)
		if err != nil {
			return nil, fmt.Errorf("scan seller row: %w", err)
		}
		sellers = append(sellers, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seller rows: %w", err)
	}
	return sellers, nil
}

func scanSeller(row pgx.Row) (*domain.Seller, error) {
	var s domain.Seller
	err := row.Scan(
		&s.ID,
		&s.AccountID,
		&s.Profile.FirstName,
		&s.Profile.LastName,
		&s.Profile.Gender,
		&s.Profile.Birthday,
		&s.Profile.Address,
		&s.Profile.EmailAddress,
		&s.Profile.Website,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
