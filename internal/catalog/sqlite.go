package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/ErnestIssa/peak-mode/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Repository is the local product catalog. It holds the internal and test sources.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every connection to ":memory:" is a separate database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("could not open embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// ForSource returns the slice of the catalog tagged with tag.
func (r *Repository) ForSource(tag domain.Source) Source {
	return &localSource{db: r.db, tag: tag}
}

type localSource struct {
	db  *sql.DB
	tag domain.Source
}

func (s *localSource) List(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT id, name, description, price, currency, image_url
		FROM products
		WHERE source = ?
		ORDER BY position, id
	`

	rows, err := s.db.QueryContext(ctx, query, string(s.tag))
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := s.scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for i := range products {
		variants, err := s.variants(ctx, products[i].ID)
		if err != nil {
			return nil, err
		}
		products[i].Variants = variants
	}

	return products, nil
}

func (s *localSource) Get(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT id, name, description, price, currency, image_url
		FROM products
		WHERE source = ? AND id = ?
	`

	row := s.db.QueryRowContext(ctx, query, string(s.tag), id)
	p, err := s.scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Variants, err = s.variants(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *localSource) scanProduct(row scanner) (*domain.Product, error) {
	var (
		p     domain.Product
		price string
		image sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Currency, &image); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	amount, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("invalid price for product %s: %w", p.ID, err)
	}
	p.Price = amount
	p.Source = s.tag
	p.Currency = strings.ToUpper(p.Currency)
	if image.Valid && image.String != "" {
		p.Images = []string{image.String}
	}
	return &p, nil
}

func (s *localSource) variants(ctx context.Context, productID string) ([]domain.Variant, error) {
	query := `
		SELECT id, size, color, price
		FROM product_variants
		WHERE product_id = ?
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	var variants []domain.Variant
	for rows.Next() {
		var (
			v     domain.Variant
			price sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.Size, &v.Color, &price); err != nil {
			return nil, fmt.Errorf("failed to scan variant: %w", err)
		}
		if price.Valid && price.String != "" {
			amount, err := decimal.NewFromString(price.String)
			if err != nil {
				return nil, fmt.Errorf("invalid price for variant %s: %w", v.ID, err)
			}
			v.Price = amount
		}
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return variants, nil
}
