package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rxkart/checkout-api/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, description, price, category, requires_rx
		FROM products ORDER BY id`

	getProductsByIDsSQL = `SELECT id, name, description, price, category, requires_rx
		FROM products WHERE id = ANY($1)`

	listAttributesSQL = `SELECT id, product_id, name, additional_price
		FROM product_attributes WHERE product_id = ANY($1) ORDER BY id`

	upsertProductSQL = `INSERT INTO products (id, name, description, price, category, requires_rx)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description,
		    price = EXCLUDED.price, category = EXCLUDED.category,
		    requires_rx = EXCLUDED.requires_rx`

	upsertAttributeSQL = `INSERT INTO product_attributes (id, product_id, name, additional_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, additional_price = EXCLUDED.additional_price`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the full catalog ordered by ID, attributes included.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if err := r.attachAttributes(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByIDs returns products matching any of the given IDs, attributes
// included. Missing IDs are simply absent from the result.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	if err := r.attachAttributes(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductRepository) attachAttributes(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		byID[products[i].ID] = &products[i]
	}

	rows, err := r.pool.Query(ctx, listAttributesSQL, ids)
	if err != nil {
		return fmt.Errorf("listing product attributes: %w", err)
	}
	attrs, err := pgx.CollectRows(rows, scanAttribute)
	if err != nil {
		return fmt.Errorf("listing product attributes: %w", err)
	}

	for _, a := range attrs {
		if p, ok := byID[a.ProductID]; ok {
			p.Attributes = append(p.Attributes, a)
		}
	}
	return nil
}

// Upsert inserts or replaces a product and its attributes. Used by the
// seeding tool.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	if _, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Category, p.RequiresRx,
	); err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	for _, a := range p.Attributes {
		if _, err := r.pool.Exec(ctx, upsertAttributeSQL,
			a.ID, p.ID, a.Name, a.AdditionalPrice,
		); err != nil {
			return fmt.Errorf("upserting attribute %q of product %q: %w", a.ID, p.ID, err)
		}
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category, &p.RequiresRx)
	return p, err
}

func scanAttribute(row pgx.CollectableRow) (product.Attribute, error) {
	var a product.Attribute
	err := row.Scan(&a.ID, &a.ProductID, &a.Name, &a.AdditionalPrice)
	return a, err
}
