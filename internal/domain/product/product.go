// Package product defines the catalog types consumed by pricing and order
// placement.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrAttributeNotFound is returned when a selected attribute does not
	// exist or belongs to a different product.
	ErrAttributeNotFound = errors.New("product attribute not found")
)

// Product is a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	RequiresRx  bool
	Attributes  []Attribute
}

// Attribute is a selectable product variant (pack size, strength) carrying
// an additional per-unit price on top of the product's base price.
type Attribute struct {
	ID              string
	ProductID       string
	Name            string
	AdditionalPrice decimal.Decimal
}

// AttributeByID returns the attribute with the given ID, or
// ErrAttributeNotFound when the product has no such attribute.
func (p *Product) AttributeByID(id string) (*Attribute, error) {
	for i := range p.Attributes {
		if p.Attributes[i].ID == id {
			return &p.Attributes[i], nil
		}
	}
	return nil, ErrAttributeNotFound
}

// Repository defines read operations for the product catalog. Attributes
// are loaded together with their products.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
