// Package masterdata manages the stores, products and suppliers referenced by
// the purchase and sale ledger.
package masterdata

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Entity names a master data table.
type Entity string

const (
	EntityStore    Entity = "stores"
	EntityProduct  Entity = "products"
	EntitySupplier Entity = "suppliers"
)

// Singular returns the display name of one record.
func (e Entity) Singular() string {
	switch e {
	case EntityStore:
		return "store"
	case EntityProduct:
		return "product"
	case EntitySupplier:
		return "supplier"
	}
	return string(e)
}

// StoreInput is the editable part of a store.
type StoreInput struct {
	Name    string `validate:"required,max=120"`
	Address string `validate:"max=255"`
}

// SupplierInput is the editable part of a supplier.
type SupplierInput struct {
	Name    string `validate:"required,max=120"`
	Address string `validate:"max=255"`
}

// ProductInput is the editable part of a product. Price is kept as text
// until validated.
type ProductInput struct {
	Name  string `validate:"required,max=120"`
	Price string `validate:"required,numeric"`
}

func (in StoreInput) normalize() StoreInput {
	return StoreInput{Name: strings.TrimSpace(in.Name), Address: strings.TrimSpace(in.Address)}
}

func (in SupplierInput) normalize() SupplierInput {
	return SupplierInput{Name: strings.TrimSpace(in.Name), Address: strings.TrimSpace(in.Address)}
}

func (in ProductInput) normalize() ProductInput {
	return ProductInput{Name: strings.TrimSpace(in.Name), Price: strings.TrimSpace(in.Price)}
}

// Row is one line of a master data listing.
type Row struct {
	ID     int64           `json:"id"`
	Name   string          `json:"name"`
	Detail string          `json:"detail,omitempty"`
	Price  decimal.Decimal `json:"price,omitempty"`
}
