package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/storeledger/internal/ledger"
)

// PurchaseInput describes goods received from a supplier into a store.
type PurchaseInput struct {
	StoreID        int64
	ProductID      int64
	SupplierID     int64
	Quantity       int64
	UnitPrice      decimal.Decimal
	IdempotencyKey string
}

// SaleInput describes goods sold from a store.
type SaleInput struct {
	StoreID        int64
	ProductID      int64
	Quantity       int64
	UnitPrice      decimal.Decimal
	IdempotencyKey string
}

// StockInput is used by the manual stock maintenance screens.
type StockInput struct {
	StoreID   int64
	ProductID int64
	Quantity  int64
}

// PurchaseResult is the committed purchase and the stock level it produced.
type PurchaseResult struct {
	Purchase ledger.Purchase `json:"purchase"`
	Stock    int64           `json:"stock"`
}

// SaleResult is the committed sale and the stock level it left behind.
type SaleResult struct {
	Sale  ledger.Sale `json:"sale"`
	Stock int64       `json:"stock"`
}

const (
	moduleName     = "inventory"
	entityStock    = "stock"
	entityPurchase = "purchase"
	entitySale     = "sale"
)

func (in PurchaseInput) validate() error {
	switch {
	case in.StoreID <= 0:
		return ledger.Invalid("store is required")
	case in.ProductID <= 0:
		return ledger.Invalid("product is required")
	case in.SupplierID <= 0:
		return ledger.Invalid("supplier is required")
	case in.Quantity <= 0:
		return ledger.Invalid("quantity must be positive")
	}
	return ledger.CheckPrice("unit price", in.UnitPrice)
}

func (in SaleInput) validate() error {
	switch {
	case in.StoreID <= 0:
		return ledger.Invalid("store is required")
	case in.ProductID <= 0:
		return ledger.Invalid("product is required")
	case in.Quantity <= 0:
		return ledger.Invalid("quantity must be positive")
	}
	return ledger.CheckPrice("unit price", in.UnitPrice)
}
