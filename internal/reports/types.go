package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/storeledger/internal/ledger"
)

// SalesWindow holds the sales and profit figures of one window.
type SalesWindow struct {
	Window    Window          `json:"window"`
	Label     string          `json:"label"`
	Quantity  int64           `json:"quantity"`
	Sales     decimal.Decimal `json:"sales"`
	Purchases decimal.Decimal `json:"purchases"`
	Profit    decimal.Decimal `json:"profit"`
	Margin    decimal.Decimal `json:"reference_margin"`
}

// SalesReport covers today, this week, this month and this year.
type SalesReport struct {
	AsOf    time.Time     `json:"as_of"`
	Windows []SalesWindow `json:"windows"`
}

// WindowTotal is a quantity and value summed over one window.
type WindowTotal struct {
	Window   Window          `json:"window"`
	Label    string          `json:"label"`
	Quantity int64           `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

// StoreTotal is a quantity and value summed for one store.
type StoreTotal struct {
	StoreID  int64           `json:"store_id"`
	Store    string          `json:"store"`
	Quantity int64           `json:"quantity"`
	Value    decimal.Decimal `json:"value"`
}

// PurchaseReport is purchase value per store and per window.
type PurchaseReport struct {
	AsOf    time.Time       `json:"as_of"`
	ByStore []StoreTotal    `json:"by_store"`
	Windows []WindowTotal   `json:"windows"`
	Total   decimal.Decimal `json:"total"`
}

// StorePurchases is one row of the purchase summary.
type StorePurchases struct {
	StoreID int64           `json:"store_id"`
	Store   string          `json:"store"`
	Value   decimal.Decimal `json:"value"`
	Windows []WindowTotal   `json:"windows"`
}

// PurchaseSummary lists every store with its purchase value and the
// quantities bought in each window.
type PurchaseSummary struct {
	AsOf   time.Time        `json:"as_of"`
	Stores []StorePurchases `json:"stores"`
}

// StockLine is a stock row with its value at the reference price.
type StockLine struct {
	ledger.Stock
	Value decimal.Decimal `json:"value"`
}

// ProductValue is stock value summed per product across stores.
type ProductValue struct {
	ProductID int64           `json:"product_id"`
	Product   string          `json:"product"`
	Quantity  int64           `json:"quantity"`
	Value     decimal.Decimal `json:"value"`
}

// InventoryValuation values all stock at current product prices.
type InventoryValuation struct {
	Lines     []StockLine     `json:"lines"`
	ByProduct []ProductValue  `json:"by_product"`
	Total     decimal.Decimal `json:"total"`
}

// StoreSales is one row of the sales-by-store report.
type StoreSales struct {
	StoreID  int64           `json:"store_id"`
	Store    string          `json:"store"`
	Quantity int64           `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// SupplierHistory lists a supplier's purchases with totals.
type SupplierHistory struct {
	Supplier  ledger.Supplier   `json:"supplier"`
	Purchases []ledger.Purchase `json:"purchases"`
	Quantity  int64             `json:"quantity"`
	Value     decimal.Decimal   `json:"value"`
}

// ProductStockReport lists every stock line.
type ProductStockReport struct {
	Lines         []StockLine     `json:"lines"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// StoreProfitLoss is the full ledger and stock position of one store.
type StoreProfitLoss struct {
	Store          ledger.Store      `json:"store"`
	Purchases      []ledger.Purchase `json:"purchases"`
	Sales          []ledger.Sale     `json:"sales"`
	Stock          []StockLine       `json:"stock"`
	TotalPurchases decimal.Decimal   `json:"total_purchases"`
	TotalSales     decimal.Decimal   `json:"total_sales"`
	StockValue     decimal.Decimal   `json:"stock_value"`
	ProfitLoss     decimal.Decimal   `json:"profit_loss"`
}

// StoreQuantity is the units on hand at one store.
type StoreQuantity struct {
	StoreID  int64  `json:"store_id"`
	Store    string `json:"store"`
	Quantity int64  `json:"quantity"`
}

// Dashboard is the landing page summary.
type Dashboard struct {
	AsOf             time.Time         `json:"as_of"`
	LatestSales      []ledger.Sale     `json:"latest_sales"`
	LatestPurchases  []ledger.Purchase `json:"latest_purchases"`
	StockByStore     []StoreQuantity   `json:"stock_by_store"`
	PurchasesByStore []StoreTotal      `json:"purchases_by_store"`
	TotalSales       ledger.Totals     `json:"total_sales"`
	TotalPurchases   ledger.Totals     `json:"total_purchases"`
	InventoryValue   decimal.Decimal   `json:"inventory_value"`
	Today            SalesWindow       `json:"today"`
}

// StockChart feeds the stock bar chart.
type StockChart struct {
	Labels   []string `json:"labels"`
	Quantity []int64  `json:"quantity"`
}

// ProductDetail shows one product with its ledger history.
type ProductDetail struct {
	Product        ledger.Product    `json:"product"`
	Stock          []StockLine       `json:"stock"`
	Purchases      []ledger.Purchase `json:"purchases"`
	Sales          []ledger.Sale     `json:"sales"`
	PurchasedValue decimal.Decimal   `json:"purchased_value"`
	SoldValue      decimal.Decimal   `json:"sold_value"`
}

// StoreProducts lists the products stocked at one store.
type StoreProducts struct {
	Store ledger.Store    `json:"store"`
	Stock []StockLine     `json:"stock"`
	Value decimal.Decimal `json:"value"`
}
