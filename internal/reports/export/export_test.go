package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/storeledger/internal/ledger"
	"github.com/odyssey-erp/storeledger/internal/reports"
)

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	r := csv.NewReader(buf)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteSalesCSV(t *testing.T) {
	w := reports.MustResolve(reports.Today, time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC), time.UTC)
	report := reports.SalesReport{Windows: []reports.SalesWindow{{
		Window:    w,
		Label:     w.Kind.Label(),
		Quantity:  4,
		Sales:     decimal.RequireFromString("100"),
		Purchases: decimal.RequireFromString("60"),
		Profit:    decimal.RequireFromString("40"),
		Margin:    decimal.Zero,
	}}}

	var buf bytes.Buffer
	require.NoError(t, WriteSalesCSV(&buf, report))
	rows := readCSV(t, &buf)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Today", "2024-05-08", "2024-05-08", "4", "100.00", "60.00", "40.00", "0.00"}, rows[1])
}

func TestWriteStockCSV(t *testing.T) {
	lines := []reports.StockLine{{
		Stock: ledger.Stock{StoreName: "Geita", ProductName: "Widget, large", Quantity: 5, ProductPrice: decimal.RequireFromString("2")},
		Value: decimal.RequireFromString("10"),
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteStockCSV(&buf, lines, decimal.RequireFromString("10")))
	rows := readCSV(t, &buf)
	require.Len(t, rows, 3)
	assert.Equal(t, "Widget, large", rows[1][1])
	assert.Equal(t, "2.00", rows[1][3])
	assert.Equal(t, []string{"Total", "", "", "", "10.00"}, rows[2])
}

func TestWriteSupplierHistoryCSVIncludesIdleSuppliers(t *testing.T) {
	history := []reports.SupplierHistory{
		{Supplier: ledger.Supplier{Name: "Lake Traders"}, Purchases: []ledger.Purchase{{
			StoreName: "Geita", ProductName: "Widget", Quantity: 3, UnitPrice: decimal.RequireFromString("10"),
			PurchaseDate: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		}}, Quantity: 3, Value: decimal.RequireFromString("30")},
		{Supplier: ledger.Supplier{Name: "Idle Supplies"}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSupplierHistoryCSV(&buf, history))
	rows := readCSV(t, &buf)
	require.Len(t, rows, 4)
	assert.Equal(t, "30.00", rows[1][6])
	assert.Equal(t, []string{"Idle Supplies", "", "", "Total", "0", "", "0.00"}, rows[3])
}
