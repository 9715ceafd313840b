// Package export serialises report results for download.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/storeledger/internal/reports"
)

// WriteSalesCSV serialises the windowed sales report.
func WriteSalesCSV(w io.Writer, report reports.SalesReport) error {
	rows := [][]string{{"Window", "From", "To", "Quantity", "Sales", "Purchases", "Profit", "Reference Margin"}}
	for _, win := range report.Windows {
		rows = append(rows, []string{
			win.Label,
			formatDate(win.Window.Start),
			formatDate(win.Window.End),
			formatInt(win.Quantity),
			formatMoney(win.Sales),
			formatMoney(win.Purchases),
			formatMoney(win.Profit),
			formatMoney(win.Margin),
		})
	}
	return writeAll(w, rows)
}

// WritePurchasesCSV emits purchase totals per store followed by per window.
func WritePurchasesCSV(w io.Writer, report reports.PurchaseReport) error {
	rows := [][]string{{"Store", "Quantity", "Value"}}
	for _, st := range report.ByStore {
		rows = append(rows, []string{st.Store, formatInt(st.Quantity), formatMoney(st.Value)})
	}
	rows = append(rows, []string{"Total", "", formatMoney(report.Total)}, nil, []string{"Window", "Quantity", "Value"})
	for _, win := range report.Windows {
		rows = append(rows, []string{win.Label, formatInt(win.Quantity), formatMoney(win.Value)})
	}
	return writeAll(w, rows)
}

// WritePurchaseSummaryCSV emits one row per store with quantities per window.
func WritePurchaseSummaryCSV(w io.Writer, summary reports.PurchaseSummary) error {
	header := []string{"Store", "Value"}
	for _, kind := range reports.WindowKinds {
		header = append(header, kind.Label()+" Quantity")
	}
	rows := [][]string{header}
	for _, st := range summary.Stores {
		row := []string{st.Store, formatMoney(st.Value)}
		for _, win := range st.Windows {
			row = append(row, formatInt(win.Quantity))
		}
		rows = append(rows, row)
	}
	return writeAll(w, rows)
}

// WriteStockCSV emits stock lines with their valuation.
func WriteStockCSV(w io.Writer, lines []reports.StockLine, total decimal.Decimal) error {
	rows := [][]string{{"Store", "Product", "Quantity", "Price", "Value"}}
	for _, line := range lines {
		rows = append(rows, []string{
			line.StoreName,
			line.ProductName,
			formatInt(line.Quantity),
			formatMoney(line.ProductPrice),
			formatMoney(line.Value),
		})
	}
	rows = append(rows, []string{"Total", "", "", "", formatMoney(total)})
	return writeAll(w, rows)
}

// WriteSalesByStoreCSV emits units sold and revenue per store.
func WriteSalesByStoreCSV(w io.Writer, stores []reports.StoreSales) error {
	rows := [][]string{{"Store", "Quantity", "Revenue"}}
	for _, st := range stores {
		rows = append(rows, []string{st.Store, formatInt(st.Quantity), formatMoney(st.Revenue)})
	}
	return writeAll(w, rows)
}

// WriteSupplierHistoryCSV emits one row per purchase grouped by supplier.
// Suppliers without purchases get a single totals row.
func WriteSupplierHistoryCSV(w io.Writer, history []reports.SupplierHistory) error {
	rows := [][]string{{"Supplier", "Date", "Store", "Product", "Quantity", "Unit Price", "Total"}}
	for _, sup := range history {
		for _, p := range sup.Purchases {
			rows = append(rows, []string{
				sup.Supplier.Name,
				formatDate(p.PurchaseDate),
				p.StoreName,
				p.ProductName,
				formatInt(p.Quantity),
				formatMoney(p.UnitPrice),
				formatMoney(p.Total()),
			})
		}
		rows = append(rows, []string{sup.Supplier.Name, "", "", "Total", formatInt(sup.Quantity), "", formatMoney(sup.Value)})
	}
	return writeAll(w, rows)
}

func writeAll(w io.Writer, rows [][]string) error {
	writer := csv.NewWriter(w)
	for _, row := range rows {
		if row == nil {
			row = []string{}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
