package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/storeledger/internal/platform/db"
)

// Querier is implemented by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	db   Querier
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed ledger repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{db: pool, pool: pool}
}

// WithQuerier returns a repository bound to q, typically a transaction.
func WithQuerier(q Querier) *PGRepository {
	return &PGRepository{db: q}
}

var _ Repository = (*PGRepository)(nil)

// Snapshot runs fn against a read-only REPEATABLE READ transaction so that
// multi-query reports see one consistent state. Repositories already bound
// to a transaction run fn directly.
func (r *PGRepository) Snapshot(ctx context.Context, fn func(Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}
	return db.WithTx(ctx, r.pool, db.RepeatableRead, func(tx pgx.Tx) error {
		return fn(WithQuerier(tx))
	})
}

func (r *PGRepository) GetStore(ctx context.Context, id int64) (Store, error) {
	var s Store
	err := r.db.QueryRow(ctx, `SELECT id, name, address FROM stores WHERE id = $1`, id).Scan(&s.ID, &s.Name, &s.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return Store{}, NotFound("store", id)
	}
	return s, err
}

func (r *PGRepository) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, `SELECT id, name, price FROM products WHERE id = $1`, id).Scan(&p.ID, &p.Name, &p.Price)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, NotFound("product", id)
	}
	return p, err
}

func (r *PGRepository) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	var s Supplier
	err := r.db.QueryRow(ctx, `SELECT id, name, address FROM suppliers WHERE id = $1`, id).Scan(&s.ID, &s.Name, &s.Address)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, NotFound("supplier", id)
	}
	return s, err
}

func (r *PGRepository) GetStock(ctx context.Context, id int64) (Stock, error) {
	rows, err := r.db.Query(ctx, stockSelect+` WHERE st.id = $1`, id)
	if err != nil {
		return Stock{}, err
	}
	stocks, err := pgx.CollectRows(rows, scanStock)
	if err != nil {
		return Stock{}, err
	}
	if len(stocks) == 0 {
		return Stock{}, NotFound("stock", id)
	}
	return stocks[0], nil
}

func (r *PGRepository) ListStores(ctx context.Context) ([]Store, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, address FROM stores ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Store, error) {
		var s Store
		err := row.Scan(&s.ID, &s.Name, &s.Address)
		return s, err
	})
}

func (r *PGRepository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, price FROM products ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Product, error) {
		var p Product
		err := row.Scan(&p.ID, &p.Name, &p.Price)
		return p, err
	})
}

func (r *PGRepository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, address FROM suppliers ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Supplier, error) {
		var s Supplier
		err := row.Scan(&s.ID, &s.Name, &s.Address)
		return s, err
	})
}

const purchaseSelect = `SELECT p.id, p.store_id, s.name, p.product_id, pr.name, pr.price, p.supplier_id, su.name, p.quantity, p.unit_price, p.purchase_date
FROM purchases p
JOIN stores s ON s.id = p.store_id
JOIN products pr ON pr.id = p.product_id
JOIN suppliers su ON su.id = p.supplier_id`

func (r *PGRepository) Purchases(ctx context.Context, filter Filter) ([]Purchase, error) {
	where, args := ledgerWhere("p", "purchase_date", filter, true)
	query := purchaseSelect + where + ` ORDER BY p.purchase_date DESC, p.id DESC` + limitClause(filter.Limit)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list purchases: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Purchase, error) {
		var p Purchase
		err := row.Scan(&p.ID, &p.StoreID, &p.StoreName, &p.ProductID, &p.ProductName, &p.ProductPrice,
			&p.SupplierID, &p.SupplierName, &p.Quantity, &p.UnitPrice, &p.PurchaseDate)
		return p, err
	})
}

const saleSelect = `SELECT sa.id, sa.store_id, s.name, sa.product_id, pr.name, pr.price, sa.quantity, sa.unit_price, sa.sale_date
FROM sales sa
JOIN stores s ON s.id = sa.store_id
JOIN products pr ON pr.id = sa.product_id`

func (r *PGRepository) Sales(ctx context.Context, filter Filter) ([]Sale, error) {
	where, args := ledgerWhere("sa", "sale_date", filter, false)
	query := saleSelect + where + ` ORDER BY sa.sale_date DESC, sa.id DESC` + limitClause(filter.Limit)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list sales: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Sale, error) {
		var s Sale
		err := row.Scan(&s.ID, &s.StoreID, &s.StoreName, &s.ProductID, &s.ProductName, &s.ProductPrice,
			&s.Quantity, &s.UnitPrice, &s.SaleDate)
		return s, err
	})
}

const stockSelect = `SELECT st.id, st.store_id, s.name, st.product_id, pr.name, pr.price, st.quantity
FROM stock st
JOIN stores s ON s.id = st.store_id
JOIN products pr ON pr.id = st.product_id`

func scanStock(row pgx.CollectableRow) (Stock, error) {
	var s Stock
	err := row.Scan(&s.ID, &s.StoreID, &s.StoreName, &s.ProductID, &s.ProductName, &s.ProductPrice, &s.Quantity)
	return s, err
}

func (r *PGRepository) Stocks(ctx context.Context, filter Filter) ([]Stock, error) {
	var (
		conds []string
		args  []any
	)
	if filter.StoreID != 0 {
		args = append(args, filter.StoreID)
		conds = append(conds, "st.store_id = $"+strconv.Itoa(len(args)))
	}
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		conds = append(conds, "st.product_id = $"+strconv.Itoa(len(args)))
	}
	query := stockSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY s.name, pr.name` + limitClause(filter.Limit)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: list stock: %w", err)
	}
	return pgx.CollectRows(rows, scanStock)
}

// Totals pushes SUM(quantity) and SUM(quantity * unit_price) down to the database.
func (r *PGRepository) Totals(ctx context.Context, kind Kind, filter Filter) (Totals, error) {
	var table, alias, dateCol string
	switch kind {
	case KindPurchase:
		table, alias, dateCol = "purchases", "p", "purchase_date"
	case KindSale:
		table, alias, dateCol = "sales", "sa", "sale_date"
		filter.SupplierID = 0
	default:
		return Totals{}, Invalid("unknown ledger kind %q", kind)
	}
	where, args := ledgerWhere(alias, dateCol, filter, kind == KindPurchase)
	query := fmt.Sprintf(`SELECT COALESCE(SUM(%[1]s.quantity), 0), COALESCE(SUM(%[1]s.quantity * %[1]s.unit_price), 0) FROM %[2]s %[1]s`, alias, table) + where
	var (
		qty   int64
		value decimal.Decimal
	)
	if err := r.db.QueryRow(ctx, query, args...).Scan(&qty, &value); err != nil {
		return Totals{}, fmt.Errorf("ledger: totals %s: %w", kind, err)
	}
	return Totals{Quantity: qty, Value: value.Round(MoneyPlaces)}, nil
}

func ledgerWhere(alias, dateCol string, filter Filter, withSupplier bool) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, alias, len(args)))
	}
	if filter.StoreID != 0 {
		add("%s.store_id = $%d", filter.StoreID)
	}
	if filter.ProductID != 0 {
		add("%s.product_id = $%d", filter.ProductID)
	}
	if withSupplier && filter.SupplierID != 0 {
		add("%s.supplier_id = $%d", filter.SupplierID)
	}
	if !filter.From.IsZero() {
		add("%s."+dateCol+" >= $%d", dateParam(filter.From))
	}
	if !filter.To.IsZero() {
		add("%s."+dateCol+" <= $%d", dateParam(filter.To))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func dateParam(t time.Time) string {
	return t.Format("2006-01-02")
}

func limitClause(limit int) string {
	if limit <= 0 {
		return ""
	}
	return " LIMIT " + strconv.Itoa(limit)
}
