package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/storeledger/internal/ledger"
	"github.com/odyssey-erp/storeledger/internal/platform/db"
	"github.com/odyssey-erp/storeledger/internal/shared"
)

// TxRepository exposes the operations a mutation performs inside its
// transaction. Exec lets audit and idempotency rows join the same unit.
type TxRepository interface {
	shared.Execer
	GetStore(ctx context.Context, id int64) (ledger.Store, error)
	GetProduct(ctx context.Context, id int64) (ledger.Product, error)
	GetSupplier(ctx context.Context, id int64) (ledger.Supplier, error)
	// LockStock locks the (store, product) row. With create set, a missing
	// row is inserted at zero first; otherwise ledger.ErrNotFound is returned.
	LockStock(ctx context.Context, storeID, productID int64, create bool) (ledger.Stock, error)
	LockStockByID(ctx context.Context, id int64) (ledger.Stock, error)
	SetQuantity(ctx context.Context, stockID, quantity int64) error
	DeleteStock(ctx context.Context, id int64) error
	InsertPurchase(ctx context.Context, p *ledger.Purchase) error
	InsertSale(ctx context.Context, s *ledger.Sale) error
}

// Repository persists inventory mutations in PostgreSQL.
type Repository struct {
	pool  *pgxpool.Pool
	reads *ledger.PGRepository
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, reads: ledger.NewRepository(pool)}
}

// WithTx runs fn in a READ COMMITTED transaction. Row locks taken by
// LockStock serialize concurrent writers of the same stock row.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{PGRepository: ledger.WithQuerier(tx), tx: tx})
	})
}

// Stocks lists stock lines.
func (r *Repository) Stocks(ctx context.Context, filter ledger.Filter) ([]ledger.Stock, error) {
	return r.reads.Stocks(ctx, filter)
}

// GetStock loads one stock line.
func (r *Repository) GetStock(ctx context.Context, id int64) (ledger.Stock, error) {
	return r.reads.GetStock(ctx, id)
}

type txRepo struct {
	*ledger.PGRepository
	tx pgx.Tx
}

func (r *txRepo) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return r.tx.Exec(ctx, sql, args...)
}

func (r *txRepo) LockStock(ctx context.Context, storeID, productID int64, create bool) (ledger.Stock, error) {
	if create {
		_, err := r.tx.Exec(ctx, `INSERT INTO stock (store_id, product_id, quantity) VALUES ($1, $2, 0)
ON CONFLICT (store_id, product_id) DO NOTHING`, storeID, productID)
		if err != nil {
			return ledger.Stock{}, translate(err, "stock")
		}
	}
	var st ledger.Stock
	err := r.tx.QueryRow(ctx, `SELECT id, store_id, product_id, quantity FROM stock
WHERE store_id = $1 AND product_id = $2 FOR UPDATE`, storeID, productID).Scan(&st.ID, &st.StoreID, &st.ProductID, &st.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Stock{}, fmt.Errorf("stock for store %d product %d: %w", storeID, productID, ledger.ErrNotFound)
	}
	return st, err
}

func (r *txRepo) LockStockByID(ctx context.Context, id int64) (ledger.Stock, error) {
	var st ledger.Stock
	err := r.tx.QueryRow(ctx, `SELECT id, store_id, product_id, quantity FROM stock WHERE id = $1 FOR UPDATE`, id).
		Scan(&st.ID, &st.StoreID, &st.ProductID, &st.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Stock{}, ledger.NotFound("stock", id)
	}
	return st, err
}

func (r *txRepo) SetQuantity(ctx context.Context, stockID, quantity int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stock SET quantity = $2 WHERE id = $1`, stockID, quantity)
	if err != nil {
		if db.IsCode(err, db.CodeCheckViolation) {
			return ledger.Invalid("stock quantity must not be negative")
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.NotFound("stock", stockID)
	}
	return nil
}

func (r *txRepo) DeleteStock(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM stock WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ledger.NotFound("stock", id)
	}
	return nil
}

func (r *txRepo) InsertPurchase(ctx context.Context, p *ledger.Purchase) error {
	err := r.tx.QueryRow(ctx, `INSERT INTO purchases (store_id, product_id, supplier_id, quantity, unit_price, purchase_date)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		p.StoreID, p.ProductID, p.SupplierID, p.Quantity, p.UnitPrice, p.PurchaseDate).Scan(&p.ID)
	return translate(err, "purchase reference")
}

func (r *txRepo) InsertSale(ctx context.Context, s *ledger.Sale) error {
	err := r.tx.QueryRow(ctx, `INSERT INTO sales (store_id, product_id, quantity, unit_price, sale_date)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		s.StoreID, s.ProductID, s.Quantity, s.UnitPrice, s.SaleDate).Scan(&s.ID)
	return translate(err, "sale reference")
}

func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case db.IsCode(err, db.CodeForeignKeyViolation):
		return fmt.Errorf("%s: %w", what, ledger.ErrNotFound)
	case db.IsCode(err, db.CodeCheckViolation), db.IsCode(err, db.CodeNumericOutOfRange):
		return fmt.Errorf("%s: %w", what, ledger.ErrInvalidInput)
	default:
		return err
	}
}
