package masterdata

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/storeledger/internal/ledger"
	"github.com/odyssey-erp/storeledger/internal/platform/db"
)

// Repository persists master data.
type Repository interface {
	ListStores(ctx context.Context) ([]ledger.Store, error)
	GetStore(ctx context.Context, id int64) (ledger.Store, error)
	CreateStore(ctx context.Context, s ledger.Store) (ledger.Store, error)
	UpdateStore(ctx context.Context, s ledger.Store) error
	DeleteStore(ctx context.Context, id int64) error

	ListProducts(ctx context.Context) ([]ledger.Product, error)
	GetProduct(ctx context.Context, id int64) (ledger.Product, error)
	CreateProduct(ctx context.Context, p ledger.Product) (ledger.Product, error)
	UpdateProduct(ctx context.Context, p ledger.Product) error
	DeleteProduct(ctx context.Context, id int64) error

	ListSuppliers(ctx context.Context) ([]ledger.Supplier, error)
	GetSupplier(ctx context.Context, id int64) (ledger.Supplier, error)
	CreateSupplier(ctx context.Context, s ledger.Supplier) (ledger.Supplier, error)
	UpdateSupplier(ctx context.Context, s ledger.Supplier) error
	DeleteSupplier(ctx context.Context, id int64) error
}

// PGRepository implements Repository on PostgreSQL. Reads are shared with
// the ledger repository.
type PGRepository struct {
	*ledger.PGRepository
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL master data repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{PGRepository: ledger.NewRepository(pool), pool: pool}
}

func (r *PGRepository) CreateStore(ctx context.Context, s ledger.Store) (ledger.Store, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO stores (name, address) VALUES ($1, $2) RETURNING id`, s.Name, s.Address).Scan(&s.ID)
	return s, err
}

func (r *PGRepository) UpdateStore(ctx context.Context, s ledger.Store) error {
	return r.update(ctx, "store", s.ID, `UPDATE stores SET name = $2, address = $3 WHERE id = $1`, s.ID, s.Name, s.Address)
}

func (r *PGRepository) DeleteStore(ctx context.Context, id int64) error {
	return r.update(ctx, "store", id, `DELETE FROM stores WHERE id = $1`, id)
}

func (r *PGRepository) CreateProduct(ctx context.Context, p ledger.Product) (ledger.Product, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO products (name, price) VALUES ($1, $2) RETURNING id`, p.Name, p.Price).Scan(&p.ID)
	if db.IsCode(err, db.CodeCheckViolation) || db.IsCode(err, db.CodeNumericOutOfRange) {
		return ledger.Product{}, ledger.Invalid("price is out of range")
	}
	return p, err
}

func (r *PGRepository) UpdateProduct(ctx context.Context, p ledger.Product) error {
	return r.update(ctx, "product", p.ID, `UPDATE products SET name = $2, price = $3 WHERE id = $1`, p.ID, p.Name, p.Price)
}

func (r *PGRepository) DeleteProduct(ctx context.Context, id int64) error {
	return r.update(ctx, "product", id, `DELETE FROM products WHERE id = $1`, id)
}

func (r *PGRepository) CreateSupplier(ctx context.Context, s ledger.Supplier) (ledger.Supplier, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO suppliers (name, address) VALUES ($1, $2) RETURNING id`, s.Name, s.Address).Scan(&s.ID)
	return s, err
}

func (r *PGRepository) UpdateSupplier(ctx context.Context, s ledger.Supplier) error {
	return r.update(ctx, "supplier", s.ID, `UPDATE suppliers SET name = $2, address = $3 WHERE id = $1`, s.ID, s.Name, s.Address)
}

func (r *PGRepository) DeleteSupplier(ctx context.Context, id int64) error {
	return r.update(ctx, "supplier", id, `DELETE FROM suppliers WHERE id = $1`, id)
}

// update runs a single row statement inside a transaction so the cascade of
// a delete commits atomically with it.
func (r *PGRepository) update(ctx context.Context, entity string, id int64, sql string, args ...any) error {
	return db.WithTx(ctx, r.pool, db.ReadCommitted, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			if db.IsCode(err, db.CodeCheckViolation) || db.IsCode(err, db.CodeNumericOutOfRange) {
				return ledger.Invalid("%s violates a value constraint", entity)
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return ledger.NotFound(entity, id)
		}
		return nil
	})
}

var _ Repository = (*PGRepository)(nil)
