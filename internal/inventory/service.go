package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/odyssey-erp/storeledger/internal/ledger"
	"github.com/odyssey-erp/storeledger/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Stocks(ctx context.Context, filter ledger.Filter) ([]ledger.Stock, error)
	GetStock(ctx context.Context, id int64) (ledger.Stock, error)
}

// CacheInvalidator drops cached reports after a committed write.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Recorder receives ledger metrics.
type Recorder interface {
	LedgerEntry(kind string, value float64)
	InsufficientStock()
}

// Service coordinates stock mutations.
type Service struct {
	repo        RepositoryPort
	audit       *shared.AuditLogger
	idempotency *shared.IdempotencyStore
	invalidator CacheInvalidator
	metrics     Recorder
	logger      *slog.Logger
	loc         *time.Location
	now         func() time.Time
}

// ServiceConfig groups optional collaborators.
type ServiceConfig struct {
	Location    *time.Location
	Invalidator CacheInvalidator
	Metrics     Recorder
	Clock       func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, idem *shared.IdempotencyStore, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		invalidator: cfg.Invalidator,
		metrics:     cfg.Metrics,
		logger:      logger,
		loc:         loc,
		now:         clock,
	}
}

// ApplyPurchase adds quantity to the (store, product) stock row, creating it
// at zero first when the pair has never been stocked.
func ApplyPurchase(ctx context.Context, tx TxRepository, storeID, productID, quantity int64) (ledger.Stock, error) {
	if quantity <= 0 {
		return ledger.Stock{}, ledger.Invalid("quantity must be positive")
	}
	st, err := tx.LockStock(ctx, storeID, productID, true)
	if err != nil {
		return ledger.Stock{}, err
	}
	st.Quantity += quantity
	if err := tx.SetQuantity(ctx, st.ID, st.Quantity); err != nil {
		return ledger.Stock{}, err
	}
	return st, nil
}

// ApplySale removes quantity from the (store, product) stock row. A missing
// row or a shortfall yields *ledger.InsufficientStock and leaves stock untouched.
func ApplySale(ctx context.Context, tx TxRepository, storeID, productID, quantity int64) (ledger.Stock, error) {
	if quantity <= 0 {
		return ledger.Stock{}, ledger.Invalid("quantity must be positive")
	}
	st, err := tx.LockStock(ctx, storeID, productID, false)
	if errors.Is(err, ledger.ErrNotFound) {
		return ledger.Stock{}, &ledger.InsufficientStock{StoreID: storeID, ProductID: productID, Requested: quantity}
	}
	if err != nil {
		return ledger.Stock{}, err
	}
	if st.Quantity < quantity {
		return ledger.Stock{}, &ledger.InsufficientStock{StoreID: storeID, ProductID: productID, Available: st.Quantity, Requested: quantity}
	}
	st.Quantity -= quantity
	if err := tx.SetQuantity(ctx, st.ID, st.Quantity); err != nil {
		return ledger.Stock{}, err
	}
	return st, nil
}

// RecordPurchase appends a purchase and raises stock in one transaction.
func (s *Service) RecordPurchase(ctx context.Context, in PurchaseInput) (PurchaseResult, error) {
	if err := in.validate(); err != nil {
		return PurchaseResult{}, err
	}
	var result PurchaseResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.claim(ctx, tx, in.IdempotencyKey, entityPurchase); err != nil {
			return err
		}
		store, err := tx.GetStore(ctx, in.StoreID)
		if err != nil {
			return err
		}
		product, err := tx.GetProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		supplier, err := tx.GetSupplier(ctx, in.SupplierID)
		if err != nil {
			return err
		}
		st, err := ApplyPurchase(ctx, tx, store.ID, product.ID, in.Quantity)
		if err != nil {
			return err
		}
		purchase := ledger.Purchase{
			StoreID:      store.ID,
			StoreName:    store.Name,
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductPrice: product.Price,
			SupplierID:   supplier.ID,
			SupplierName: supplier.Name,
			Quantity:     in.Quantity,
			UnitPrice:    in.UnitPrice,
			PurchaseDate: ledger.DateOf(s.now(), s.loc),
		}
		if err := tx.InsertPurchase(ctx, &purchase); err != nil {
			return err
		}
		result = PurchaseResult{Purchase: purchase, Stock: st.Quantity}
		return s.recordAudit(ctx, tx, "inventory:purchase", entityPurchase, purchase.ID, map[string]any{
			"store_id":    store.ID,
			"product_id":  product.ID,
			"supplier_id": supplier.ID,
			"quantity":    in.Quantity,
			"unit_price":  in.UnitPrice.StringFixed(ledger.MoneyPlaces),
			"stock_after": st.Quantity,
		})
	})
	if err != nil {
		return PurchaseResult{}, err
	}
	s.committed(ctx, string(ledger.KindPurchase), result.Purchase.Total().InexactFloat64())
	s.logger.Info("purchase recorded",
		slog.Int64("purchase_id", result.Purchase.ID),
		slog.Int64("store_id", in.StoreID),
		slog.Int64("product_id", in.ProductID),
		slog.Int64("quantity", in.Quantity),
		slog.Int64("stock", result.Stock))
	return result, nil
}

// RecordSale checks and lowers stock and appends a sale in one transaction.
// The sale row is only written after the stock check passes.
func (s *Service) RecordSale(ctx context.Context, in SaleInput) (SaleResult, error) {
	if err := in.validate(); err != nil {
		return SaleResult{}, err
	}
	var result SaleResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := s.claim(ctx, tx, in.IdempotencyKey, entitySale); err != nil {
			return err
		}
		store, err := tx.GetStore(ctx, in.StoreID)
		if err != nil {
			return err
		}
		product, err := tx.GetProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		st, err := ApplySale(ctx, tx, store.ID, product.ID, in.Quantity)
		if err != nil {
			return err
		}
		sale := ledger.Sale{
			StoreID:      store.ID,
			StoreName:    store.Name,
			ProductID:    product.ID,
			ProductName:  product.Name,
			ProductPrice: product.Price,
			Quantity:     in.Quantity,
			UnitPrice:    in.UnitPrice,
			SaleDate:     ledger.DateOf(s.now(), s.loc),
		}
		if err := tx.InsertSale(ctx, &sale); err != nil {
			return err
		}
		result = SaleResult{Sale: sale, Stock: st.Quantity}
		return s.recordAudit(ctx, tx, "inventory:sale", entitySale, sale.ID, map[string]any{
			"store_id":    store.ID,
			"product_id":  product.ID,
			"quantity":    in.Quantity,
			"unit_price":  in.UnitPrice.StringFixed(ledger.MoneyPlaces),
			"stock_after": st.Quantity,
		})
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientStock) && s.metrics != nil {
			s.metrics.InsufficientStock()
		}
		return SaleResult{}, err
	}
	s.committed(ctx, string(ledger.KindSale), result.Sale.Total().InexactFloat64())
	s.logger.Info("sale recorded",
		slog.Int64("sale_id", result.Sale.ID),
		slog.Int64("store_id", in.StoreID),
		slog.Int64("product_id", in.ProductID),
		slog.Int64("quantity", in.Quantity),
		slog.Int64("stock", result.Stock))
	return result, nil
}

// AddStock adds quantity to a stock line, creating it when missing.
func (s *Service) AddStock(ctx context.Context, in StockInput) (ledger.Stock, error) {
	if in.StoreID <= 0 || in.ProductID <= 0 {
		return ledger.Stock{}, ledger.Invalid("store and product are required")
	}
	if in.Quantity < 0 {
		return ledger.Stock{}, ledger.Invalid("quantity must not be negative")
	}
	var st ledger.Stock
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetStore(ctx, in.StoreID); err != nil {
			return err
		}
		if _, err := tx.GetProduct(ctx, in.ProductID); err != nil {
			return err
		}
		var err error
		st, err = tx.LockStock(ctx, in.StoreID, in.ProductID, true)
		if err != nil {
			return err
		}
		st.Quantity += in.Quantity
		if err := tx.SetQuantity(ctx, st.ID, st.Quantity); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, "inventory:stock_add", entityStock, st.ID, map[string]any{
			"store_id":   in.StoreID,
			"product_id": in.ProductID,
			"added":      in.Quantity,
			"quantity":   st.Quantity,
		})
	})
	if err != nil {
		return ledger.Stock{}, err
	}
	s.committed(ctx, "", 0)
	return st, nil
}

// SetStock overwrites the quantity of an existing stock line.
func (s *Service) SetStock(ctx context.Context, id, quantity int64) (ledger.Stock, error) {
	if quantity < 0 {
		return ledger.Stock{}, ledger.Invalid("quantity must not be negative")
	}
	var st ledger.Stock
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		st, err = tx.LockStockByID(ctx, id)
		if err != nil {
			return err
		}
		previous := st.Quantity
		st.Quantity = quantity
		if err := tx.SetQuantity(ctx, id, quantity); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, "inventory:stock_set", entityStock, id, map[string]any{
			"previous": previous,
			"quantity": quantity,
		})
	})
	if err != nil {
		return ledger.Stock{}, err
	}
	s.committed(ctx, "", 0)
	return st, nil
}

// DeleteStock removes a stock line. Ledger history is kept.
func (s *Service) DeleteStock(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		st, err := tx.LockStockByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteStock(ctx, id); err != nil {
			return err
		}
		return s.recordAudit(ctx, tx, "inventory:stock_delete", entityStock, id, map[string]any{
			"store_id":   st.StoreID,
			"product_id": st.ProductID,
			"quantity":   st.Quantity,
		})
	})
	if err != nil {
		return err
	}
	s.committed(ctx, "", 0)
	return nil
}

// ListStock lists stock lines.
func (s *Service) ListStock(ctx context.Context, filter ledger.Filter) ([]ledger.Stock, error) {
	return s.repo.Stocks(ctx, filter)
}

// GetStock loads one stock line.
func (s *Service) GetStock(ctx context.Context, id int64) (ledger.Stock, error) {
	return s.repo.GetStock(ctx, id)
}

func (s *Service) claim(ctx context.Context, tx TxRepository, key, entity string) error {
	if key == "" || s.idempotency == nil {
		return nil
	}
	return s.idempotency.Claim(ctx, tx, fmt.Sprintf("%s:%s", entity, key), moduleName)
}

func (s *Service) recordAudit(ctx context.Context, tx TxRepository, action, entity string, id int64, meta map[string]any) error {
	if s.audit == nil {
		return nil
	}
	return s.audit.RecordTx(ctx, tx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now().UTC(),
	})
}

// committed runs after a successful commit. Cache invalidation failures are
// logged; cached reports then expire by TTL.
func (s *Service) committed(ctx context.Context, kind string, value float64) {
	if kind != "" && s.metrics != nil {
		s.metrics.LedgerEntry(kind, value)
	}
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}
