package masterdata

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/storeledger/internal/ledger"
	"github.com/odyssey-erp/storeledger/internal/shared"
)

// CacheInvalidator drops cached reports after names or prices change.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// AuditRecorder persists audit rows.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service validates and persists master data changes.
type Service struct {
	repo        Repository
	audit       AuditRecorder
	invalidator CacheInvalidator
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewService constructs the master data service. audit and invalidator may be nil.
func NewService(repo Repository, audit AuditRecorder, invalidator CacheInvalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, invalidator: invalidator, validate: validator.New(), logger: logger}
}

// List returns every record of entity as listing rows.
func (s *Service) List(ctx context.Context, entity Entity) ([]Row, error) {
	switch entity {
	case EntityStore:
		stores, err := s.repo.ListStores(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]Row, 0, len(stores))
		for _, st := range stores {
			rows = append(rows, Row{ID: st.ID, Name: st.Name, Detail: st.Address})
		}
		return rows, nil
	case EntityProduct:
		products, err := s.repo.ListProducts(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]Row, 0, len(products))
		for _, p := range products {
			rows = append(rows, Row{ID: p.ID, Name: p.Name, Price: p.Price})
		}
		return rows, nil
	case EntitySupplier:
		suppliers, err := s.repo.ListSuppliers(ctx)
		if err != nil {
			return nil, err
		}
		rows := make([]Row, 0, len(suppliers))
		for _, sp := range suppliers {
			rows = append(rows, Row{ID: sp.ID, Name: sp.Name, Detail: sp.Address})
		}
		return rows, nil
	}
	return nil, ledger.Invalid("unknown entity %q", entity)
}

func (s *Service) GetStore(ctx context.Context, id int64) (ledger.Store, error) {
	return s.repo.GetStore(ctx, id)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (ledger.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (ledger.Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

// SaveStore creates the store when id is zero and updates it otherwise.
func (s *Service) SaveStore(ctx context.Context, id int64, in StoreInput) (ledger.Store, error) {
	in = in.normalize()
	if err := s.check(in); err != nil {
		return ledger.Store{}, err
	}
	st := ledger.Store{ID: id, Name: in.Name, Address: in.Address}
	var err error
	if id == 0 {
		st, err = s.repo.CreateStore(ctx, st)
	} else {
		err = s.repo.UpdateStore(ctx, st)
	}
	if err != nil {
		return ledger.Store{}, err
	}
	s.changed(ctx, EntityStore, id == 0, st.ID, map[string]any{"name": st.Name})
	return st, nil
}

// SaveProduct creates or updates a product. The price must be positive with
// at most two decimal places.
func (s *Service) SaveProduct(ctx context.Context, id int64, in ProductInput) (ledger.Product, error) {
	in = in.normalize()
	if err := s.check(in); err != nil {
		return ledger.Product{}, err
	}
	price, err := ledger.ParseMoney(in.Price)
	if err != nil {
		return ledger.Product{}, err
	}
	if err := ledger.CheckPrice("price", price); err != nil {
		return ledger.Product{}, err
	}
	p := ledger.Product{ID: id, Name: in.Name, Price: price}
	if id == 0 {
		p, err = s.repo.CreateProduct(ctx, p)
	} else {
		err = s.repo.UpdateProduct(ctx, p)
	}
	if err != nil {
		return ledger.Product{}, err
	}
	s.changed(ctx, EntityProduct, id == 0, p.ID, map[string]any{"name": p.Name, "price": p.Price.StringFixed(ledger.MoneyPlaces)})
	return p, nil
}

// SaveSupplier creates or updates a supplier.
func (s *Service) SaveSupplier(ctx context.Context, id int64, in SupplierInput) (ledger.Supplier, error) {
	in = in.normalize()
	if err := s.check(in); err != nil {
		return ledger.Supplier{}, err
	}
	sp := ledger.Supplier{ID: id, Name: in.Name, Address: in.Address}
	var err error
	if id == 0 {
		sp, err = s.repo.CreateSupplier(ctx, sp)
	} else {
		err = s.repo.UpdateSupplier(ctx, sp)
	}
	if err != nil {
		return ledger.Supplier{}, err
	}
	s.changed(ctx, EntitySupplier, id == 0, sp.ID, map[string]any{"name": sp.Name})
	return sp, nil
}

// Delete removes a record. Stock and ledger rows referencing it cascade.
func (s *Service) Delete(ctx context.Context, entity Entity, id int64) error {
	var err error
	switch entity {
	case EntityStore:
		err = s.repo.DeleteStore(ctx, id)
	case EntityProduct:
		err = s.repo.DeleteProduct(ctx, id)
	case EntitySupplier:
		err = s.repo.DeleteSupplier(ctx, id)
	default:
		return ledger.Invalid("unknown entity %q", entity)
	}
	if err != nil {
		return err
	}
	s.record(ctx, entity, "deleted", id, nil)
	s.invalidate(ctx)
	return nil
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &FieldError{Field: fe.Field(), Tag: fe.Tag()}
	}
	return ledger.Invalid("%v", err)
}

func (s *Service) changed(ctx context.Context, entity Entity, created bool, id int64, meta map[string]any) {
	action := "updated"
	if created {
		action = "created"
	}
	s.record(ctx, entity, action, id, meta)
	s.invalidate(ctx)
}

func (s *Service) record(ctx context.Context, entity Entity, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   entity.Singular() + "." + action,
		Entity:   entity.Singular(),
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("masterdata audit", slog.String("entity", string(entity)), slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}

// FieldError reports the first failing field of a master data form.
type FieldError struct {
	Field string
	Tag   string
}

func (e *FieldError) Error() string {
	switch e.Tag {
	case "required":
		return e.Field + " is required"
	case "numeric":
		return e.Field + " must be a number"
	case "max":
		return e.Field + " is too long"
	}
	return e.Field + " is invalid"
}

// Is lets errors.Is match ledger.ErrInvalidInput.
func (e *FieldError) Is(target error) bool {
	return target == ledger.ErrInvalidInput
}

// zeroPrice is shown on a new product form.
var zeroPrice = decimal.Zero.StringFixed(ledger.MoneyPlaces)
