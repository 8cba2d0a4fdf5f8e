package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgdb "github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/lock"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/metrics"
	"github.com/nightshift/inventory-backend/pkg/principal"
	pkgredis "github.com/nightshift/inventory-backend/pkg/redis"
)

const (
	defaultLockTTL        = 10 * time.Second
	defaultVersionRetries = 3
	versionBackoff        = 5 * time.Millisecond
)

// Service mutates item stock. Every mutation writes the quantity and exactly one
// history entry in the same transaction while holding the item lock.
type Service interface {
	Deduct(ctx context.Context, p principal.Principal, itemName string, quantity int, orderRef string) (*Entry, error)
	Revert(ctx context.Context, p principal.Principal, itemName string, quantity int, orderRef string) (*Entry, error)
	Replenish(ctx context.Context, p principal.Principal, input ReplenishInput) (*Entry, error)
	RecordInitialStock(ctx context.Context, p principal.Principal, input ReplenishInput) (*Entry, error)
	History(ctx context.Context, p principal.Principal, itemID uuid.UUID) ([]Entry, error)
}

// RestockRecorder mirrors replenishments onto the supplying vendor.
type RestockRecorder interface {
	RecordRestock(ctx context.Context, p principal.Principal, vendorHumanID, itemHumanID, itemName string, quantity int, cost decimal.Decimal) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams wires the ledger dependencies. Restocks and Metrics are optional.
type ServiceParams struct {
	Repo           Repository
	DB             txRunner
	Locker         lock.Locker
	Restocks       RestockRecorder
	Metrics        *metrics.LedgerMetrics
	Logger         *logger.Logger
	LockTTL        time.Duration
	VersionRetries int
}

type service struct {
	repo           Repository
	db             txRunner
	locker         lock.Locker
	restocks       RestockRecorder
	metrics        *metrics.LedgerMetrics
	logg           *logger.Logger
	lockTTL        time.Duration
	versionRetries int
	now            func() time.Time
}

var errVersionConflict = errors.New("item version changed")

// NewService builds the stock ledger.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("item locker required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	ttl := params.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	retries := params.VersionRetries
	if retries <= 0 {
		retries = defaultVersionRetries
	}
	return &service{
		repo:           params.Repo,
		db:             params.DB,
		locker:         params.Locker,
		restocks:       params.Restocks,
		metrics:        params.Metrics,
		logg:           params.Logger,
		lockTTL:        ttl,
		versionRetries: retries,
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

type mutation struct {
	kind       enums.LedgerEventType
	requested  int
	orderRef   string
	vendorRef  string
	vendorName string
	cost       decimal.Decimal
}

// apply returns the applied amount and the resulting quantity. Deductions clamp at zero.
func (m mutation) apply(current int) (int, int) {
	if m.kind.Additive() {
		return m.requested, current + m.requested
	}
	applied := m.requested
	if applied > current {
		applied = current
	}
	return applied, current - applied
}

// Deduct removes up to quantity units for an order; the applied amount is min(quantity, stock).
func (s *service) Deduct(ctx context.Context, p principal.Principal, itemName string, quantity int, orderRef string) (*Entry, error) {
	return s.mutateByName(ctx, p, itemName, mutation{
		kind:      enums.LedgerEventTypeOrder,
		requested: quantity,
		orderRef:  orderRef,
	})
}

// Revert returns quantity units previously deducted for an order.
func (s *service) Revert(ctx context.Context, p principal.Principal, itemName string, quantity int, orderRef string) (*Entry, error) {
	return s.mutateByName(ctx, p, itemName, mutation{
		kind:      enums.LedgerEventTypeOrderRevert,
		requested: quantity,
		orderRef:  orderRef,
	})
}

// Replenish adds stock and mirrors the restock onto the vendor when one is referenced.
func (s *service) Replenish(ctx context.Context, p principal.Principal, input ReplenishInput) (*Entry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if input.Cost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost must not be negative")
	}
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	item, err := s.repo.FindItemByID(ctx, p.TenantID, input.ItemID)
	if err != nil {
		return nil, itemLookupError(err, map[string]any{"item_id": input.ItemID.String()})
	}

	vendorRef := strings.TrimSpace(input.VendorRef)
	entry, err := s.mutate(ctx, p, item, mutation{
		kind:       enums.LedgerEventTypeReplenishment,
		requested:  input.Quantity,
		vendorRef:  vendorRef,
		vendorName: strings.TrimSpace(input.VendorName),
		cost:       input.Cost,
	})
	if err != nil {
		return nil, err
	}
	s.mirrorRestock(ctx, p, vendorRef, entry, input.Cost)
	return entry, nil
}

// RecordInitialStock books the opening quantity of a freshly created item. Zero is a no-op.
func (s *service) RecordInitialStock(ctx context.Context, p principal.Principal, input ReplenishInput) (*Entry, error) {
	if input.Quantity == 0 {
		return nil, nil
	}
	return s.Replenish(ctx, p, input)
}

// History returns the item's entries oldest first.
func (s *service) History(ctx context.Context, p principal.Principal, itemID uuid.UUID) ([]Entry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	item, err := s.repo.FindItemByID(ctx, p.TenantID, itemID)
	if err != nil {
		return nil, itemLookupError(err, map[string]any{"item_id": itemID.String()})
	}
	rows, err := s.repo.ListEntries(ctx, p.TenantID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list item history")
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entry := entryFromModel(row)
		entry.ItemHumanID = item.HumanID
		entry.ItemName = item.Name
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *service) mutateByName(ctx context.Context, p principal.Principal, itemName string, m mutation) (*Entry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(itemName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name is required")
	}
	item, err := s.repo.FindItemByName(ctx, p.TenantID, name)
	if err != nil {
		return nil, itemLookupError(err, map[string]any{"item_name": name})
	}
	return s.mutate(ctx, p, item, m)
}

func (s *service) mutate(ctx context.Context, p principal.Principal, item *models.Item, m mutation) (*Entry, error) {
	if m.requested <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").
			WithDetails(map[string]any{"quantity": m.requested})
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"tenant_id": p.TenantID.String(),
		"item_id":   item.ID.String(),
		"kind":      m.kind.String(),
	})

	handle, err := s.locker.Obtain(ctx, itemLockKey(p.TenantID, item.ID), s.lockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrNotObtained) {
			s.metrics.IncConflict("item_lock")
			return nil, pkgerrors.New(pkgerrors.CodeConcurrency, "item is being updated").
				WithDetails(map[string]any{"item_id": item.ID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "obtain item lock")
	}
	defer func() {
		if relErr := handle.Release(ctx); relErr != nil {
			s.logg.Warn(ctx, fmt.Sprintf("release item lock: %v", relErr))
		}
	}()

	var (
		row     *models.ItemUpdateHistory
		current *models.Item
	)
	backoff := retry.WithMaxRetries(uint64(s.versionRetries-1), retry.NewExponential(versionBackoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			fresh, err := repo.FindItemByID(ctx, p.TenantID, item.ID)
			if err != nil {
				return itemLookupError(err, map[string]any{"item_id": item.ID.String()})
			}
			applied, after := m.apply(fresh.Quantity)
			at := s.now()
			swapped, err := repo.UpdateQuantity(ctx, fresh, after, at)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item quantity")
			}
			if !swapped {
				s.metrics.IncConflict("item_version")
				return retry.RetryableError(errVersionConflict)
			}
			entry := &models.ItemUpdateHistory{
				ItemID:          fresh.ID,
				OrgID:           p.TenantID,
				ItemHumanID:     fresh.HumanID,
				ItemName:        fresh.Name,
				Kind:            m.kind,
				VendorRef:       optionalString(m.vendorRef),
				VendorName:      optionalString(m.vendorName),
				OrderRef:        optionalString(m.orderRef),
				QuantityUpdated: applied,
				QuantityAfter:   after,
				Cost:            m.cost,
				CreatedAt:       at,
			}
			if err := repo.AppendEntry(ctx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append item history")
			}
			fresh.Quantity = after
			fresh.LastUpdateAt = at
			fresh.Version++
			row = entry
			current = fresh
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, errVersionConflict) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConcurrency, err, "item changed concurrently").
				WithDetails(map[string]any{"item_id": item.ID.String()})
		}
		return nil, err
	}

	entry := entryFromModel(*row)
	entry.ItemHumanID = current.HumanID
	entry.ItemName = current.Name
	entry.Requested = m.requested
	entry.Clamped = row.QuantityUpdated < m.requested
	s.metrics.IncMutation(m.kind.String())
	if entry.Clamped {
		s.metrics.IncClamped(m.kind.String())
		s.logg.Info(ctx, fmt.Sprintf("deduction clamped: requested %d applied %d", m.requested, row.QuantityUpdated))
	}
	return &entry, nil
}

func (s *service) mirrorRestock(ctx context.Context, p principal.Principal, vendorRef string, entry *Entry, cost decimal.Decimal) {
	if vendorRef == "" {
		s.logg.Debug(ctx, "replenishment without vendor reference; vendor mirror skipped")
		return
	}
	if s.restocks == nil {
		return
	}
	if err := s.restocks.RecordRestock(ctx, p, vendorRef, entry.ItemHumanID, entry.ItemName, entry.QuantityUpdated, cost); err != nil {
		ctx = s.logg.WithField(ctx, "vendor_ref", vendorRef)
		s.logg.Error(ctx, "vendor restock mirror failed", err)
	}
}

func itemLookupError(err error, details map[string]any) error {
	if pkgdb.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "item not found").WithDetails(details)
	}
	return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load item")
}

func itemLockKey(tenantID, itemID uuid.UUID) string {
	return pkgredis.LockKey("item", tenantID.String(), itemID.String())
}
