package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/internal/ledger"
	"github.com/nightshift/inventory-backend/internal/organizations"
	"github.com/nightshift/inventory-backend/internal/sequence"
	pkgdb "github.com/nightshift/inventory-backend/pkg/db"
	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
	pkgerrors "github.com/nightshift/inventory-backend/pkg/errors"
	"github.com/nightshift/inventory-backend/pkg/lock"
	"github.com/nightshift/inventory-backend/pkg/logger"
	"github.com/nightshift/inventory-backend/pkg/pagination"
	"github.com/nightshift/inventory-backend/pkg/principal"
	pkgredis "github.com/nightshift/inventory-backend/pkg/redis"
)

const defaultOrderLockTTL = 30 * time.Second

// Service orchestrates the order lifecycle against the stock ledger and the customer mirror.
type Service interface {
	Create(ctx context.Context, p principal.Principal, input CreateInput) (*OrderDTO, error)
	Get(ctx context.Context, p principal.Principal, id uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, p principal.Principal, params pagination.Params) (*OrderList, error)
	Update(ctx context.Context, p principal.Principal, id uuid.UUID, input UpdateInput) (*OrderDTO, error)
	Delete(ctx context.Context, p principal.Principal, id uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	Deduct(ctx context.Context, p principal.Principal, itemName string, quantity int, orderRef string) (*ledger.Entry, error)
	Revert(ctx context.Context, p principal.Principal, itemName string, quantity int, orderRef string) (*ledger.Entry, error)
}

type customerMirror interface {
	Resolve(ctx context.Context, p principal.Principal, humanID string) (*models.Customer, error)
	UpsertOrderSummary(ctx context.Context, p principal.Principal, customerHumanID, orderHumanID string, status enums.OrderStatus, orderDate time.Time, total decimal.Decimal) error
	RemoveOrderSummary(ctx context.Context, p principal.Principal, customerHumanID, orderHumanID string) error
}

// ServiceParams wires order dependencies.
type ServiceParams struct {
	Repo      Repository
	DB        txRunner
	Ledger    stockLedger
	Customers customerMirror
	Sequence  sequence.Generator
	Refs      organizations.RefRecorder
	Logger    *logger.Logger
	// Locker serializes Update and Delete per order.
	Locker    lock.Locker
	LockTTL   time.Duration
	// StrictTransitions enforces the order status matrix instead of free-form overwrites.
	StrictTransitions bool
}

type service struct {
	repo      Repository
	db        txRunner
	ledger    stockLedger
	customers customerMirror
	sequence  sequence.Generator
	refs      organizations.RefRecorder
	logg      *logger.Logger
	locker    lock.Locker
	lockTTL   time.Duration
	strict    bool
	now       func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("orders repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("stock ledger required")
	case params.Customers == nil:
		return nil, fmt.Errorf("customer mirror required")
	case params.Sequence == nil:
		return nil, fmt.Errorf("sequence generator required")
	case params.Refs == nil:
		return nil, fmt.Errorf("organization references required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.Locker == nil:
		return nil, fmt.Errorf("locker required")
	}
	lockTTL := params.LockTTL
	if lockTTL <= 0 {
		lockTTL = defaultOrderLockTTL
	}
	return &service{
		repo:      params.Repo,
		db:        params.DB,
		ledger:    params.Ledger,
		customers: params.Customers,
		sequence:  params.Sequence,
		refs:      params.Refs,
		logg:      params.Logger,
		locker:    params.Locker,
		lockTTL:   lockTTL,
		strict:    params.StrictTransitions,
		now:       time.Now,
	}, nil
}

// Create persists a PENDING order, deducts every line and mirrors the order onto the customer.
// A failed deduction reverts the lines already applied and removes the order.
func (s *service) Create(ctx context.Context, p principal.Principal, input CreateInput) (*OrderDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	lines, err := normalizeLines(input.Items)
	if err != nil {
		return nil, err
	}
	customer, err := s.resolveCustomer(ctx, p, input.CustomerRef)
	if err != nil {
		return nil, err
	}
	items, err := s.resolveItems(ctx, p.TenantID, lines)
	if err != nil {
		return nil, err
	}
	total, err := orderTotal(input.TotalAmount, lines)
	if err != nil {
		return nil, err
	}

	humanID, err := s.sequence.NextID(ctx, p.TenantID, enums.EntityTypeOrder)
	if err != nil {
		return nil, err
	}
	employeeName := strings.TrimSpace(input.EmployeeName)
	if employeeName == "" {
		employeeName = p.ActorName
	}
	order := &models.Order{
		OrgID:        p.TenantID,
		HumanID:      humanID,
		CustomerRef:  customer.HumanID,
		CustomerName: customer.Name,
		EmployeeRef:  strings.TrimSpace(input.EmployeeRef),
		EmployeeName: employeeName,
		TotalAmount:  total,
		Status:       enums.OrderStatusPending,
		OrderDate:    s.now().UTC(),
		Deadline:     input.Deadline,
		Notes:        trimmedPtr(input.Notes),
		Items:        buildLines(lines, items),
	}
	if err := s.repo.Create(ctx, order); err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConcurrency, err, "order id already issued")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	ctx = s.logg.WithField(ctx, "order_id", order.HumanID)
	if err := s.applyLines(ctx, p, order.HumanID, order.Items); err != nil {
		s.rollbackCreate(ctx, p, order)
		return nil, err
	}
	s.syncSummary(ctx, p, order)
	if err := s.refs.AppendRef(ctx, p.TenantID, enums.OrganizationRefOrder, order.ID); err != nil {
		s.logg.Error(ctx, "append order reference", err)
	}
	return s.Get(ctx, p, order.ID)
}

func (s *service) Get(ctx context.Context, p principal.Principal, id uuid.UUID) (*OrderDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, lookupError(err, id)
	}
	dto := toDTO(order)
	return &dto, nil
}

func (s *service) List(ctx context.Context, p principal.Principal, params pagination.Params) (*OrderList, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	cursor, err := pagination.Parse(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, p.TenantID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	rows, next := pagination.Split(rows, params.Limit, func(m models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	list := &OrderList{Orders: make([]OrderDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		list.Orders = append(list.Orders, toDTO(&rows[i]))
	}
	return list, nil
}

// Update overwrites the provided fields. New line items replace the old ones: every old line is
// reverted by the quantity it actually deducted, then every new line is deducted.
func (s *service) Update(ctx context.Context, p principal.Principal, id uuid.UUID, input UpdateInput) (*OrderDTO, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var out *OrderDTO
	err := s.withOrderLock(ctx, p, id, func(ctx context.Context) error {
		var err error
		out, err = s.update(ctx, p, id, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) update(ctx context.Context, p principal.Principal, id uuid.UUID, input UpdateInput) (*OrderDTO, error) {
	order, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, lookupError(err, id)
	}
	ctx = s.logg.WithField(ctx, "order_id", order.HumanID)

	updates := map[string]any{}
	previousCustomer := order.CustomerRef
	if input.CustomerRef != nil {
		customer, err := s.resolveCustomer(ctx, p, *input.CustomerRef)
		if err != nil {
			return nil, err
		}
		updates["customer_ref"] = customer.HumanID
		updates["customer_name"] = customer.Name
	}
	if input.EmployeeRef != nil {
		updates["employee_ref"] = strings.TrimSpace(*input.EmployeeRef)
	}
	if input.EmployeeName != nil {
		updates["employee_name"] = strings.TrimSpace(*input.EmployeeName)
	}
	if input.Deadline != nil {
		updates["deadline"] = input.Deadline.UTC()
	}
	if input.Notes != nil {
		updates["notes"] = trimmedPtr(input.Notes)
	}

	var replacement []models.OrderLineItem
	if input.Items != nil {
		lines, err := normalizeLines(*input.Items)
		if err != nil {
			return nil, err
		}
		items, err := s.resolveItems(ctx, p.TenantID, lines)
		if err != nil {
			return nil, err
		}
		replacement = buildLines(lines, items)
		if input.TotalAmount == nil {
			updates["total_amount"] = lineTotal(lines)
		}
	}
	if input.TotalAmount != nil {
		total, err := orderTotal(input.TotalAmount, nil)
		if err != nil {
			return nil, err
		}
		updates["total_amount"] = total
	}
	if input.Status != nil {
		status, err := s.nextStatus(order, *input.Status, input.Items != nil, len(replacement))
		if err != nil {
			return nil, err
		}
		updates["status"] = status
	}

	if input.Items != nil {
		if err := s.revertLines(ctx, p, order.HumanID, order.Items); err != nil {
			return nil, err
		}
	}
	if input.Items != nil || len(updates) > 0 {
		updates["updated_at"] = s.now().UTC()
		err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if input.Items != nil {
				if err := repo.ReplaceLines(ctx, order.ID, replacement); err != nil {
					return err
				}
			}
			return repo.Update(ctx, p.TenantID, order.ID, updates)
		})
		if err != nil {
			return nil, lookupError(err, id)
		}
	}
	if input.Items != nil {
		if err := s.applyLines(ctx, p, order.HumanID, replacement); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, lookupError(err, id)
	}
	s.syncSummary(ctx, p, updated)
	if previousCustomer != updated.CustomerRef {
		if err := s.customers.RemoveOrderSummary(ctx, p, previousCustomer, updated.HumanID); err != nil {
			s.logg.Error(ctx, "remove order summary from previous customer", err)
		}
	}
	dto := toDTO(updated)
	return &dto, nil
}

// Delete reverts the applied stock, removes the order and drops it from the customer mirror.
// Orders without line items are deleted without touching stock.
func (s *service) Delete(ctx context.Context, p principal.Principal, id uuid.UUID) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.withOrderLock(ctx, p, id, func(ctx context.Context) error {
		return s.delete(ctx, p, id)
	})
}

func (s *service) delete(ctx context.Context, p principal.Principal, id uuid.UUID) error {
	order, err := s.repo.FindByID(ctx, p.TenantID, id)
	if err != nil {
		return lookupError(err, id)
	}
	ctx = s.logg.WithField(ctx, "order_id", order.HumanID)

	if len(order.Items) > 0 {
		if err := s.revertLines(ctx, p, order.HumanID, order.Items); err != nil {
			return err
		}
	}
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, p.TenantID, order.ID)
	})
	if err != nil {
		return lookupError(err, id)
	}
	if err := s.customers.RemoveOrderSummary(ctx, p, order.CustomerRef, order.HumanID); err != nil {
		s.logg.Error(ctx, "remove customer order summary", err)
	}
	if err := s.refs.RemoveRef(ctx, p.TenantID, enums.OrganizationRefOrder, order.ID); err != nil {
		s.logg.Error(ctx, "remove order reference", err)
	}
	return nil
}

// applyLines deducts each line and pins the applied quantity on it.
func (s *service) applyLines(ctx context.Context, p principal.Principal, orderRef string, lines []models.OrderLineItem) error {
	for i := range lines {
		entry, err := s.ledger.Deduct(ctx, p, lines[i].ItemName, lines[i].Quantity, orderRef)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return unknownItemError(lines[i].ItemName)
			}
			return err
		}
		lines[i].AppliedQuantity = entry.QuantityUpdated
		if entry.Clamped {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"item_name": lines[i].ItemName,
				"requested": lines[i].Quantity,
				"applied":   entry.QuantityUpdated,
			}), "order line clamped to available stock")
		}
		if err := s.repo.SetApplied(ctx, lines[i].ID, lines[i].AppliedQuantity); err != nil {
			// An unrecorded deduction cannot be claimed later, so return it now.
			if applied := lines[i].AppliedQuantity; applied > 0 {
				if _, revErr := s.ledger.Revert(ctx, p, lines[i].ItemName, applied, orderRef); revErr != nil {
					s.logg.Error(ctx, "revert unrecorded deduction", revErr)
				}
			}
			lines[i].AppliedQuantity = 0
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record applied quantity")
		}
	}
	return nil
}

// withOrderLock runs fn holding the order's lock. A held lock surfaces as a retryable conflict.
func (s *service) withOrderLock(ctx context.Context, p principal.Principal, id uuid.UUID, fn func(ctx context.Context) error) error {
	key := pkgredis.LockKey("order", p.TenantID.String(), id.String())
	err := lock.WithLock(ctx, s.locker, key, s.lockTTL, fn)
	if errors.Is(err, lock.ErrNotObtained) {
		return pkgerrors.Wrap(pkgerrors.CodeConcurrency, err, "order is being updated").
			WithDetails(map[string]any{"order_id": id.String()})
	}
	return err
}

// revertLines claims each line's applied quantity by compare-and-swap before returning it to
// stock, so a line is reverted at most once even across callers. A failed revert restores the
// claim. Lines whose item no longer exists are skipped.
func (s *service) revertLines(ctx context.Context, p principal.Principal, orderRef string, lines []models.OrderLineItem) error {
	var errs error
	for i := range lines {
		applied := lines[i].AppliedQuantity
		if applied <= 0 {
			continue
		}
		claimed, err := s.repo.ClaimApplied(ctx, lines[i].ID, applied)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		lines[i].AppliedQuantity = 0
		if !claimed {
			s.logg.Warn(s.logg.WithField(ctx, "item_name", lines[i].ItemName), "order line already reverted")
			continue
		}
		if _, err := s.ledger.Revert(ctx, p, lines[i].ItemName, applied, orderRef); err != nil {
			if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				errs = multierr.Append(errs, err)
				lines[i].AppliedQuantity = applied
				if restoreErr := s.repo.SetApplied(ctx, lines[i].ID, applied); restoreErr != nil {
					errs = multierr.Append(errs, restoreErr)
				}
				continue
			}
			s.logg.Warn(s.logg.WithField(ctx, "item_name", lines[i].ItemName), "reverted line references a deleted item")
		}
	}
	switch all := multierr.Errors(errs); len(all) {
	case 0:
		return nil
	case 1:
		if pkgerrors.As(all[0]) != nil {
			return all[0]
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "revert order lines")
}

func (s *service) rollbackCreate(ctx context.Context, p principal.Principal, order *models.Order) {
	if err := s.revertLines(ctx, p, order.HumanID, order.Items); err != nil {
		s.logg.Error(ctx, "revert lines of failed order", err)
	}
	if err := s.repo.Delete(ctx, p.TenantID, order.ID); err != nil {
		s.logg.Error(ctx, "remove failed order", err)
	}
}

func (s *service) syncSummary(ctx context.Context, p principal.Principal, order *models.Order) {
	err := s.customers.UpsertOrderSummary(ctx, p, order.CustomerRef, order.HumanID, order.Status, order.OrderDate, order.TotalAmount)
	if err != nil {
		s.logg.Error(ctx, "sync customer order summary", err)
	}
}

func (s *service) resolveCustomer(ctx context.Context, p principal.Principal, ref string) (*models.Customer, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	customer, err := s.customers.Resolve(ctx, p, trimmed)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown customer").
				WithDetails(map[string]any{"customer_id": trimmed})
		}
		return nil, err
	}
	return customer, nil
}

func (s *service) resolveItems(ctx context.Context, tenantID uuid.UUID, lines []LineInput) (map[string]models.Item, error) {
	names := make([]string, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ItemName]; ok {
			continue
		}
		seen[line.ItemName] = struct{}{}
		names = append(names, line.ItemName)
	}
	items, err := s.repo.FindItemsByName(ctx, tenantID, names)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	for _, name := range names {
		if _, ok := items[name]; !ok {
			return nil, unknownItemError(name)
		}
	}
	return items, nil
}

func (s *service) nextStatus(order *models.Order, raw string, itemsReplaced bool, replacementLines int) (enums.OrderStatus, error) {
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
	}
	if !s.strict {
		return status, nil
	}
	if !order.Status.CanTransitionTo(status) {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
			WithDetails(map[string]any{"from": order.Status.String(), "to": status.String()})
	}
	lineCount := len(order.Items)
	if itemsReplaced {
		lineCount = replacementLines
	}
	if status != enums.OrderStatusPending && lineCount == 0 {
		return "", orderHasNoLineItems(order.HumanID)
	}
	return status, nil
}

func normalizeLines(input []LineInput) ([]LineInput, error) {
	lines := make([]LineInput, 0, len(input))
	for i, line := range input {
		name := strings.TrimSpace(line.ItemName)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item name is required").
				WithDetails(map[string]any{"line": i})
		}
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item quantity must be greater than zero").
				WithDetails(map[string]any{"line": i, "name": name})
		}
		if line.PriceAtOrder.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item price must not be negative").
				WithDetails(map[string]any{"line": i, "name": name})
		}
		lines = append(lines, LineInput{ItemName: name, Quantity: line.Quantity, PriceAtOrder: line.PriceAtOrder})
	}
	return lines, nil
}

func buildLines(lines []LineInput, items map[string]models.Item) []models.OrderLineItem {
	out := make([]models.OrderLineItem, 0, len(lines))
	for i, line := range lines {
		item := items[line.ItemName]
		out = append(out, models.OrderLineItem{
			Position:     i,
			ItemRef:      item.HumanID,
			ItemName:     item.Name,
			Quantity:     line.Quantity,
			PriceAtOrder: line.PriceAtOrder,
		})
	}
	return out
}

func orderTotal(explicit *decimal.Decimal, lines []LineInput) (decimal.Decimal, error) {
	if explicit == nil {
		return lineTotal(lines), nil
	}
	if explicit.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "total amount must not be negative")
	}
	return *explicit, nil
}

func unknownItemError(name string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "order references an unknown item").
		WithDetails(map[string]any{"item_name": name})
}

func orderHasNoLineItems(humanID string) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no line items").
		WithDetails(map[string]any{"order_id": humanID})
}

func lookupError(err error, id uuid.UUID) error {
	if pkgdb.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
			WithDetails(map[string]any{"order_id": id.String()})
	}
	return pkgerrors.Ensure(pkgerrors.CodeDependency, err, "load order")
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
