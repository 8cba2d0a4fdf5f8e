package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/pagination"
)

// Repository persists orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, tenantID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	ListByCustomer(ctx context.Context, tenantID uuid.UUID, customerRef string) ([]models.Order, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, updates map[string]any) error
	SetApplied(ctx context.Context, lineID uuid.UUID, applied int) error
	ClaimApplied(ctx context.Context, lineID uuid.UUID, expected int) (bool, error)
	ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []models.OrderLineItem) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	FindItemsByName(ctx context.Context, tenantID uuid.UUID, names []string) (map[string]models.Item, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its line items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", orderLines).
		Where("org_id = ? AND id = ?", tenantID, id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// List pages orders newest first using the (created_at, id) cursor.
func (r *repository) List(ctx context.Context, tenantID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Preload("Items", orderLines).Where("org_id = ?", tenantID)
	var orders []models.Order
	if err := query.Scopes(pagination.Keyset(cursor, limit)).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListByCustomer(ctx context.Context, tenantID uuid.UUID, customerRef string) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND customer_ref = ?", tenantID, customerRef).
		Order("order_date ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) Update(ctx context.Context, tenantID, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("org_id = ? AND id = ?", tenantID, id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) SetApplied(ctx context.Context, lineID uuid.UUID, applied int) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Where("id = ?", lineID).
		Update("applied_quantity", applied).Error
}

// ClaimApplied zeroes the line's applied quantity only if it still equals expected.
// false means another caller already claimed it.
func (r *repository) ClaimApplied(ctx context.Context, lineID uuid.UUID, expected int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Where("id = ? AND applied_quantity = ?", lineID, expected).
		Update("applied_quantity", 0)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReplaceLines swaps the order's line items for the provided set.
func (r *repository) ReplaceLines(ctx context.Context, orderID uuid.UUID, lines []models.OrderLineItem) error {
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.OrderLineItem{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].OrderID = orderID
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

// Delete removes the line items explicitly so sqlite without foreign keys behaves like postgres.
func (r *repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Delete(&models.OrderLineItem{}).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Where("org_id = ? AND id = ?", tenantID, id).Delete(&models.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindItemsByName returns the tenant's items keyed by name. Missing names are simply absent.
func (r *repository) FindItemsByName(ctx context.Context, tenantID uuid.UUID, names []string) (map[string]models.Item, error) {
	found := make(map[string]models.Item, len(names))
	if len(names) == 0 {
		return found, nil
	}
	var items []models.Item
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND name IN ?", tenantID, names).
		Find(&items).Error; err != nil {
		return nil, err
	}
	for _, item := range items {
		found[item.Name] = item
	}
	return found, nil
}

func orderLines(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
