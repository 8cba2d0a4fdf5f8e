package items

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/pagination"
)

// Repository persists item metadata. Quantity is written only by the ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Item, error)
	FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Item, error)
	ExistsByName(ctx context.Context, tenantID uuid.UUID, name string, exclude uuid.UUID) (bool, error)
	List(ctx context.Context, tenantID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Item, error)
	ListLowStock(ctx context.Context, tenantID uuid.UUID) ([]models.Item, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the item repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("org_id = ? AND id = ?", tenantID, id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("org_id = ? AND name = ?", tenantID, name).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ExistsByName(ctx context.Context, tenantID uuid.UUID, name string, exclude uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Item{}).Where("org_id = ? AND name = ?", tenantID, name)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List pages items newest first using the (created_at, id) cursor.
func (r *repository) List(ctx context.Context, tenantID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Item, error) {
	query := r.db.WithContext(ctx).Where("org_id = ?", tenantID)
	var items []models.Item
	if err := query.Scopes(pagination.Keyset(cursor, limit)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListLowStock(ctx context.Context, tenantID uuid.UUID) ([]models.Item, error) {
	var items []models.Item
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND quantity <= threshold", tenantID).
		Order("quantity ASC").
		Order("name ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, tenantID, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
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

// Delete removes the item row. History entries are kept.
func (r *repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("org_id = ? AND id = ?", tenantID, id).Delete(&models.Item{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
