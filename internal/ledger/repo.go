package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
)

// Repository manages item quantities and the append-only update history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindItemByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Item, error)
	FindItemByID(ctx context.Context, tenantID, itemID uuid.UUID) (*models.Item, error)
	UpdateQuantity(ctx context.Context, item *models.Item, quantity int, at time.Time) (bool, error)
	AppendEntry(ctx context.Context, entry *models.ItemUpdateHistory) error
	ListEntries(ctx context.Context, tenantID, itemID uuid.UUID) ([]models.ItemUpdateHistory, error)
	ListReplenishments(ctx context.Context, tenantID uuid.UUID, vendorRef string) ([]models.ItemUpdateHistory, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindItemByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND name = ?", tenantID, name).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItemByID(ctx context.Context, tenantID, itemID uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", tenantID, itemID).
		First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateQuantity writes quantity only when the row still carries item.Version.
// A false result means another writer advanced the row first.
func (r *repository) UpdateQuantity(ctx context.Context, item *models.Item, quantity int, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ? AND org_id = ? AND version = ?", item.ID, item.OrgID, item.Version).
		Updates(map[string]any{
			"quantity":       quantity,
			"last_update_at": at,
			"version":        item.Version + 1,
			"updated_at":     at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AppendEntry(ctx context.Context, entry *models.ItemUpdateHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListEntries(ctx context.Context, tenantID, itemID uuid.UUID) ([]models.ItemUpdateHistory, error) {
	var entries []models.ItemUpdateHistory
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND item_id = ?", tenantID, itemID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListReplenishments(ctx context.Context, tenantID uuid.UUID, vendorRef string) ([]models.ItemUpdateHistory, error) {
	var entries []models.ItemUpdateHistory
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND kind = ? AND vendor_ref = ?", tenantID, enums.LedgerEventTypeReplenishment, vendorRef).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
