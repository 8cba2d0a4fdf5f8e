package vendors

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/pkg/db/models"
)

// Repository persists vendors and their restock history.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, vendor *models.Vendor) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Vendor, error)
	FindByHumanID(ctx context.Context, tenantID uuid.UUID, humanID string) (*models.Vendor, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]models.Vendor, error)
	ExistsByField(ctx context.Context, tenantID uuid.UUID, field, value string, exclude uuid.UUID) (bool, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	AppendRestock(ctx context.Context, restock *models.VendorRestock) error
	IncrementTotals(ctx context.Context, vendorID uuid.UUID, restocks int, value decimal.Decimal) error
	ListRestocks(ctx context.Context, vendorID uuid.UUID) ([]models.VendorRestock, error)
	ReplaceRestocks(ctx context.Context, vendor *models.Vendor, restocks []models.VendorRestock) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the vendor repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, vendor *models.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).
		Preload("Restocks", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("org_id = ? AND id = ?", tenantID, id).
		First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) FindByHumanID(ctx context.Context, tenantID uuid.UUID, humanID string) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND human_id = ?", tenantID, humanID).
		First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID) ([]models.Vendor, error) {
	var vendors []models.Vendor
	if err := r.db.WithContext(ctx).
		Where("org_id = ?", tenantID).
		Order("human_id ASC").
		Find(&vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}

var uniqueColumns = map[string]string{
	"email":  "email",
	"phone":  "phone",
	"gst_no": "gst_no",
}

func (r *repository) ExistsByField(ctx context.Context, tenantID uuid.UUID, field, value string, exclude uuid.UUID) (bool, error) {
	column, ok := uniqueColumns[field]
	if !ok {
		return false, gorm.ErrInvalidField
	}
	query := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("org_id = ? AND "+column+" = ?", tenantID, value)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Update(ctx context.Context, tenantID, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
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

func (r *repository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("vendor_id = ?", id).Delete(&models.VendorRestock{}).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Where("org_id = ? AND id = ?", tenantID, id).Delete(&models.Vendor{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) AppendRestock(ctx context.Context, restock *models.VendorRestock) error {
	return r.db.WithContext(ctx).Create(restock).Error
}

// IncrementTotals applies the rolling totals in a single statement so concurrent restocks never lose updates.
func (r *repository) IncrementTotals(ctx context.Context, vendorID uuid.UUID, restocks int, value decimal.Decimal) error {
	res := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		Updates(map[string]any{
			"total_restocks": gorm.Expr("total_restocks + ?", restocks),
			"total_value":    gorm.Expr("total_value + ?", value),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListRestocks(ctx context.Context, vendorID uuid.UUID) ([]models.VendorRestock, error) {
	var restocks []models.VendorRestock
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at ASC").
		Find(&restocks).Error; err != nil {
		return nil, err
	}
	return restocks, nil
}

// ReplaceRestocks rewrites the restock history and derives the totals from it.
func (r *repository) ReplaceRestocks(ctx context.Context, vendor *models.Vendor, restocks []models.VendorRestock) error {
	total := decimal.Zero
	for _, restock := range restocks {
		total = total.Add(restock.Cost)
	}
	if err := r.db.WithContext(ctx).Where("vendor_id = ?", vendor.ID).Delete(&models.VendorRestock{}).Error; err != nil {
		return err
	}
	if len(restocks) > 0 {
		if err := r.db.WithContext(ctx).Create(&restocks).Error; err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendor.ID).
		Updates(map[string]any{
			"total_restocks": len(restocks),
			"total_value":    total,
		}).Error
}
