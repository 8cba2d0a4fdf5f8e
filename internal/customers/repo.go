package customers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nightshift/inventory-backend/pkg/db/models"
)

// Repository persists customers and their order summaries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Customer, error)
	FindByHumanID(ctx context.Context, tenantID uuid.UUID, humanID string) (*models.Customer, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]models.Customer, error)
	ExistsByField(ctx context.Context, tenantID uuid.UUID, field, value string, exclude uuid.UUID) (bool, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	UpsertSummary(ctx context.Context, summary *models.CustomerOrderSummary) error
	DeleteSummary(ctx context.Context, customerID uuid.UUID, orderHumanID string) error
	ListSummaries(ctx context.Context, customerID uuid.UUID) ([]models.CustomerOrderSummary, error)
	ReplaceSummaries(ctx context.Context, customerID uuid.UUID, summaries []models.CustomerOrderSummary) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the customer repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).
		Preload("Orders", func(db *gorm.DB) *gorm.DB { return db.Order("order_date ASC") }).
		Where("org_id = ? AND id = ?", tenantID, id).
		First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) FindByHumanID(ctx context.Context, tenantID uuid.UUID, humanID string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND human_id = ?", tenantID, humanID).
		First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID) ([]models.Customer, error) {
	var customers []models.Customer
	if err := r.db.WithContext(ctx).
		Preload("Orders").
		Where("org_id = ?", tenantID).
		Order("human_id ASC").
		Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
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
		Model(&models.Customer{}).
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
		Model(&models.Customer{}).
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
	if err := r.db.WithContext(ctx).Where("customer_id = ?", id).Delete(&models.CustomerOrderSummary{}).Error; err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Where("org_id = ? AND id = ?", tenantID, id).Delete(&models.Customer{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpsertSummary keeps at most one summary per (customer, order).
func (r *repository) UpsertSummary(ctx context.Context, summary *models.CustomerOrderSummary) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}, {Name: "order_human_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "order_date", "total_amount"}),
		}).
		Create(summary).Error
}

func (r *repository) DeleteSummary(ctx context.Context, customerID uuid.UUID, orderHumanID string) error {
	return r.db.WithContext(ctx).
		Where("customer_id = ? AND order_human_id = ?", customerID, orderHumanID).
		Delete(&models.CustomerOrderSummary{}).Error
}

func (r *repository) ListSummaries(ctx context.Context, customerID uuid.UUID) ([]models.CustomerOrderSummary, error) {
	var summaries []models.CustomerOrderSummary
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("order_date ASC").
		Find(&summaries).Error; err != nil {
		return nil, err
	}
	return summaries, nil
}

func (r *repository) ReplaceSummaries(ctx context.Context, customerID uuid.UUID, summaries []models.CustomerOrderSummary) error {
	if err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).Delete(&models.CustomerOrderSummary{}).Error; err != nil {
		return err
	}
	if len(summaries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&summaries).Error
}
