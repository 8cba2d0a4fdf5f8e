package employees

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/pkg/db/models"
)

// Repository persists employees.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, employee *models.Employee) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Employee, error)
	FindByEmail(ctx context.Context, email string) (*models.Employee, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]models.Employee, error)
	EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	OrganizationName(ctx context.Context, tenantID uuid.UUID) (string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the employee repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, employee *models.Employee) error {
	return r.db.WithContext(ctx).Create(employee).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", tenantID, id).
		First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

// FindByEmail looks the employee up across tenants; emails are the login key.
func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.WithContext(ctx).
		Where("email = ?", normalizeEmail(email)).
		First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *repository) List(ctx context.Context, tenantID uuid.UUID) ([]models.Employee, error) {
	var employees []models.Employee
	if err := r.db.WithContext(ctx).
		Where("org_id = ?", tenantID).
		Order("human_id ASC").
		Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

func (r *repository) EmailTaken(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Employee{}).Where("email = ?", normalizeEmail(email))
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
		Model(&models.Employee{}).
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
	res := r.db.WithContext(ctx).Where("org_id = ? AND id = ?", tenantID, id).Delete(&models.Employee{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) OrganizationName(ctx context.Context, tenantID uuid.UUID) (string, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).Select("name").First(&org, "id = ?", tenantID).Error; err != nil {
		return "", err
	}
	return org.Name, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
