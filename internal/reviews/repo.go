package reviews

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/pkg/db/models"
)

// Repository persists performance reviews and the aggregate mirrored onto employees.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, review *models.PerformanceReview) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.PerformanceReview, error)
	ListByEmployee(ctx context.Context, tenantID uuid.UUID, employeeHumanID string) ([]models.PerformanceReview, error)
	ListByReviewer(ctx context.Context, tenantID uuid.UUID, reviewerHumanID string) ([]models.PerformanceReview, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	FindEmployee(ctx context.Context, tenantID, id uuid.UUID) (*models.Employee, error)
	FindEmployeeByHumanID(ctx context.Context, tenantID uuid.UUID, humanID string) (*models.Employee, error)
	RefreshEmployee(ctx context.Context, tenantID, employeeID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the review repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, review *models.PerformanceReview) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *repository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.PerformanceReview, error) {
	var review models.PerformanceReview
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", tenantID, id).
		First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *repository) ListByEmployee(ctx context.Context, tenantID uuid.UUID, employeeHumanID string) ([]models.PerformanceReview, error) {
	return r.list(ctx, "org_id = ? AND employee_human_id = ?", tenantID, employeeHumanID)
}

func (r *repository) ListByReviewer(ctx context.Context, tenantID uuid.UUID, reviewerHumanID string) ([]models.PerformanceReview, error) {
	return r.list(ctx, "org_id = ? AND reviewer_human_id = ?", tenantID, reviewerHumanID)
}

func (r *repository) list(ctx context.Context, where string, args ...any) ([]models.PerformanceReview, error) {
	var rows []models.PerformanceReview
	if err := r.db.WithContext(ctx).
		Where(where, args...).
		Order("review_date DESC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, tenantID, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.PerformanceReview{}).
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
	res := r.db.WithContext(ctx).Where("org_id = ? AND id = ?", tenantID, id).Delete(&models.PerformanceReview{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindEmployee(ctx context.Context, tenantID, id uuid.UUID) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", tenantID, id).
		First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *repository) FindEmployeeByHumanID(ctx context.Context, tenantID uuid.UUID, humanID string) (*models.Employee, error) {
	var employee models.Employee
	if err := r.db.WithContext(ctx).
		Where("org_id = ? AND human_id = ?", tenantID, humanID).
		First(&employee).Error; err != nil {
		return nil, err
	}
	return &employee, nil
}

// RefreshEmployee recomputes the employee's review count and average rating from stored reviews.
func (r *repository) RefreshEmployee(ctx context.Context, tenantID, employeeID uuid.UUID) error {
	var agg struct {
		Reviews int64
		Total   int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PerformanceReview{}).
		Select("COUNT(*) AS reviews, COALESCE(SUM(rating), 0) AS total").
		Where("org_id = ? AND employee_id = ?", tenantID, employeeID).
		Scan(&agg).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.Employee{}).
		Where("org_id = ? AND id = ?", tenantID, employeeID).
		Updates(map[string]any{
			"review_count":   agg.Reviews,
			"average_rating": averageRating(agg.Reviews, agg.Total),
		}).Error
}

func averageRating(count, total int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(total).DivRound(decimal.NewFromInt(count), 2)
}
