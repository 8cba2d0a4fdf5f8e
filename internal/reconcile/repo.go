package reconcile

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
)

// Repository reads the authoritative rows that organization references are projected from.
type Repository interface {
	RefIDs(ctx context.Context, tenantID uuid.UUID, kind enums.OrganizationRefKind) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reconcile repository bound to the provided db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) RefIDs(ctx context.Context, tenantID uuid.UUID, kind enums.OrganizationRefKind) ([]uuid.UUID, error) {
	model, err := refSource(kind)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(model).
		Where("org_id = ?", tenantID).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func refSource(kind enums.OrganizationRefKind) (any, error) {
	switch kind {
	case enums.OrganizationRefEmployee:
		return &models.Employee{}, nil
	case enums.OrganizationRefOrder:
		return &models.Order{}, nil
	case enums.OrganizationRefCustomer:
		return &models.Customer{}, nil
	case enums.OrganizationRefItem:
		return &models.Item{}, nil
	case enums.OrganizationRefVendor:
		return &models.Vendor{}, nil
	default:
		return nil, gorm.ErrInvalidField
	}
}
