package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
)

var errUnknownEntity = errors.New("unknown entity type")

// entityTables maps each entity type to the table holding its human ids.
var entityTables = map[enums.EntityType]string{
	enums.EntityTypeItem:     "items",
	enums.EntityTypeOrder:    "orders",
	enums.EntityTypeCustomer: "customers",
	enums.EntityTypeVendor:   "vendors",
	enums.EntityTypeEmployee: "employees",
}

// Repository persists sequence counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCounter(ctx context.Context, tenantID uuid.UUID, entity enums.EntityType) (*models.SequenceCounter, error)
	InsertCounter(ctx context.Context, counter *models.SequenceCounter) error
	CompareAndSwap(ctx context.Context, tenantID uuid.UUID, entity enums.EntityType, version, value int64) (bool, error)
	ExistingHumanIDs(ctx context.Context, tenantID uuid.UUID, entity enums.EntityType) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a sequence repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindCounter(ctx context.Context, tenantID uuid.UUID, entity enums.EntityType) (*models.SequenceCounter, error) {
	var counter models.SequenceCounter
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND entity_type = ?", tenantID, entity).
		First(&counter).Error
	if err != nil {
		return nil, err
	}
	return &counter, nil
}

func (r *repository) InsertCounter(ctx context.Context, counter *models.SequenceCounter) error {
	return r.db.WithContext(ctx).Create(counter).Error
}

func (r *repository) CompareAndSwap(ctx context.Context, tenantID uuid.UUID, entity enums.EntityType, version, value int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.SequenceCounter{}).
		Where("tenant_id = ? AND entity_type = ? AND version = ?", tenantID, entity, version).
		Updates(map[string]any{
			"last_value": value,
			"version":    version + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ExistingHumanIDs(ctx context.Context, tenantID uuid.UUID, entity enums.EntityType) ([]string, error) {
	table, ok := entityTables[entity]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownEntity, entity)
	}
	var ids []string
	err := r.db.WithContext(ctx).
		Table(table).
		Where("org_id = ? AND human_id LIKE ?", tenantID, entity.Prefix()+"%").
		Pluck("human_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
