package organizations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
)

// Repository persists organizations and their back-reference lists.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, org *models.Organization) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	ExistsByField(ctx context.Context, field, value string, exclude uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	AppendRef(ctx context.Context, ref *models.OrganizationRef) error
	RemoveRef(ctx context.Context, orgID uuid.UUID, kind enums.OrganizationRefKind, refID uuid.UUID) error
	ListRefs(ctx context.Context, orgID uuid.UUID) ([]models.OrganizationRef, error)
	ReplaceRefs(ctx context.Context, orgID uuid.UUID, kind enums.OrganizationRefKind, refIDs []uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, org *models.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

var uniqueFields = map[string]string{
	"email":     "email",
	"mobile_no": "mobile_no",
	"gst_no":    "gst_no",
}

func (r *repository) ExistsByField(ctx context.Context, field, value string, exclude uuid.UUID) (bool, error) {
	column, ok := uniqueFields[field]
	if !ok {
		return false, gorm.ErrInvalidField
	}
	query := r.db.WithContext(ctx).Model(&models.Organization{}).Where(column+" = ?", value)
	if exclude != uuid.Nil {
		query = query.Where("id <> ?", exclude)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Organization{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Organization{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// AppendRef inserts the reference once; repeats are ignored.
func (r *repository) AppendRef(ctx context.Context, ref *models.OrganizationRef) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "org_id"}, {Name: "kind"}, {Name: "ref_id"}},
			DoNothing: true,
		}).
		Create(ref).Error
}

func (r *repository) RemoveRef(ctx context.Context, orgID uuid.UUID, kind enums.OrganizationRefKind, refID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("org_id = ? AND kind = ? AND ref_id = ?", orgID, kind, refID).
		Delete(&models.OrganizationRef{}).Error
}

func (r *repository) ListRefs(ctx context.Context, orgID uuid.UUID) ([]models.OrganizationRef, error) {
	var refs []models.OrganizationRef
	if err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC").
		Find(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

// ReplaceRefs rewrites one list so it holds exactly refIDs.
func (r *repository) ReplaceRefs(ctx context.Context, orgID uuid.UUID, kind enums.OrganizationRefKind, refIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("org_id = ? AND kind = ?", orgID, kind).Delete(&models.OrganizationRef{}).Error; err != nil {
			return err
		}
		if len(refIDs) == 0 {
			return nil
		}
		rows := make([]models.OrganizationRef, 0, len(refIDs))
		for _, id := range refIDs {
			rows = append(rows, models.OrganizationRef{OrgID: orgID, Kind: kind, RefID: id})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}
