package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/pkg/enums"
)

// Organization is the tenant root.
type Organization struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	MobileNo  string    `gorm:"column:mobile_no;not null;uniqueIndex:idx_organizations_mobile_no"`
	Email     string    `gorm:"column:email;not null;uniqueIndex:idx_organizations_email"`
	GSTNo     *string   `gorm:"column:gst_no;uniqueIndex:idx_organizations_gst_no"`
	Address   *string   `gorm:"column:address"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Organization) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// OrganizationRef is one entry of an organization's back-reference lists.
type OrganizationRef struct {
	ID        uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrgID     uuid.UUID                 `gorm:"column:org_id;type:uuid;not null;uniqueIndex:idx_organization_refs_unique,priority:1"`
	Kind      enums.OrganizationRefKind `gorm:"column:kind;type:text;not null;uniqueIndex:idx_organization_refs_unique,priority:2"`
	RefID     uuid.UUID                 `gorm:"column:ref_id;type:uuid;not null;uniqueIndex:idx_organization_refs_unique,priority:3"`
	CreatedAt time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (r *OrganizationRef) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
