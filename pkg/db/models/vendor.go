package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Vendor supplies items. Restocks and the rolling totals are a projection of replenishment entries.
type Vendor struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrgID          uuid.UUID       `gorm:"column:org_id;type:uuid;not null;uniqueIndex:idx_vendors_org_human_id,priority:1;uniqueIndex:idx_vendors_org_email,priority:1;uniqueIndex:idx_vendors_org_phone,priority:1;uniqueIndex:idx_vendors_org_gst,priority:1"`
	HumanID        string          `gorm:"column:human_id;not null;uniqueIndex:idx_vendors_org_human_id,priority:2"`
	Name           string          `gorm:"column:name;not null"`
	Email          string          `gorm:"column:email;not null;uniqueIndex:idx_vendors_org_email,priority:2"`
	Phone          string          `gorm:"column:phone;not null;uniqueIndex:idx_vendors_org_phone,priority:2"`
	GSTNo          *string         `gorm:"column:gst_no;uniqueIndex:idx_vendors_org_gst,priority:2"`
	Status         string          `gorm:"column:status;not null;default:'active'"`
	Address        *string         `gorm:"column:address"`
	Specialities   []string        `gorm:"column:specialities;type:jsonb;serializer:json"`
	TotalRestocks  int             `gorm:"column:total_restocks;not null;default:0"`
	TotalValue     decimal.Decimal `gorm:"column:total_value;type:numeric(14,2);not null;default:0"`
	Rating         []int           `gorm:"column:rating;type:jsonb;serializer:json"`
	OnTimeDelivery []int           `gorm:"column:on_time_delivery;type:jsonb;serializer:json"`
	ResponseTime   []int           `gorm:"column:response_time;type:jsonb;serializer:json"`
	Restocks       []VendorRestock `gorm:"foreignKey:VendorID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *Vendor) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}

// VendorRestock is a snapshot of one replenishment attributed to a vendor.
type VendorRestock struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendorID    uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index:idx_vendor_restocks_vendor"`
	OrgID       uuid.UUID       `gorm:"column:org_id;type:uuid;not null"`
	ItemHumanID string          `gorm:"column:item_human_id;not null"`
	ItemName    string          `gorm:"column:item_name;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	Cost        decimal.Decimal `gorm:"column:cost;type:numeric(14,2);not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (r *VendorRestock) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
