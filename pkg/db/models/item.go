package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/pkg/enums"
)

const DefaultItemThreshold = 10

// Item is a stocked product. Quantity only changes through the stock ledger.
type Item struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrgID        uuid.UUID `gorm:"column:org_id;type:uuid;not null;uniqueIndex:idx_items_org_name,priority:1;uniqueIndex:idx_items_org_human_id,priority:1"`
	HumanID      string    `gorm:"column:human_id;not null;uniqueIndex:idx_items_org_human_id,priority:2"`
	Name         string    `gorm:"column:name;not null;uniqueIndex:idx_items_org_name,priority:2"`
	Quantity     int       `gorm:"column:quantity;not null;default:0;check:chk_items_quantity,quantity >= 0"`
	Threshold    int       `gorm:"column:threshold;not null"`
	Image        *string   `gorm:"column:image"`
	LastUpdateAt time.Time `gorm:"column:last_update_at;not null"`
	Version      int64     `gorm:"column:version;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Item) BeforeCreate(*gorm.DB) error {
	assignID(&i.ID)
	if i.LastUpdateAt.IsZero() {
		i.LastUpdateAt = time.Now().UTC()
	}
	return nil
}

// LowStock reports whether the quantity has reached the reorder threshold.
func (i Item) LowStock() bool {
	return i.Quantity <= i.Threshold
}

// ItemUpdateHistory is an immutable audit entry for one quantity mutation. It snapshots the
// item's human id and name so the entry outlives the item.
type ItemUpdateHistory struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	ItemID          uuid.UUID             `gorm:"column:item_id;type:uuid;not null;index:idx_item_history_item"`
	OrgID           uuid.UUID             `gorm:"column:org_id;type:uuid;not null"`
	ItemHumanID     string                `gorm:"column:item_human_id;not null;default:''"`
	ItemName        string                `gorm:"column:item_name;not null;default:''"`
	Kind            enums.LedgerEventType `gorm:"column:kind;type:text;not null"`
	VendorRef       *string               `gorm:"column:vendor_ref"`
	VendorName      *string               `gorm:"column:vendor_name"`
	OrderRef        *string               `gorm:"column:order_ref;index:idx_item_history_order"`
	QuantityUpdated int                   `gorm:"column:quantity_updated;not null"`
	QuantityAfter   int                   `gorm:"column:quantity_after;not null"`
	Cost            decimal.Decimal       `gorm:"column:cost;type:numeric(14,2);not null;default:0"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (ItemUpdateHistory) TableName() string {
	return "item_update_history"
}

func (h *ItemUpdateHistory) BeforeCreate(*gorm.DB) error {
	assignID(&h.ID)
	return nil
}
