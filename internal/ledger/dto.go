package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
)

// ReplenishInput describes stock arriving for an item, optionally attributed to a vendor.
type ReplenishInput struct {
	ItemID     uuid.UUID
	Quantity   int
	Cost       decimal.Decimal
	VendorRef  string
	VendorName string
}

// Entry is the audit view of one quantity mutation.
type Entry struct {
	ID              uuid.UUID             `json:"id"`
	ItemID          uuid.UUID             `json:"item_id"`
	ItemHumanID     string                `json:"item_human_id,omitempty"`
	ItemName        string                `json:"item_name,omitempty"`
	Kind            enums.LedgerEventType `json:"kind"`
	Requested       int                   `json:"requested,omitempty"`
	QuantityUpdated int                   `json:"quantity_updated"`
	QuantityAfter   int                   `json:"quantity_after"`
	Clamped         bool                  `json:"clamped,omitempty"`
	OrderRef        *string               `json:"order_ref,omitempty"`
	VendorRef       *string               `json:"vendor_ref,omitempty"`
	VendorName      *string               `json:"vendor_name,omitempty"`
	Cost            decimal.Decimal       `json:"cost"`
	CreatedAt       time.Time             `json:"created_at"`
}

func entryFromModel(row models.ItemUpdateHistory) Entry {
	return Entry{
		ID:              row.ID,
		ItemID:          row.ItemID,
		ItemHumanID:     row.ItemHumanID,
		ItemName:        row.ItemName,
		Kind:            row.Kind,
		QuantityUpdated: row.QuantityUpdated,
		QuantityAfter:   row.QuantityAfter,
		OrderRef:        row.OrderRef,
		VendorRef:       row.VendorRef,
		VendorName:      row.VendorName,
		Cost:            row.Cost,
		CreatedAt:       row.CreatedAt,
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
