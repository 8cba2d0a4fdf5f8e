package items

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nightshift/inventory-backend/pkg/db/models"
)

// CreateInput captures a new item and its opening stock.
type CreateInput struct {
	Name      string          `json:"name" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gte=0"`
	Threshold *int            `json:"threshold,omitempty" validate:"omitempty,gte=0"`
	Image     *string         `json:"image,omitempty"`
	VendorRef string          `json:"vendor_id,omitempty"`
	Cost      decimal.Decimal `json:"cost" validate:"gte=0"`
}

// UpdateInput overwrites metadata; AddQuantity books a replenishment.
type UpdateInput struct {
	Name        *string         `json:"name,omitempty" validate:"omitempty,min=1"`
	Threshold   *int            `json:"threshold,omitempty" validate:"omitempty,gte=0"`
	Image       *string         `json:"image,omitempty"`
	AddQuantity *int            `json:"add_quantity,omitempty" validate:"omitempty,gt=0"`
	VendorRef   string          `json:"vendor_id,omitempty"`
	Cost        decimal.Decimal `json:"cost" validate:"gte=0"`
}

// RestockInput is a manual replenishment against a known vendor.
type RestockInput struct {
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	VendorRef string          `json:"vendor_id" validate:"required"`
	Cost      decimal.Decimal `json:"cost" validate:"gte=0"`
}

// ItemDTO is the public item representation.
type ItemDTO struct {
	ID           uuid.UUID `json:"id"`
	HumanID      string    `json:"item_id"`
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	Threshold    int       `json:"threshold"`
	LowStock     bool      `json:"low_stock"`
	Image        *string   `json:"image,omitempty"`
	LastUpdateAt time.Time `json:"last_update"`
	CreatedAt    time.Time `json:"created_at"`
}

// ItemList wraps a page of items plus the next page cursor.
type ItemList struct {
	Items      []ItemDTO `json:"items"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

func toDTO(item *models.Item) ItemDTO {
	return ItemDTO{
		ID:           item.ID,
		HumanID:      item.HumanID,
		Name:         item.Name,
		Quantity:     item.Quantity,
		Threshold:    item.Threshold,
		LowStock:     item.LowStock(),
		Image:        item.Image,
		LastUpdateAt: item.LastUpdateAt,
		CreatedAt:    item.CreatedAt,
	}
}
