package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/pkg/enums"
)

// Order is the authoritative record of a customer order.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrgID        uuid.UUID         `gorm:"column:org_id;type:uuid;not null;uniqueIndex:idx_orders_org_human_id,priority:1"`
	HumanID      string            `gorm:"column:human_id;not null;uniqueIndex:idx_orders_org_human_id,priority:2"`
	CustomerRef  string            `gorm:"column:customer_ref;not null;index:idx_orders_customer"`
	CustomerName string            `gorm:"column:customer_name"`
	EmployeeRef  string            `gorm:"column:employee_ref"`
	EmployeeName string            `gorm:"column:employee_name"`
	TotalAmount  decimal.Decimal   `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
	Status       enums.OrderStatus `gorm:"column:status;type:text;not null;default:'PENDING'"`
	OrderDate    time.Time         `gorm:"column:order_date;not null"`
	Deadline     *time.Time        `gorm:"column:deadline"`
	Notes        *string           `gorm:"column:notes"`
	Items        []OrderLineItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// OrderLineItem snapshots an item on an order. AppliedQuantity is what the ledger actually deducted.
type OrderLineItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index:idx_order_line_items_order"`
	Position        int             `gorm:"column:position;not null"`
	ItemRef         string          `gorm:"column:item_ref"`
	ItemName        string          `gorm:"column:item_name;not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	PriceAtOrder    decimal.Decimal `gorm:"column:price_at_order;type:numeric(14,2);not null;default:0"`
	AppliedQuantity int             `gorm:"column:applied_quantity;not null;default:0"`
}

func (l *OrderLineItem) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}
