package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/pkg/enums"
)

// Customer buys from the tenant. Orders is a read-optimized mirror of the orders table.
type Customer struct {
	ID                  uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrgID               uuid.UUID              `gorm:"column:org_id;type:uuid;not null;uniqueIndex:idx_customers_org_human_id,priority:1;uniqueIndex:idx_customers_org_email,priority:1;uniqueIndex:idx_customers_org_phone,priority:1;uniqueIndex:idx_customers_org_gst,priority:1"`
	HumanID             string                 `gorm:"column:human_id;not null;uniqueIndex:idx_customers_org_human_id,priority:2"`
	Name                string                 `gorm:"column:name;not null"`
	Phone               string                 `gorm:"column:phone;not null;uniqueIndex:idx_customers_org_phone,priority:2"`
	Email               string                 `gorm:"column:email;not null;uniqueIndex:idx_customers_org_email,priority:2"`
	Address             *string                `gorm:"column:address"`
	Status              string                 `gorm:"column:status;not null;default:'active'"`
	GSTNo               *string                `gorm:"column:gst_no;uniqueIndex:idx_customers_org_gst,priority:2"`
	SatisfactionLevel   []int                  `gorm:"column:satisfaction_level;type:jsonb;serializer:json"`
	PreferredCategories []string               `gorm:"column:preferred_categories;type:jsonb;serializer:json"`
	DateOfJoining       time.Time              `gorm:"column:date_of_joining;not null"`
	Orders              []CustomerOrderSummary `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	assignID(&c.ID)
	if c.DateOfJoining.IsZero() {
		c.DateOfJoining = time.Now().UTC()
	}
	return nil
}

// CustomerOrderSummary mirrors one live order on the customer record.
type CustomerOrderSummary struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID   uuid.UUID         `gorm:"column:customer_id;type:uuid;not null;uniqueIndex:idx_customer_order_summaries_unique,priority:1"`
	OrgID        uuid.UUID         `gorm:"column:org_id;type:uuid;not null"`
	OrderHumanID string            `gorm:"column:order_human_id;not null;uniqueIndex:idx_customer_order_summaries_unique,priority:2"`
	Status       enums.OrderStatus `gorm:"column:status;type:text;not null"`
	OrderDate    time.Time         `gorm:"column:order_date;not null"`
	TotalAmount  decimal.Decimal   `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
}

func (s *CustomerOrderSummary) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}
