package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nightshift/inventory-backend/pkg/enums"
)

// SequenceCounter holds the last issued human id suffix per tenant and entity type.
type SequenceCounter struct {
	TenantID   uuid.UUID        `gorm:"column:tenant_id;type:uuid;primaryKey"`
	EntityType enums.EntityType `gorm:"column:entity_type;type:text;primaryKey"`
	LastValue  int64            `gorm:"column:last_value;not null;default:0"`
	Version    int64            `gorm:"column:version;not null;default:0"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
