package enums

import "fmt"

// EntityType names the tenant-scoped records that carry a human readable id.
type EntityType string

const (
	EntityTypeItem     EntityType = "item"
	EntityTypeOrder    EntityType = "order"
	EntityTypeCustomer EntityType = "customer"
	EntityTypeVendor   EntityType = "vendor"
	EntityTypeEmployee EntityType = "employee"
)

var validEntityTypes = []EntityType{
	EntityTypeItem,
	EntityTypeOrder,
	EntityTypeCustomer,
	EntityTypeVendor,
	EntityTypeEmployee,
}

var entityPrefixes = map[EntityType]string{
	EntityTypeItem:     "ITEM-",
	EntityTypeOrder:    "ORD-",
	EntityTypeCustomer: "CUST-",
	EntityTypeVendor:   "VEND-",
	EntityTypeEmployee: "EMP-",
}

func (e EntityType) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EntityType.
func (e EntityType) IsValid() bool {
	for _, candidate := range validEntityTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// Prefix returns the fixed human id prefix, e.g. "ORD-".
func (e EntityType) Prefix() string {
	return entityPrefixes[e]
}

// EntityTypes returns every known entity type in declaration order.
func EntityTypes() []EntityType {
	out := make([]EntityType, len(validEntityTypes))
	copy(out, validEntityTypes)
	return out
}

// ParseEntityType converts raw input into an EntityType.
func ParseEntityType(value string) (EntityType, error) {
	for _, candidate := range validEntityTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity type %q", value)
}
