package enums

import "fmt"

// OrganizationRefKind labels a back-reference held by an organization.
type OrganizationRefKind string

const (
	OrganizationRefEmployee OrganizationRefKind = "employee"
	OrganizationRefOrder    OrganizationRefKind = "order"
	OrganizationRefCustomer OrganizationRefKind = "customer"
	OrganizationRefItem     OrganizationRefKind = "item"
	OrganizationRefVendor   OrganizationRefKind = "vendor"
)

var validOrganizationRefKinds = []OrganizationRefKind{
	OrganizationRefEmployee,
	OrganizationRefOrder,
	OrganizationRefCustomer,
	OrganizationRefItem,
	OrganizationRefVendor,
}

func (k OrganizationRefKind) String() string {
	return string(k)
}

func (k OrganizationRefKind) IsValid() bool {
	for _, candidate := range validOrganizationRefKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// OrganizationRefKinds returns all kinds in declaration order.
func OrganizationRefKinds() []OrganizationRefKind {
	out := make([]OrganizationRefKind, len(validOrganizationRefKinds))
	copy(out, validOrganizationRefKinds)
	return out
}

// ParseOrganizationRefKind converts raw input into an OrganizationRefKind.
func ParseOrganizationRefKind(value string) (OrganizationRefKind, error) {
	for _, candidate := range validOrganizationRefKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid organization ref kind %q", value)
}
