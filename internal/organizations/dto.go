package organizations

import (
	"time"

	"github.com/google/uuid"

	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
)

// OrganizationDTO is the public organization profile plus its back-reference lists.
type OrganizationDTO struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	MobileNo  string      `json:"mobile_no"`
	Email     string      `json:"email"`
	GSTNo     *string     `json:"gst_no,omitempty"`
	Address   *string     `json:"address,omitempty"`
	Employees []uuid.UUID `json:"employees"`
	Orders    []uuid.UUID `json:"orders"`
	Customers []uuid.UUID `json:"customers"`
	Items     []uuid.UUID `json:"items"`
	Vendors   []uuid.UUID `json:"vendors"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RefLists groups reference ids by kind.
type RefLists map[enums.OrganizationRefKind][]uuid.UUID

// UpdateInput carries the mutable profile fields. Nil fields are left untouched.
type UpdateInput struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1"`
	MobileNo *string `json:"mobile_no,omitempty" validate:"omitempty,min=5"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	GSTNo    *string `json:"gst_no,omitempty"`
	Address  *string `json:"address,omitempty"`
}

func groupRefs(refs []models.OrganizationRef) RefLists {
	lists := RefLists{}
	for _, kind := range enums.OrganizationRefKinds() {
		lists[kind] = []uuid.UUID{}
	}
	for _, ref := range refs {
		lists[ref.Kind] = append(lists[ref.Kind], ref.RefID)
	}
	return lists
}

func toDTO(org *models.Organization, lists RefLists) OrganizationDTO {
	return OrganizationDTO{
		ID:        org.ID,
		Name:      org.Name,
		MobileNo:  org.MobileNo,
		Email:     org.Email,
		GSTNo:     org.GSTNo,
		Address:   org.Address,
		Employees: lists[enums.OrganizationRefEmployee],
		Orders:    lists[enums.OrganizationRefOrder],
		Customers: lists[enums.OrganizationRefCustomer],
		Items:     lists[enums.OrganizationRefItem],
		Vendors:   lists[enums.OrganizationRefVendor],
		CreatedAt: org.CreatedAt,
		UpdatedAt: org.UpdatedAt,
	}
}
