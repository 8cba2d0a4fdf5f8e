package vendors

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nightshift/inventory-backend/pkg/db/models"
)

// CreateInput captures a new vendor.
type CreateInput struct {
	Name           string   `json:"name" validate:"required"`
	Email          string   `json:"email" validate:"required,email"`
	Phone          string   `json:"phone" validate:"required,min=5"`
	GSTNo          *string  `json:"gst_no,omitempty"`
	Status         string   `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	Address        *string  `json:"address,omitempty"`
	Specialities   []string `json:"specialities,omitempty"`
	Rating         []int    `json:"rating,omitempty"`
	OnTimeDelivery []int    `json:"on_time_delivery,omitempty"`
	ResponseTime   []int    `json:"response_time,omitempty"`
}

// UpdateInput overwrites the non-nil fields.
type UpdateInput struct {
	Name           *string   `json:"name,omitempty" validate:"omitempty,min=1"`
	Email          *string   `json:"email,omitempty" validate:"omitempty,email"`
	Phone          *string   `json:"phone,omitempty" validate:"omitempty,min=5"`
	GSTNo          *string   `json:"gst_no,omitempty"`
	Status         *string   `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	Address        *string   `json:"address,omitempty"`
	Specialities   *[]string `json:"specialities,omitempty"`
	Rating         *[]int    `json:"rating,omitempty"`
	OnTimeDelivery *[]int    `json:"on_time_delivery,omitempty"`
	ResponseTime   *[]int    `json:"response_time,omitempty"`
}

// RestockDTO is one entry of the vendor replenishment history.
type RestockDTO struct {
	ItemHumanID string          `json:"item_id"`
	ItemName    string          `json:"item_name"`
	Quantity    int             `json:"quantity"`
	Cost        decimal.Decimal `json:"cost"`
	CreatedAt   time.Time       `json:"created_at"`
}

// VendorDTO is the public vendor representation.
type VendorDTO struct {
	ID             uuid.UUID       `json:"id"`
	HumanID        string          `json:"vendor_id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	GSTNo          *string         `json:"gst_no,omitempty"`
	Status         string          `json:"status"`
	Address        *string         `json:"address,omitempty"`
	Specialities   []string        `json:"specialities"`
	TotalRestocks  int             `json:"total_restocks"`
	TotalValue     decimal.Decimal `json:"total_value"`
	Rating         []int           `json:"rating"`
	OnTimeDelivery []int           `json:"on_time_delivery"`
	ResponseTime   []int           `json:"response_time"`
	Restocks       []RestockDTO    `json:"replenishment_history,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func toDTO(v *models.Vendor) VendorDTO {
	dto := VendorDTO{
		ID:             v.ID,
		HumanID:        v.HumanID,
		Name:           v.Name,
		Email:          v.Email,
		Phone:          v.Phone,
		GSTNo:          v.GSTNo,
		Status:         v.Status,
		Address:        v.Address,
		Specialities:   nonNilStrings(v.Specialities),
		TotalRestocks:  v.TotalRestocks,
		TotalValue:     v.TotalValue,
		Rating:         nonNilInts(v.Rating),
		OnTimeDelivery: nonNilInts(v.OnTimeDelivery),
		ResponseTime:   nonNilInts(v.ResponseTime),
		CreatedAt:      v.CreatedAt,
	}
	for _, r := range v.Restocks {
		dto.Restocks = append(dto.Restocks, RestockDTO{
			ItemHumanID: r.ItemHumanID,
			ItemName:    r.ItemName,
			Quantity:    r.Quantity,
			Cost:        r.Cost,
			CreatedAt:   r.CreatedAt,
		})
	}
	return dto
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilInts(values []int) []int {
	if values == nil {
		return []int{}
	}
	return values
}
