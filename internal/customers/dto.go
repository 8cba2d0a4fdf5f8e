package customers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
)

// CreateInput captures a new customer.
type CreateInput struct {
	Name                string     `json:"name" validate:"required"`
	Phone               string     `json:"phone" validate:"required,min=5"`
	Email               string     `json:"email" validate:"required,email"`
	Address             *string    `json:"address,omitempty"`
	Status              string     `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	GSTNo               *string    `json:"gst_no,omitempty"`
	SatisfactionLevel   []int      `json:"satisfaction_level,omitempty"`
	PreferredCategories []string   `json:"preferred_categories,omitempty"`
	DateOfJoining       *time.Time `json:"date_of_joining,omitempty"`
}

// UpdateInput overwrites the non-nil fields.
type UpdateInput struct {
	Name                *string   `json:"name,omitempty" validate:"omitempty,min=1"`
	Phone               *string   `json:"phone,omitempty" validate:"omitempty,min=5"`
	Email               *string   `json:"email,omitempty" validate:"omitempty,email"`
	Address             *string   `json:"address,omitempty"`
	Status              *string   `json:"status,omitempty" validate:"omitempty,oneof=active inactive"`
	GSTNo               *string   `json:"gst_no,omitempty"`
	SatisfactionLevel   *[]int    `json:"satisfaction_level,omitempty"`
	PreferredCategories *[]string `json:"preferred_categories,omitempty"`
}

// OrderSummaryDTO is one mirrored order.
type OrderSummaryDTO struct {
	OrderID     string            `json:"order_id"`
	Status      enums.OrderStatus `json:"status"`
	OrderDate   time.Time         `json:"order_date"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
}

// CustomerDTO is the customer read model with derived analytics.
type CustomerDTO struct {
	ID                   uuid.UUID         `json:"id"`
	HumanID              string            `json:"customer_id"`
	Name                 string            `json:"name"`
	Phone                string            `json:"phone"`
	Email                string            `json:"email"`
	Address              *string           `json:"address,omitempty"`
	Status               string            `json:"status"`
	GSTNo                *string           `json:"gst_no,omitempty"`
	SatisfactionLevel    []int             `json:"satisfaction_level"`
	PreferredCategories  []string          `json:"preferred_categories"`
	DateOfJoining        time.Time         `json:"date_of_joining"`
	Orders               []OrderSummaryDTO `json:"orders"`
	TotalOrderValue      decimal.Decimal   `json:"total_order_value"`
	LastOrderDate        *time.Time        `json:"last_order_date,omitempty"`
	LastFiveMonthsOrders []OrderSummaryDTO `json:"last_five_months_orders"`
	OrderFrequency       float64           `json:"order_frequency"`
}

func summaryDTO(s models.CustomerOrderSummary) OrderSummaryDTO {
	return OrderSummaryDTO{
		OrderID:     s.OrderHumanID,
		Status:      s.Status,
		OrderDate:   s.OrderDate,
		TotalAmount: s.TotalAmount,
	}
}

// toDTO derives the analytics fields relative to now.
func toDTO(c *models.Customer, now time.Time) CustomerDTO {
	dto := CustomerDTO{
		ID:                   c.ID,
		HumanID:              c.HumanID,
		Name:                 c.Name,
		Phone:                c.Phone,
		Email:                c.Email,
		Address:              c.Address,
		Status:               c.Status,
		GSTNo:                c.GSTNo,
		SatisfactionLevel:    c.SatisfactionLevel,
		PreferredCategories:  c.PreferredCategories,
		DateOfJoining:        c.DateOfJoining,
		Orders:               make([]OrderSummaryDTO, 0, len(c.Orders)),
		TotalOrderValue:      decimal.Zero,
		LastFiveMonthsOrders: []OrderSummaryDTO{},
	}
	if dto.SatisfactionLevel == nil {
		dto.SatisfactionLevel = []int{}
	}
	if dto.PreferredCategories == nil {
		dto.PreferredCategories = []string{}
	}

	cutoff := now.AddDate(0, -5, 0)
	for _, s := range c.Orders {
		order := summaryDTO(s)
		dto.Orders = append(dto.Orders, order)
		dto.TotalOrderValue = dto.TotalOrderValue.Add(s.TotalAmount)
		if dto.LastOrderDate == nil || s.OrderDate.After(*dto.LastOrderDate) {
			last := s.OrderDate
			dto.LastOrderDate = &last
		}
		if s.OrderDate.After(cutoff) {
			dto.LastFiveMonthsOrders = append(dto.LastFiveMonthsOrders, order)
		}
	}
	dto.OrderFrequency = OrderFrequency(len(c.Orders), c.DateOfJoining, now)
	return dto
}

// OrderFrequency is orders per month since joining, or the raw count inside the first month.
func OrderFrequency(orders int, joined, now time.Time) float64 {
	months := monthsBetween(joined, now)
	if months == 0 {
		return float64(orders)
	}
	return float64(orders) / float64(months)
}

func monthsBetween(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
