package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
)

// LineInput names an item of the tenant and the requested quantity.
type LineInput struct {
	ItemName     string          `json:"name" validate:"required"`
	Quantity     int             `json:"quantity" validate:"gt=0"`
	PriceAtOrder decimal.Decimal `json:"price" validate:"gte=0"`
}

// CreateInput captures a new order. TotalAmount defaults to the sum of the line prices.
type CreateInput struct {
	CustomerRef  string           `json:"customer_id" validate:"required"`
	EmployeeRef  string           `json:"employee_id,omitempty"`
	EmployeeName string           `json:"employee_name,omitempty"`
	Items        []LineInput      `json:"items" validate:"dive"`
	TotalAmount  *decimal.Decimal `json:"total_amount,omitempty" validate:"omitempty,gte=0"`
	Deadline     *time.Time       `json:"deadline,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
}

// UpdateInput overwrites the non-nil fields. A non-nil Items fully replaces the line items.
type UpdateInput struct {
	CustomerRef  *string          `json:"customer_id,omitempty" validate:"omitempty,min=1"`
	EmployeeRef  *string          `json:"employee_id,omitempty"`
	EmployeeName *string          `json:"employee_name,omitempty"`
	Items        *[]LineInput     `json:"items,omitempty" validate:"omitempty,dive"`
	TotalAmount  *decimal.Decimal `json:"total_amount,omitempty" validate:"omitempty,gte=0"`
	Status       *string          `json:"status,omitempty"`
	Deadline     *time.Time       `json:"deadline,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
}

// LineDTO is one line item of an order.
type LineDTO struct {
	ItemRef         string          `json:"item_id"`
	ItemName        string          `json:"name"`
	Quantity        int             `json:"quantity"`
	AppliedQuantity int             `json:"applied_quantity"`
	PriceAtOrder    decimal.Decimal `json:"price"`
}

// OrderDTO is the public order representation.
type OrderDTO struct {
	ID           uuid.UUID         `json:"id"`
	HumanID      string            `json:"order_id"`
	CustomerRef  string            `json:"customer_id"`
	CustomerName string            `json:"customer_name"`
	EmployeeRef  string            `json:"employee_id,omitempty"`
	EmployeeName string            `json:"employee_name,omitempty"`
	Items        []LineDTO         `json:"items"`
	TotalAmount  decimal.Decimal   `json:"total_amount"`
	Status       enums.OrderStatus `json:"status"`
	OrderDate    time.Time         `json:"order_date"`
	Deadline     *time.Time        `json:"deadline,omitempty"`
	Notes        *string           `json:"notes,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

func toDTO(order *models.Order) OrderDTO {
	lines := make([]LineDTO, 0, len(order.Items))
	for _, line := range order.Items {
		lines = append(lines, LineDTO{
			ItemRef:         line.ItemRef,
			ItemName:        line.ItemName,
			Quantity:        line.Quantity,
			AppliedQuantity: line.AppliedQuantity,
			PriceAtOrder:    line.PriceAtOrder,
		})
	}
	return OrderDTO{
		ID:           order.ID,
		HumanID:      order.HumanID,
		CustomerRef:  order.CustomerRef,
		CustomerName: order.CustomerName,
		EmployeeRef:  order.EmployeeRef,
		EmployeeName: order.EmployeeName,
		Items:        lines,
		TotalAmount:  order.TotalAmount,
		Status:       order.Status,
		OrderDate:    order.OrderDate,
		Deadline:     order.Deadline,
		Notes:        order.Notes,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
}

// lineTotal sums price * quantity over the lines.
func lineTotal(lines []LineInput) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.PriceAtOrder.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return total
}
