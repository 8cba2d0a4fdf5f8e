package reviews

import (
	"time"

	"github.com/google/uuid"

	"github.com/nightshift/inventory-backend/pkg/db/models"
)

// CreateInput rates an employee of the caller's tenant by employee id.
type CreateInput struct {
	EmployeeRef string  `json:"employee_id" validate:"required"`
	Rating      int     `json:"rating" validate:"min=1,max=5"`
	Comments    *string `json:"comments,omitempty"`
}

// UpdateInput overwrites the non-nil fields.
type UpdateInput struct {
	Rating   *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comments *string `json:"comments,omitempty"`
}

// ReviewDTO is the public review representation.
type ReviewDTO struct {
	ID           uuid.UUID `json:"id"`
	EmployeeRef  string    `json:"employee_id"`
	ReviewerRef  string    `json:"reviewer_id"`
	ReviewerName string    `json:"reviewer_name"`
	Rating       int       `json:"rating"`
	Comments     *string   `json:"comments,omitempty"`
	ReviewDate   time.Time `json:"review_date"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toDTO(r *models.PerformanceReview) ReviewDTO {
	return ReviewDTO{
		ID:           r.ID,
		EmployeeRef:  r.EmployeeHumanID,
		ReviewerRef:  r.ReviewerHumanID,
		ReviewerName: r.ReviewerName,
		Rating:       r.Rating,
		Comments:     r.Comments,
		ReviewDate:   r.ReviewDate,
		UpdatedAt:    r.UpdatedAt,
	}
}

func toDTOs(rows []models.PerformanceReview) []ReviewDTO {
	out := make([]ReviewDTO, 0, len(rows))
	for i := range rows {
		out = append(out, toDTO(&rows[i]))
	}
	return out
}
