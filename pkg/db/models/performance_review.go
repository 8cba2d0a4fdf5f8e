package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinReviewRating = 1
	MaxReviewRating = 5
)

// PerformanceReview is a rating one employee gives another. Human ids are snapshotted so the
// review stays readable after the reviewer leaves.
type PerformanceReview struct {
	ID              uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrgID           uuid.UUID  `gorm:"column:org_id;type:uuid;not null;index:idx_reviews_org_employee,priority:1;index:idx_reviews_org_reviewer,priority:1"`
	EmployeeID      uuid.UUID  `gorm:"column:employee_id;type:uuid;not null"`
	EmployeeHumanID string     `gorm:"column:employee_human_id;not null;index:idx_reviews_org_employee,priority:2"`
	ReviewerID      *uuid.UUID `gorm:"column:reviewer_id;type:uuid"`
	ReviewerHumanID string     `gorm:"column:reviewer_human_id;not null;index:idx_reviews_org_reviewer,priority:2"`
	ReviewerName    string     `gorm:"column:reviewer_name;not null"`
	Rating          int        `gorm:"column:rating;not null"`
	Comments        *string    `gorm:"column:comments"`
	ReviewDate      time.Time  `gorm:"column:review_date;not null"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (PerformanceReview) TableName() string {
	return "performance_reviews"
}

func (r *PerformanceReview) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	if r.ReviewDate.IsZero() {
		r.ReviewDate = time.Now().UTC()
	}
	return nil
}
