package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nightshift/inventory-backend/pkg/enums"
)

// Employee is a tenant member able to sign in.
type Employee struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrgID              uuid.UUID            `gorm:"column:org_id;type:uuid;not null;uniqueIndex:idx_employees_org_human_id,priority:1"`
	OrgName            string               `gorm:"column:org_name"`
	HumanID            string               `gorm:"column:human_id;not null;uniqueIndex:idx_employees_org_human_id,priority:2"`
	Name               string               `gorm:"column:name;not null"`
	Email              string               `gorm:"column:email;not null;uniqueIndex:idx_employees_email"`
	PasswordHash       string               `gorm:"column:password_hash;not null"`
	MustChangePassword bool                 `gorm:"column:must_change_password;not null;default:true"`
	Role               enums.ActorRole      `gorm:"column:role;type:text;not null;default:'WORKER'"`
	Department         *string              `gorm:"column:department"`
	Phone              *string              `gorm:"column:phone"`
	Location           *string              `gorm:"column:location"`
	Experience         *int                 `gorm:"column:experience"`
	Salary             decimal.NullDecimal  `gorm:"column:salary;type:numeric(14,2)"`
	Status             enums.EmployeeStatus `gorm:"column:status;type:text;not null;default:'ACTIVE'"`
	Attendance         int                  `gorm:"column:attendance;not null;default:0"`
	HireDate           time.Time            `gorm:"column:hire_date;not null"`
	Manager            *string              `gorm:"column:manager"`
	ManagerID          *string              `gorm:"column:manager_id"`
	Skills             []string             `gorm:"column:skills;type:jsonb;serializer:json"`
	ReviewCount        int                  `gorm:"column:review_count;not null;default:0"`
	AverageRating      decimal.Decimal      `gorm:"column:average_rating;type:numeric(3,2);not null;default:0"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (e *Employee) BeforeCreate(*gorm.DB) error {
	assignID(&e.ID)
	if e.HireDate.IsZero() {
		e.HireDate = time.Now().UTC()
	}
	return nil
}

// YearsOfService returns completed years since the hire date.
func (e Employee) YearsOfService(now time.Time) int {
	years := now.Year() - e.HireDate.Year()
	anniversary := e.HireDate.AddDate(years, 0, 0)
	if now.Before(anniversary) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
