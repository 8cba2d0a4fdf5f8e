package employees

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nightshift/inventory-backend/pkg/db/models"
	"github.com/nightshift/inventory-backend/pkg/enums"
)

// CreateInput captures a new employee. A temporary password is generated when Password is empty.
type CreateInput struct {
	Name       string              `json:"name" validate:"required"`
	Email      string              `json:"email" validate:"required,email"`
	Password   string              `json:"password,omitempty" validate:"omitempty,min=8"`
	Role       string              `json:"role" validate:"required,oneof=ADMIN MANAGER WORKER"`
	Department *string             `json:"department,omitempty"`
	Phone      *string             `json:"phone,omitempty"`
	Location   *string             `json:"location,omitempty"`
	Experience *int                `json:"experience,omitempty" validate:"omitempty,gte=0"`
	Salary     decimal.NullDecimal `json:"salary"`
	HireDate   *time.Time          `json:"hire_date,omitempty"`
	Manager    *string             `json:"manager,omitempty"`
	ManagerID  *string             `json:"manager_id,omitempty"`
	Skills     []string            `json:"skills,omitempty"`
}

// UpdateInput overwrites the non-nil fields.
type UpdateInput struct {
	Name       *string              `json:"name,omitempty" validate:"omitempty,min=1"`
	Email      *string              `json:"email,omitempty" validate:"omitempty,email"`
	Role       *string              `json:"role,omitempty" validate:"omitempty,oneof=ADMIN MANAGER WORKER"`
	Status     *string              `json:"status,omitempty" validate:"omitempty,oneof=ACTIVE INACTIVE SUSPENDED"`
	Department *string              `json:"department,omitempty"`
	Phone      *string              `json:"phone,omitempty"`
	Location   *string              `json:"location,omitempty"`
	Experience *int                 `json:"experience,omitempty" validate:"omitempty,gte=0"`
	Salary     *decimal.NullDecimal `json:"salary,omitempty"`
	Attendance *int                 `json:"attendance,omitempty" validate:"omitempty,gte=0"`
	Manager    *string              `json:"manager,omitempty"`
	ManagerID  *string              `json:"manager_id,omitempty"`
	Skills     *[]string            `json:"skills,omitempty"`
}

// ChangePasswordInput rotates the caller's own password.
type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// EmployeeDTO is the public employee representation; the password hash never leaves the service.
type EmployeeDTO struct {
	ID                 uuid.UUID            `json:"id"`
	HumanID            string               `json:"employee_id"`
	OrgName            string               `json:"org_name"`
	Name               string               `json:"name"`
	Email              string               `json:"email"`
	MustChangePassword bool                 `json:"must_change_password"`
	Role               enums.ActorRole      `json:"role"`
	Department         *string              `json:"department,omitempty"`
	Phone              *string              `json:"phone,omitempty"`
	Location           *string              `json:"location,omitempty"`
	Experience         *int                 `json:"experience,omitempty"`
	Salary             decimal.NullDecimal  `json:"salary"`
	Status             enums.EmployeeStatus `json:"status"`
	Attendance         int                  `json:"attendance"`
	HireDate           time.Time            `json:"hire_date"`
	Manager            *string              `json:"manager,omitempty"`
	ManagerID          *string              `json:"manager_id,omitempty"`
	Skills             []string             `json:"skills"`
	Performance        Performance          `json:"performance"`
	CreatedAt          time.Time            `json:"created_at"`
}

// Performance is the review aggregate mirrored onto the employee.
type Performance struct {
	Reviews       int             `json:"reviews"`
	AverageRating decimal.Decimal `json:"average_rating"`
}

// CreatedEmployee carries the generated temporary password exactly once.
type CreatedEmployee struct {
	Employee     EmployeeDTO `json:"employee"`
	TempPassword string      `json:"temp_password,omitempty"`
}

// FromModel maps an employee row into its DTO.
func FromModel(e *models.Employee) EmployeeDTO {
	skills := e.Skills
	if skills == nil {
		skills = []string{}
	}
	return EmployeeDTO{
		ID:                 e.ID,
		HumanID:            e.HumanID,
		OrgName:            e.OrgName,
		Name:               e.Name,
		Email:              e.Email,
		MustChangePassword: e.MustChangePassword,
		Role:               e.Role,
		Department:         e.Department,
		Phone:              e.Phone,
		Location:           e.Location,
		Experience:         e.Experience,
		Salary:             e.Salary,
		Status:             e.Status,
		Attendance:         e.Attendance,
		HireDate:           e.HireDate,
		Manager:            e.Manager,
		ManagerID:          e.ManagerID,
		Skills:             skills,
		Performance:        Performance{Reviews: e.ReviewCount, AverageRating: e.AverageRating},
		CreatedAt:          e.CreatedAt,
	}
}
