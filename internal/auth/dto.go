package auth

import (
	"github.com/nightshift/inventory-backend/internal/employees"
)

// LoginRequest captures the employee credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest signs up an organization together with its admin employee.
type RegisterRequest struct {
	OrganizationName string  `json:"organization_name" validate:"required"`
	MobileNo         string  `json:"mobile_no" validate:"required,min=5"`
	Email            string  `json:"email" validate:"required,email"`
	GSTNo            *string `json:"gst_no,omitempty"`
	Address          *string `json:"address,omitempty"`
	AdminName        string  `json:"admin_name,omitempty"`
	Password         string  `json:"password" validate:"required,min=8"`
}

// OrganizationSummary describes the tenant returned after signup or login.
type OrganizationSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LoginResponse contains the bearer token and the signed-in employee.
type LoginResponse struct {
	AccessToken  string                `json:"access_token"`
	TokenType    string                `json:"token_type"`
	ExpiresIn    int                   `json:"expires_in"`
	Organization OrganizationSummary   `json:"organization"`
	Employee     employees.EmployeeDTO `json:"employee"`
}
