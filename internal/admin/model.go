// File: internal/admin/model.go
package admin

import (
	"time"

	"wasa_admin_backend/internal/auth"
	"wasa_admin_backend/internal/common"

	"github.com/google/uuid"
)

// Admin is a console account. Each admin has exactly one role.
type Admin struct {
	common.BaseModel
	Email        string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_admins_email"`
	PasswordHash string     `gorm:"type:varchar(255);not null"`
	FullName     string     `gorm:"type:varchar(150);not null"`
	Phone        *string    `gorm:"type:varchar(30)"`
	Role         string     `gorm:"type:varchar(50);not null;index"`
	IsActive     bool       `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
}

// TableName specifies the table name for the Admin model.
func (Admin) TableName() string {
	return "admins"
}

// ToAccount converts an admin into the identity used by the auth package.
func (a *Admin) ToAccount() *auth.Account {
	return &auth.Account{
		ID:          a.ID,
		Email:       a.Email,
		FullName:    a.FullName,
		Role:        a.Role,
		IsActive:    a.IsActive,
		LastLoginAt: a.LastLoginAt,
	}
}

// --- DTOs ---

// CreateAdminRequest defines the structure for creating an admin.
type CreateAdminRequest struct {
	Email    string  `json:"email" binding:"required,email,max=255"`
	Password string  `json:"password" binding:"required,min=8,max=72"` // bcrypt max is 72 bytes
	FullName string  `json:"full_name" binding:"required,max=150"`
	Phone    *string `json:"phone,omitempty" binding:"omitempty,max=30"`
	Role     string  `json:"role" binding:"required,oneof=super_admin tariff_admin customer_admin meter_reader_admin approval_admin general_admin"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// UpdateAdminRequest carries the fields a super admin may change. Nil fields
// are left untouched.
type UpdateAdminRequest struct {
	FullName *string `json:"full_name,omitempty" binding:"omitempty,min=1,max=150"`
	Phone    *string `json:"phone,omitempty" binding:"omitempty,max=30"`
	Role     *string `json:"role,omitempty" binding:"omitempty,oneof=super_admin tariff_admin customer_admin meter_reader_admin approval_admin general_admin"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// ChangePasswordRequest is used by an admin to change their own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// ListQuery filters the admin list.
type ListQuery struct {
	common.PaginationQuery
	Role     string
	IsActive *bool
	Search   string
}

// AdminResponse defines the structure for admin data sent in API responses.
type AdminResponse struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Phone       *string    `json:"phone,omitempty"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ResetPasswordResponse carries a generated password. It is shown once.
type ResetPasswordResponse struct {
	AdminID           uuid.UUID `json:"admin_id"`
	TemporaryPassword string    `json:"temporary_password"`
}

// ToAdminResponse converts an Admin model to an AdminResponse DTO.
func ToAdminResponse(a *Admin) AdminResponse {
	return AdminResponse{
		ID:          a.ID,
		Email:       a.Email,
		FullName:    a.FullName,
		Phone:       a.Phone,
		Role:        a.Role,
		IsActive:    a.IsActive,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
