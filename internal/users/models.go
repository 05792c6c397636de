package users

import (
	"time"

	"github.com/google/uuid"

	"rental-portal/admin-portal-backend/internal/auth"
)

// Status is the account verification status.
type Status string

const (
	StatusVerified Status = "VERIFIED"
	StatusPending  Status = "PENDING"
	StatusRejected Status = "REJECTED"
	StatusBlocked  Status = "BLOCKED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusVerified, StatusPending, StatusRejected, StatusBlocked:
		return true
	}
	return false
}

func validRole(r auth.Role) bool {
	switch r {
	case auth.RoleSuperAdmin, auth.RoleAdmin, auth.RolePropertyManager, auth.RoleCustomer:
		return true
	}
	return false
}

// User is a marketplace account. The password hash is never serialised.
type User struct {
	ID                 uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	FirstName          string     `json:"firstName" gorm:"not null"`
	LastName           string     `json:"lastName" gorm:"not null"`
	Email              string     `json:"email" gorm:"uniqueIndex;not null"`
	Password           string     `json:"-" gorm:"not null"`
	Phone              string     `json:"phone,omitempty"`
	Role               auth.Role  `json:"role" gorm:"type:varchar(20);index;not null;default:CUSTOMER"`
	VerificationStatus Status     `json:"verificationStatus" gorm:"type:varchar(20);index;not null;default:PENDING"`
	BlockedAt          *time.Time `json:"blockedAt,omitempty"`
	BlockedBy          string     `json:"blockedBy,omitempty"`
	BlockReason        string     `json:"blockReason,omitempty"`
	PasswordResetAt    *time.Time `json:"passwordResetAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt" gorm:"index"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Stats is the flat summary shown on the users page.
type Stats struct {
	Total            int64 `json:"total"`
	SuperAdmins      int64 `json:"superAdmins"`
	Admins           int64 `json:"admins"`
	PropertyManagers int64 `json:"propertyManagers"`
	Customers        int64 `json:"customers"`
	Verified         int64 `json:"verified"`
	Pending          int64 `json:"pending"`
	Rejected         int64 `json:"rejected"`
	Blocked          int64 `json:"blocked"`
	NewThisMonth     int64 `json:"newThisMonth"`
}

// CreateRequest is the body of POST /admin/users.
type CreateRequest struct {
	FirstName          string    `json:"firstName"`
	LastName           string    `json:"lastName"`
	Email              string    `json:"email"`
	Password           string    `json:"password"`
	Phone              string    `json:"phone"`
	Role               auth.Role `json:"role"`
	VerificationStatus Status    `json:"verificationStatus"`
}

// UpdateRequest is a partial update; nil fields are left alone.
type UpdateRequest struct {
	ID                 string     `json:"id"`
	FirstName          *string    `json:"firstName"`
	LastName           *string    `json:"lastName"`
	Email              *string    `json:"email"`
	Password           *string    `json:"password"`
	Phone              *string    `json:"phone"`
	Role               *auth.Role `json:"role"`
	VerificationStatus *Status    `json:"verificationStatus"`
}

// BlockRequest blocks an account, or restores it when Blocked is false.
type BlockRequest struct {
	Blocked *bool  `json:"blocked"`
	Reason  string `json:"reason"`
}
