package models

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus is the verification state of an account.
type AccountStatus string

const (
	AccountPending  AccountStatus = "PENDING"
	AccountVerified AccountStatus = "VERIFIED"
	AccountBlocked  AccountStatus = "BLOCKED"
)

// Role controls access to admin endpoints.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Account is a registrant identified by phone number.
type Account struct {
	BaseModel
	Phone          string        `gorm:"uniqueIndex;not null" json:"phone"`
	Status         AccountStatus `gorm:"type:varchar(16);not null;default:PENDING" json:"status"`
	Role           Role          `gorm:"type:varchar(16);not null;default:USER" json:"role"`
	OTPCodeHash    *string       `json:"-"`
	OTPExpiry      *time.Time    `json:"-"`
	OTPRequestedAt *time.Time    `json:"-"`
	OTPAttempts    int           `gorm:"not null;default:0" json:"-"`
	RefreshToken   *string       `json:"-"`
}

// IsBlocked reports whether the account reached the terminal BLOCKED state.
func (a *Account) IsBlocked() bool {
	return a.Status == AccountBlocked
}

// ClearCode drops the pending one-time code and resets the attempt counter.
func (a *Account) ClearCode() {
	a.OTPCodeHash = nil
	a.OTPExpiry = nil
	a.OTPAttempts = 0
}

// Caller is the authenticated identity attached to a request.
type Caller struct {
	UserID uuid.UUID
	Role   Role
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (c Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// Address is a delivery address owned by an account.
type Address struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Label      string    `json:"label"`
	Line1      string    `json:"line1"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	IsDefault  bool      `json:"is_default"`
}
