package model

import "time"

type Role string

const (
	RoleMember    Role = "Member"
	RoleLibrarian Role = "Librarian"
	RoleAdmin     Role = "Admin"
)

func (r Role) Staff() bool {
	return r == RoleLibrarian || r == RoleAdmin
}

type AccountStatus string

const (
	AccountActive   AccountStatus = "Active"
	AccountInactive AccountStatus = "Inactive"
)

type User struct {
	ID           string        `json:"id" db:"id"`
	Name         string        `json:"name" db:"name"`
	Email        string        `json:"email" db:"email"`
	PasswordHash string        `json:"-" db:"password_hash"`
	Role         Role          `json:"role" db:"role"`
	Status       AccountStatus `json:"status" db:"status"`
	CreatedAt    time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time     `json:"updatedAt" db:"updated_at"`
}

func (u User) Active() bool {
	return u.Status == AccountActive
}

type CreateUserRequest struct {
	Name     string        `json:"name" validate:"required,max=256"`
	Email    string        `json:"email" validate:"required,email"`
	Password string        `json:"password" validate:"required,min=6,max=72"`
	Role     Role          `json:"role" validate:"omitempty,oneof=Member Librarian Admin"`
	Status   AccountStatus `json:"status" validate:"omitempty,oneof=Active Inactive"`
}

type UserPatch struct {
	Name     *string        `json:"name" validate:"omitempty,min=1,max=256"`
	Email    *string        `json:"email" validate:"omitempty,email"`
	Password *string        `json:"password" validate:"omitempty,min=6,max=72"`
	Role     *Role          `json:"role" validate:"omitempty,oneof=Member Librarian Admin"`
	Status   *AccountStatus `json:"status" validate:"omitempty,oneof=Active Inactive"`

	// PasswordHash is set by the service once Password has been hashed.
	PasswordHash *string `json:"-" validate:"-"`
}

func (p UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Status != nil {
		u.Status = *p.Status
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Success     bool   `json:"success"`
	User        User   `json:"user"`
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}
