package models

import "time"

type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

type User struct {
	BaseModel
	Name         string     `json:"name" gorm:"type:varchar(100);not null"`
	Email        string     `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string     `json:"-" gorm:"type:text;not null"`
	Role         UserRole   `json:"role" gorm:"type:varchar(20);not null;default:'user';index"`
	Status       UserStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

func (u *User) IsActive() bool {
	return u.Status != UserStatusInactive
}

func ValidUserRole(role UserRole) bool {
	return role == UserRoleAdmin || role == UserRoleUser
}

func ValidUserStatus(status UserStatus) bool {
	return status == UserStatusActive || status == UserStatusInactive
}
