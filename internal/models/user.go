package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleSeller  UserRole = "SELLER"
	RoleStudent UserRole = "STUDENT"
)

// User represents an application user stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	UniversityID string     `db:"university_id" json:"university_id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	AvatarPath   *string    `db:"avatar_path" json:"avatar_path,omitempty"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Profile is the public view of a user returned by the profile endpoints.
type Profile struct {
	ID           string   `json:"id"`
	UniversityID string   `json:"university_id"`
	Email        string   `json:"email"`
	FullName     string   `json:"full_name"`
	Phone        *string  `json:"phone,omitempty"`
	AvatarURL    *string  `json:"avatar_url,omitempty"`
	Role         UserRole `json:"role"`
	Shop         *Shop    `json:"shop,omitempty"`
}

// UserFilter narrows the admin account listing to one university.
type UserFilter struct {
	UniversityID string
	Role         *UserRole
	Active       *bool
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
