package models

import "time"

// Shop is a seller storefront created during onboarding.
type Shop struct {
	ID           string    `db:"id" json:"id"`
	OwnerID      string    `db:"owner_id" json:"owner_id"`
	UniversityID string    `db:"university_id" json:"university_id"`
	Name         string    `db:"name" json:"name"`
	NameKey      string    `db:"name_key" json:"-"`
	Description  string    `db:"description" json:"description"`
	Phone        string    `db:"phone" json:"phone"`
	LogoPath     *string   `db:"logo_path" json:"logo_path,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
