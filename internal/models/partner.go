package models

import "time"

// Partner represents a fleet partner (car owner) whose vehicles are rented out.
type Partner struct {
	ID          string    `db:"id" json:"id"`
	CompanyName string    `db:"company_name" json:"company_name"`
	ContactName string    `db:"contact_name" json:"contact_name"`
	Email       string    `db:"email" json:"email"`
	Phone       *string   `db:"phone" json:"phone,omitempty"`
	PayoutShare float64   `db:"payout_share" json:"payout_share"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// PartnerFilter captures filtering criteria for listing partners.
type PartnerFilter struct {
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
