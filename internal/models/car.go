package models

import "time"

// Car represents a rentable fleet unit.
type Car struct {
	ID        string    `db:"id" json:"id"`
	PartnerID *string   `db:"partner_id" json:"partner_id,omitempty"`
	Plate     string    `db:"plate" json:"plate"`
	Make      string    `db:"make" json:"make"`
	Model     string    `db:"model" json:"model"`
	Year      int       `db:"year" json:"year"`
	DailyRate float64   `db:"daily_rate" json:"daily_rate"`
	Available bool      `db:"available" json:"available"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CarFilter captures filtering criteria for listing cars.
type CarFilter struct {
	PartnerID string
	Available *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
