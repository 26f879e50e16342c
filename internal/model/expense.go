package model

import "time"

type Expense struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Amount     Money     `json:"amount"`
	Category   string    `json:"category"`
	Date       time.Time `json:"date"`
	IsPersonal bool      `json:"is_personal"`
	FamilyID   *string   `json:"family_id,omitempty"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CategoryTotal is the sum of expenses in one category.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    Money  `json:"total"`
	Count    int    `json:"count"`
}
