package model

import "time"

type GroceryItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Quantity   string    `json:"quantity"`
	Category   string    `json:"category"`
	Completed  bool      `json:"completed"`
	IsPersonal bool      `json:"is_personal"`
	FamilyID   *string   `json:"family_id,omitempty"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
