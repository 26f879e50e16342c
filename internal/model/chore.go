package model

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type ChoreStatus string

const (
	ChoreStatusPending   ChoreStatus = "pending"
	ChoreStatusCompleted ChoreStatus = "completed"
)

type Chore struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	DueDate     time.Time   `json:"due_date"`
	Priority    Priority    `json:"priority"`
	Status      ChoreStatus `json:"status"`
	IsPersonal  bool        `json:"is_personal"`
	FamilyID    *string     `json:"family_id,omitempty"`
	AssignedTo  *string     `json:"assigned_to,omitempty"`
	UserID      string      `json:"user_id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (c Chore) Completed() bool {
	return c.Status == ChoreStatusCompleted
}
