package model

import "time"

// Input types carry the caller-supplied fields of an add. Pointer fields are
// optional; IsPersonal nil means "personal unless FamilyID is set".

type NewChore struct {
	Title       string      `json:"title" validate:"required,max=200"`
	Description string      `json:"description" validate:"max=2000"`
	DueDate     time.Time   `json:"due_date" validate:"required"`
	Priority    Priority    `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      ChoreStatus `json:"status" validate:"omitempty,oneof=pending completed"`
	AssignedTo  *string     `json:"assigned_to" validate:"omitempty,uuid"`
	IsPersonal  *bool       `json:"is_personal"`
	FamilyID    *string     `json:"family_id" validate:"omitempty,uuid"`
}

type NewGroceryItem struct {
	Name       string  `json:"name" validate:"required,max=200"`
	Quantity   string  `json:"quantity" validate:"max=50"`
	Category   string  `json:"category" validate:"max=50"`
	Completed  bool    `json:"completed"`
	IsPersonal *bool   `json:"is_personal"`
	FamilyID   *string `json:"family_id" validate:"omitempty,uuid"`
}

type NewExpense struct {
	Title      string     `json:"title" validate:"required,max=200"`
	Amount     Money      `json:"amount" validate:"gt=0"`
	Category   string     `json:"category" validate:"max=50"`
	Date       *time.Time `json:"date"`
	IsPersonal *bool      `json:"is_personal"`
	FamilyID   *string    `json:"family_id" validate:"omitempty,uuid"`
}

type NewReminder struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	Time        string    `json:"time" validate:"omitempty,datetime=15:04"`
	Priority    Priority  `json:"priority" validate:"omitempty,oneof=low medium high"`
	IsPersonal  *bool     `json:"is_personal"`
	FamilyID    *string   `json:"family_id" validate:"omitempty,uuid"`
}

// Patch types carry a partial update: nil fields are left unchanged.
// Setting IsPersonal to true detaches the row from its family; setting
// FamilyID moves it into that family.

// ChorePatch.AssignedTo set to "" clears the assignee.
type ChorePatch struct {
	Title       *string      `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string      `json:"description" validate:"omitempty,max=2000"`
	DueDate     *time.Time   `json:"due_date"`
	Priority    *Priority    `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      *ChoreStatus `json:"status" validate:"omitempty,oneof=pending completed"`
	AssignedTo  *string      `json:"assigned_to"`
	IsPersonal  *bool        `json:"is_personal"`
	FamilyID    *string      `json:"family_id" validate:"omitempty,uuid"`
}

type GroceryItemPatch struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=200"`
	Quantity   *string `json:"quantity" validate:"omitempty,max=50"`
	Category   *string `json:"category" validate:"omitempty,max=50"`
	Completed  *bool   `json:"completed"`
	IsPersonal *bool   `json:"is_personal"`
	FamilyID   *string `json:"family_id" validate:"omitempty,uuid"`
}

type ExpensePatch struct {
	Title      *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Amount     *Money     `json:"amount" validate:"omitempty,gt=0"`
	Category   *string    `json:"category" validate:"omitempty,max=50"`
	Date       *time.Time `json:"date"`
	IsPersonal *bool      `json:"is_personal"`
	FamilyID   *string    `json:"family_id" validate:"omitempty,uuid"`
}

type ReminderPatch struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	DueDate     *time.Time `json:"due_date"`
	Time        *string    `json:"time" validate:"omitempty,datetime=15:04"`
	Priority    *Priority  `json:"priority" validate:"omitempty,oneof=low medium high"`
	Completed   *bool      `json:"completed"`
	IsPersonal  *bool      `json:"is_personal"`
	FamilyID    *string    `json:"family_id" validate:"omitempty,uuid"`
}
