package models

import "time"

// Category partitions todos. The set is fixed and shared with every client.
type Category string

const (
	CategoryRuofei Category = "Ruofei"
	CategoryRuiqi  Category = "Ruiqi"
	CategoryFamily Category = "Family"

	DefaultCategory = CategoryFamily
)

// Categories lists the valid categories in display order.
var Categories = []Category{CategoryRuofei, CategoryRuiqi, CategoryFamily}

// Valid reports whether c is one of Categories. Matching is case-sensitive.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Todo represents a todo item.
type Todo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Event actions.
const (
	ActionCreated = "created"
	ActionToggled = "toggled"
	ActionRenamed = "renamed"
	ActionDeleted = "deleted"
)

// TodoEvent is published after a mutation has been committed. Todo is nil
// for deletions.
type TodoEvent struct {
	Action     string    `json:"action"`
	ID         int64     `json:"id"`
	Todo       *Todo     `json:"todo,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
