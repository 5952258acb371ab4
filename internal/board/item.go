package board

import (
	"encoding/json"
	"fmt"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/starford/corkboard/internal/apperr"
)

func init() {
	// Amounts travel as JSON numbers, matching the stored workspace shape.
	decimal.MarshalJSONWithoutQuotes = true
}

// ItemType is the discriminant of a board item.
type ItemType string

// Item variants.
const (
	TypeNote          ItemType = "NOTE"
	TypeTask          ItemType = "TASK"
	TypeGroup         ItemType = "GROUP"
	TypeExpenseWidget ItemType = "EXPENSE_WIDGET"
)

// Valid reports whether t names a known variant.
func (t ItemType) Valid() bool {
	switch t {
	case TypeNote, TypeTask, TypeGroup, TypeExpenseWidget:
		return true
	}
	return false
}

// Priority of a task.
type Priority string

// Task priorities.
const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return slices.Contains(Priorities, p)
}

// Body is the variant-specific part of an item. The set of implementations
// is closed: Note, Task, Group and ExpenseWidget.
type Body interface {
	Kind() ItemType
	clone() Body
}

// Note is a free-text sticky note.
type Note struct {
	Content string
	Color   string
}

// Task is a to-do card.
type Task struct {
	Title       string
	Description string
	Deadline    string
	Priority    Priority
	Completed   bool
	Assignee    string
}

// Group is a container that other items can join by position.
type Group struct {
	Title string
	Color string
}

// ExpenseWidget tracks a list of expenses, newest first.
type ExpenseWidget struct {
	Title    string
	Expenses []Expense
}

func (Note) Kind() ItemType          { return TypeNote }
func (Task) Kind() ItemType          { return TypeTask }
func (Group) Kind() ItemType         { return TypeGroup }
func (ExpenseWidget) Kind() ItemType { return TypeExpenseWidget }

func (n Note) clone() Body  { return n }
func (t Task) clone() Body  { return t }
func (g Group) clone() Body { return g }
func (w ExpenseWidget) clone() Body {
	w.Expenses = slices.Clone(w.Expenses)
	return w
}

// Expense is a single spending record.
type Expense struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Category    string          `json:"category"`
}

// Validate implements validation.Validatable.
func (e Expense) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ID, validation.Required),
		validation.Field(&e.Amount, validation.By(nonNegative)),
		validation.Field(&e.Date, validation.Date("2006-01-02")),
	)
}

func nonNegative(v any) error {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return fmt.Errorf("must be a decimal")
	}
	if d.IsNegative() {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// Item is one element on the board.
type Item struct {
	ID       string
	Position Position
	Size     Size
	ZIndex   int
	GroupID  string
	Body     Body
}

// Type returns the item's discriminant.
func (it Item) Type() ItemType {
	if it.Body == nil {
		return ""
	}
	return it.Body.Kind()
}

// IsGroup reports whether the item is a GROUP.
func (it Item) IsGroup() bool {
	return it.Type() == TypeGroup
}

// Bounds returns the item's box in world space.
func (it Item) Bounds() Rect {
	return Rect{
		Min: it.Position,
		Max: it.Position.Add(it.Size.Width, it.Size.Height),
	}
}

// Center returns the midpoint of the item's box.
func (it Item) Center() Position {
	return it.Position.Add(it.Size.Width/2, it.Size.Height/2)
}

// Clone returns a deep copy.
func (it Item) Clone() Item {
	if it.Body != nil {
		it.Body = it.Body.clone()
	}
	return it
}

// Validate implements validation.Validatable. It checks the item on its own;
// cross-item rules live in Normalize and the Store.
func (it Item) Validate() error {
	err := validation.ValidateStruct(&it,
		validation.Field(&it.ID, validation.Required),
		validation.Field(&it.Body, validation.Required),
		validation.Field(&it.Size, validation.By(positiveSize)),
		validation.Field(&it.ZIndex, validation.Min(-MaxZIndex), validation.Max(MaxZIndex)),
	)
	if err != nil {
		return err
	}
	switch b := it.Body.(type) {
	case Task:
		if b.Priority != "" && !b.Priority.Valid() {
			return fmt.Errorf("priority %q: %w", b.Priority, apperr.ErrInvalid)
		}
	case ExpenseWidget:
		return validation.Validate(b.Expenses)
	case Group:
		if it.GroupID != "" {
			return fmt.Errorf("group %s cannot join a group: %w", it.ID, apperr.ErrInvalid)
		}
	}
	return nil
}

func positiveSize(v any) error {
	s, ok := v.(Size)
	if !ok {
		return fmt.Errorf("must be a size")
	}
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("width and height must be positive")
	}
	return nil
}

// wireItem is the flattened JSON shape of an item.
type wireItem struct {
	ID          string     `json:"id"`
	Type        ItemType   `json:"type"`
	Position    Position   `json:"position"`
	Size        Size       `json:"size"`
	ZIndex      int        `json:"zIndex"`
	GroupID     string     `json:"groupId,omitempty"`
	Content     *string    `json:"content,omitempty"`
	Color       *string    `json:"color,omitempty"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Deadline    string     `json:"deadline,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	Assignee    string     `json:"assignee,omitempty"`
	Expenses    *[]Expense `json:"expenses,omitempty"`
}

// MarshalJSON writes the item with all variant fields flattened.
func (it Item) MarshalJSON() ([]byte, error) {
	w := wireItem{
		ID:       it.ID,
		Type:     it.Type(),
		Position: it.Position,
		Size:     it.Size,
		ZIndex:   it.ZIndex,
		GroupID:  it.GroupID,
	}
	switch b := it.Body.(type) {
	case Note:
		w.Content, w.Color = &b.Content, &b.Color
	case Task:
		w.Title, w.Description = &b.Title, &b.Description
		w.Deadline, w.Priority, w.Assignee = b.Deadline, b.Priority, b.Assignee
		w.Completed = &b.Completed
	case Group:
		w.Title, w.Color = &b.Title, &b.Color
	case ExpenseWidget:
		expenses := b.Expenses
		if expenses == nil {
			expenses = []Expense{}
		}
		w.Title, w.Expenses = &b.Title, &expenses
	default:
		return nil, fmt.Errorf("board: item %s has no body: %w", it.ID, apperr.ErrInvalid)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the flattened shape and picks the variant from "type".
func (it *Item) UnmarshalJSON(data []byte) error {
	var w wireItem
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var body Body
	switch w.Type {
	case TypeNote:
		body = Note{Content: deref(w.Content), Color: deref(w.Color)}
	case TypeTask:
		body = Task{
			Title:       deref(w.Title),
			Description: deref(w.Description),
			Deadline:    w.Deadline,
			Priority:    w.Priority,
			Completed:   w.Completed != nil && *w.Completed,
			Assignee:    w.Assignee,
		}
	case TypeGroup:
		body = Group{Title: deref(w.Title), Color: deref(w.Color)}
	case TypeExpenseWidget:
		var expenses []Expense
		if w.Expenses != nil {
			expenses = *w.Expenses
		}
		body = ExpenseWidget{Title: deref(w.Title), Expenses: expenses}
	default:
		return fmt.Errorf("board: unknown item type %q: %w", w.Type, apperr.ErrInvalid)
	}
	*it = Item{
		ID:       w.ID,
		Position: w.Position,
		Size:     w.Size,
		ZIndex:   w.ZIndex,
		GroupID:  w.GroupID,
		Body:     body,
	}
	return nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
