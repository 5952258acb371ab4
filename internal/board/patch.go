package board

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/corkboard/internal/apperr"
)

// Patch is a partial update. Nil fields are left untouched. Type may be set
// only to the item's current type; it exists so that a caller echoing a full
// record back does not fail, not to change the variant.
type Patch struct {
	Type     *ItemType `json:"type,omitempty"`
	Position *Position `json:"position,omitempty"`
	Size     *Size     `json:"size,omitempty"`
	ZIndex   *int      `json:"zIndex,omitempty"`
	// GroupID set to "" leaves the current group.
	GroupID *string `json:"groupId,omitempty"`

	Content     *string    `json:"content,omitempty"`
	Color       *string    `json:"color,omitempty"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Deadline    *string    `json:"deadline,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	Assignee    *string    `json:"assignee,omitempty"`
	Expenses    *[]Expense `json:"expenses,omitempty"`
}

// apply returns a copy of it with p merged in. it is not modified.
func (p Patch) apply(it Item) (Item, error) {
	out := it.Clone()
	kind := it.Type()

	if p.Type != nil && *p.Type != kind {
		return it, fmt.Errorf("board: item %s is %s, cannot become %s: %w", it.ID, kind, *p.Type, apperr.ErrInvalid)
	}
	if p.Position != nil {
		out.Position = *p.Position
	}
	if p.Size != nil {
		if p.Size.Width <= 0 || p.Size.Height <= 0 {
			return it, fmt.Errorf("board: size must be positive: %w", apperr.ErrInvalid)
		}
		out.Size = *p.Size
	}
	if p.ZIndex != nil {
		if kind == TypeGroup && *p.ZIndex != GroupZIndex {
			return it, fmt.Errorf("board: group z-index is fixed: %w", apperr.ErrInvalid)
		}
		if *p.ZIndex < -MaxZIndex || *p.ZIndex > MaxZIndex {
			return it, fmt.Errorf("board: z-index %d out of range: %w", *p.ZIndex, apperr.ErrInvalid)
		}
		out.ZIndex = *p.ZIndex
	}
	if p.GroupID != nil {
		if kind == TypeGroup && *p.GroupID != "" {
			return it, fmt.Errorf("board: groups cannot nest: %w", apperr.ErrInvalid)
		}
		out.GroupID = *p.GroupID
	}

	var err error
	switch b := out.Body.(type) {
	case Note:
		err = p.only(kind, p.Content != nil, p.Color != nil)
		setIf(&b.Content, p.Content)
		setIf(&b.Color, p.Color)
		out.Body = b
	case Task:
		err = p.only(kind, p.Title != nil, p.Description != nil, p.Deadline != nil,
			p.Priority != nil, p.Completed != nil, p.Assignee != nil)
		if err == nil && p.Priority != nil && !p.Priority.Valid() {
			err = fmt.Errorf("board: priority %q: %w", *p.Priority, apperr.ErrInvalid)
		}
		setIf(&b.Title, p.Title)
		setIf(&b.Description, p.Description)
		setIf(&b.Deadline, p.Deadline)
		setIf(&b.Priority, p.Priority)
		setIf(&b.Completed, p.Completed)
		setIf(&b.Assignee, p.Assignee)
		out.Body = b
	case Group:
		err = p.only(kind, p.Title != nil, p.Color != nil)
		setIf(&b.Title, p.Title)
		setIf(&b.Color, p.Color)
		out.Body = b
	case ExpenseWidget:
		err = p.only(kind, p.Title != nil, p.Expenses != nil)
		if err == nil && p.Expenses != nil {
			if verr := validation.Validate(*p.Expenses); verr != nil {
				err = fmt.Errorf("board: expenses: %w: %w", apperr.ErrInvalid, verr)
			}
		}
		setIf(&b.Title, p.Title)
		if p.Expenses != nil {
			b.Expenses = append([]Expense(nil), (*p.Expenses)...)
		}
		out.Body = b
	}
	if err != nil {
		return it, err
	}
	return out, nil
}

// only fails when the patch carries a variant field outside the set marked
// true for this kind.
func (p Patch) only(kind ItemType, allowed ...bool) error {
	n := 0
	for _, a := range allowed {
		if a {
			n++
		}
	}
	if n != p.variantFields() {
		return fmt.Errorf("board: patch has fields that do not apply to %s: %w", kind, apperr.ErrInvalid)
	}
	return nil
}

func (p Patch) variantFields() int {
	n := 0
	for _, set := range []bool{
		p.Content != nil, p.Color != nil, p.Title != nil, p.Description != nil,
		p.Deadline != nil, p.Priority != nil, p.Completed != nil, p.Assignee != nil,
		p.Expenses != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
