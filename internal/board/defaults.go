package board

import (
	"math"
	"math/rand/v2"
)

// GroupZIndex is the fixed paint key of every GROUP. Groups never take part
// in front promotion.
const GroupZIndex = 0

// MaxZIndex bounds the magnitude of an item's z-index. Front promotion
// compacts the stack instead of going past it.
const MaxZIndex = math.MaxInt32

// WelcomeID is the id of the note seeded into an empty workspace.
const WelcomeID = "welcome-note"

// NoteColors is the palette new notes pick from.
var NoteColors = []string{
	"#fef3c7",
	"#dcfce7",
	"#dbeafe",
	"#fae8ff",
	"#fee2e2",
	"#f3f4f6",
}

// GroupColor is the fill of a new group.
const GroupColor = "transparent"

// DefaultSize returns the size a freshly created item of type t gets.
func DefaultSize(t ItemType) Size {
	switch t {
	case TypeTask:
		return Size{Width: 300, Height: 200}
	case TypeExpenseWidget:
		return Size{Width: 320, Height: 400}
	case TypeGroup:
		return Size{Width: 600, Height: 400}
	default:
		return Size{Width: 240, Height: 240}
	}
}

// RandomNoteColor picks a palette colour at random.
func RandomNoteColor() string {
	return NoteColors[rand.IntN(len(NoteColors))]
}

// newBody returns the initial body of a new item of type t.
func newBody(t ItemType, color func() string) Body {
	switch t {
	case TypeNote:
		return Note{Color: color()}
	case TypeTask:
		return Task{Title: "New Task", Priority: PriorityMedium}
	case TypeGroup:
		return Group{Title: "New Group", Color: GroupColor}
	case TypeExpenseWidget:
		return ExpenseWidget{Title: "Project Budget", Expenses: []Expense{}}
	}
	return nil
}

// WelcomeNote is the item seeded for a user whose workspace is empty.
func WelcomeNote(name string) Item {
	return Item{
		ID:       WelcomeID,
		Position: Position{X: 100, Y: 100},
		Size:     DefaultSize(TypeNote),
		ZIndex:   1,
		Body: Note{
			Content: "Welcome to your workspace, " + name + "!\n\nDrag to move.\nCtrl+Wheel to zoom.\nDouble click text to edit.",
			Color:   NoteColors[0],
		},
	}
}
