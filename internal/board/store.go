package board

import (
	"errors"
	"fmt"
	"slices"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/starford/corkboard/internal/apperr"
)

// ChangeKind says what a mutation did.
type ChangeKind int

const (
	ChangeCreated ChangeKind = iota
	ChangeUpdated
	ChangeDeleted
	ChangeReordered
	ChangeMoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	case ChangeReordered:
		return "reordered"
	case ChangeMoved:
		return "moved"
	}
	return "unknown"
}

// Change is delivered to subscribers after each settled mutation.
type Change struct {
	Kind ChangeKind
	ID   string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDFunc replaces the id generator.
func WithIDFunc(fn func() string) StoreOption {
	return func(s *Store) { s.newID = fn }
}

// WithColorPicker replaces the colour chooser used for new notes.
func WithColorPicker(fn func() string) StoreOption {
	return func(s *Store) { s.pickColor = fn }
}

// WithClock replaces the time source used for expense dates.
func WithClock(fn func() time.Time) StoreOption {
	return func(s *Store) { s.now = fn }
}

// Store is the ordered item collection of one workspace. It has no locking
// of its own: the owner serializes every call.
type Store struct {
	items     []Item
	listeners []func(Change)

	newID     func() string
	pickColor func() string
	now       func() time.Time
}

// NewStore returns an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		newID:     NewID,
		pickColor: RandomNoteColor,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Subscribe registers fn to run after every mutation.
func (s *Store) Subscribe(fn func(Change)) {
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify(kind ChangeKind, id string) {
	c := Change{Kind: kind, ID: id}
	for _, fn := range s.listeners {
		fn(c)
	}
}

// Load replaces the collection with a normalized copy of items. Subscribers
// are not notified.
func (s *Store) Load(items []Item) {
	s.items = Normalize(items)
}

// Len returns the number of items.
func (s *Store) Len() int {
	return len(s.items)
}

// Items returns a deep copy of the collection in collection order.
func (s *Store) Items() []Item {
	out := make([]Item, len(s.items))
	for i, it := range s.items {
		out[i] = it.Clone()
	}
	return out
}

// Get returns a copy of the item with the given id.
func (s *Store) Get(id string) (Item, bool) {
	i := s.index(id)
	if i < 0 {
		return Item{}, false
	}
	return s.items[i].Clone(), true
}

func (s *Store) index(id string) int {
	return slices.IndexFunc(s.items, func(it Item) bool { return it.ID == id })
}

func (s *Store) maxZ() int {
	if len(s.items) == 0 {
		return 0
	}
	m := s.items[0].ZIndex
	for _, it := range s.items[1:] {
		m = max(m, it.ZIndex)
	}
	return m
}

// nextZ returns a z-index above every item. When the stack has reached
// MaxZIndex it is first renumbered 1..n in paint order.
func (s *Store) nextZ() int {
	if m := s.maxZ(); m < MaxZIndex {
		return m + 1
	}
	z := 0
	rank := make(map[string]int, len(s.items))
	for _, it := range PaintOrder(s.items) {
		if !it.IsGroup() {
			z++
			rank[it.ID] = z
		}
	}
	for i := range s.items {
		if r, ok := rank[s.items[i].ID]; ok {
			s.items[i].ZIndex = r
		}
	}
	return z + 1
}

func (s *Store) freshID() string {
	for {
		id := s.newID()
		if s.index(id) < 0 {
			return id
		}
	}
}

// Create appends a new item of type t centred on anchor and returns it.
func (s *Store) Create(t ItemType, anchor Position) (Item, error) {
	if !t.Valid() {
		return Item{}, fmt.Errorf("board: create %q: %w", t, apperr.ErrInvalid)
	}
	size := DefaultSize(t)
	it := Item{
		ID:       s.freshID(),
		Position: anchor.Add(-size.Width/2, -size.Height/2),
		Size:     size,
		Body:     newBody(t, s.pickColor),
	}
	if t == TypeGroup {
		it.ZIndex = GroupZIndex
	} else if len(s.items) == 0 {
		it.ZIndex = 1
	} else {
		it.ZIndex = s.nextZ()
	}
	s.items = append(s.items, it)
	s.notify(ChangeCreated, it.ID)
	return it.Clone(), nil
}

// Update merges p into the item. The variant cannot change and a non-empty
// GroupID must name an existing group. Either the whole patch applies or
// nothing does.
func (s *Store) Update(id string, p Patch) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("board: update %s: %w", id, apperr.ErrNotFound)
	}
	next, err := p.apply(s.items[i])
	if err != nil {
		return err
	}
	if next.GroupID != "" && next.GroupID != s.items[i].GroupID {
		if next.GroupID == id || !s.isGroup(next.GroupID) {
			return fmt.Errorf("board: group %s does not exist: %w", next.GroupID, apperr.ErrInvalid)
		}
	}
	s.items[i] = next
	s.notify(ChangeUpdated, id)
	return nil
}

func (s *Store) isGroup(id string) bool {
	i := s.index(id)
	return i >= 0 && s.items[i].IsGroup()
}

// Delete removes the item. Deleting a group clears the GroupID of all its
// members in the same step.
func (s *Store) Delete(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("board: delete %s: %w", id, apperr.ErrNotFound)
	}
	wasGroup := s.items[i].IsGroup()
	s.items = slices.Delete(s.items, i, i+1)
	if wasGroup {
		for j := range s.items {
			if s.items[j].GroupID == id {
				s.items[j].GroupID = ""
			}
		}
	}
	s.notify(ChangeDeleted, id)
	return nil
}

// BringToFront gives a non-group item the highest z-index. Groups are left
// alone.
func (s *Store) BringToFront(id string) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("board: bring to front %s: %w", id, apperr.ErrNotFound)
	}
	if s.items[i].IsGroup() {
		return nil
	}
	s.items[i].ZIndex = s.nextZ()
	s.notify(ChangeReordered, id)
	return nil
}

// MoveBy translates the item by a world-space delta. A group carries its
// members with it.
func (s *Store) MoveBy(id string, dx, dy float64) error {
	i := s.index(id)
	if i < 0 {
		return fmt.Errorf("board: move %s: %w", id, apperr.ErrNotFound)
	}
	s.items[i].Position = s.items[i].Position.Add(dx, dy)
	if s.items[i].IsGroup() {
		for j := range s.items {
			if s.items[j].GroupID == id {
				s.items[j].Position = s.items[j].Position.Add(dx, dy)
			}
		}
	}
	s.notify(ChangeMoved, id)
	return nil
}

// GroupAt returns the first group, in collection order, whose bounds contain p.
func (s *Store) GroupAt(p Position) (Item, bool) {
	for _, it := range s.items {
		if it.IsGroup() && it.Bounds().Contains(p) {
			return it.Clone(), true
		}
	}
	return Item{}, false
}

// Members returns the ids of the items that belong to group id.
func (s *Store) Members(id string) []string {
	var out []string
	for _, it := range s.items {
		if it.GroupID == id {
			out = append(out, it.ID)
		}
	}
	return out
}

// AddExpense prepends a new expense to an expense widget. Empty category
// defaults to "General".
func (s *Store) AddExpense(widgetID, description string, amount decimal.Decimal, category string) (Expense, error) {
	i := s.index(widgetID)
	if i < 0 {
		return Expense{}, fmt.Errorf("board: add expense to %s: %w", widgetID, apperr.ErrNotFound)
	}
	w, ok := s.items[i].Body.(ExpenseWidget)
	if !ok {
		return Expense{}, fmt.Errorf("board: %s is not an expense widget: %w", widgetID, apperr.ErrInvalid)
	}
	if category == "" {
		category = "General"
	}
	e := Expense{
		ID:          s.newID(),
		Description: description,
		Amount:      amount,
		Date:        s.now().Format(time.DateOnly),
		Category:    category,
	}
	if err := e.Validate(); err != nil {
		return Expense{}, fmt.Errorf("board: expense: %w: %w", apperr.ErrInvalid, err)
	}
	w.Expenses = append([]Expense{e}, w.Expenses...)
	s.items[i].Body = w
	s.notify(ChangeUpdated, widgetID)
	return e, nil
}

// Expenses returns every expense on the board, widget by widget.
func (s *Store) Expenses() []Expense {
	return Expenses(s.items)
}

// Expenses flattens the expenses of all widgets in items.
func Expenses(items []Item) []Expense {
	var out []Expense
	for _, it := range items {
		if w, ok := it.Body.(ExpenseWidget); ok {
			out = append(out, w.Expenses...)
		}
	}
	return out
}

// Normalize returns a copy of items that satisfies the collection
// invariants: unique ids (first wins), groups unparented at GroupZIndex, and
// no GroupID pointing at something other than an existing group.
func Normalize(items []Item) []Item {
	seen := make(map[string]bool, len(items))
	groups := make(map[string]bool)
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.Body == nil || seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		it = it.Clone()
		if it.IsGroup() {
			it.GroupID = ""
			it.ZIndex = GroupZIndex
			groups[it.ID] = true
		}
		out = append(out, it)
	}
	for i := range out {
		if out[i].GroupID != "" && !groups[out[i].GroupID] {
			out[i].GroupID = ""
		}
	}
	return out
}

// ErrDuplicateID is returned by ValidateItems when two items share an id.
var ErrDuplicateID = errors.New("duplicate item id")

// ValidateItems checks every item on its own and that ids are unique.
func ValidateItems(items []Item) error {
	seen := make(map[string]bool, len(items))
	for i, it := range items {
		if err := validation.Validate(it); err != nil {
			return fmt.Errorf("item %d: %w: %w", i, apperr.ErrInvalid, err)
		}
		if seen[it.ID] {
			return fmt.Errorf("item %s: %w: %w", it.ID, apperr.ErrInvalid, ErrDuplicateID)
		}
		seen[it.ID] = true
	}
	return nil
}
