// Package session owns one user's live board: store, view and pointer
// controller behind a single lock, with debounced persistence.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/starford/corkboard/internal/apperr"
	"github.com/starford/corkboard/internal/board"
	"github.com/starford/corkboard/internal/debounce"
)

// Persister loads and saves item collections.
type Persister interface {
	Load(ctx context.Context, userID string) []board.Item
	Save(userID string, items []board.Item)
}

// Options tune a session.
type Options struct {
	SaveDebounce    time.Duration
	ZoomSensitivity float64
	ViewportWidth   float64
	ViewportHeight  float64
	Logger          *slog.Logger
	StoreOptions    []board.StoreOption
}

// Default viewport used to centre the initial view and new items.
const (
	defaultViewportWidth  = 1280
	defaultViewportHeight = 800
)

// initialFocus is the world point the view starts centred on.
var initialFocus = board.Position{X: 400, Y: 300}

// Session is safe for concurrent use; every call runs under one mutex.
type Session struct {
	mu sync.Mutex

	userID string
	store  *board.Store
	view   board.ViewState
	ctrl   *board.Controller
	saver  *debounce.Debouncer
	logger *slog.Logger

	viewportW, viewportH float64
	closed               bool
}

// Open loads the user's items through p and returns a live session. An
// empty collection is seeded with a welcome note addressed to name.
func Open(ctx context.Context, p Persister, userID, name string, opts Options) *Session {
	if opts.SaveDebounce <= 0 {
		opts.SaveDebounce = time.Second
	}
	if opts.ViewportWidth <= 0 || opts.ViewportHeight <= 0 {
		opts.ViewportWidth, opts.ViewportHeight = defaultViewportWidth, defaultViewportHeight
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Session{
		userID:    userID,
		store:     board.NewStore(opts.StoreOptions...),
		view:      board.NewViewState(),
		logger:    opts.Logger,
		viewportW: opts.ViewportWidth,
		viewportH: opts.ViewportHeight,
	}
	s.view.CenterOn(initialFocus, s.viewportW, s.viewportH)
	s.ctrl = board.NewController(s.store, &s.view, opts.ZoomSensitivity)

	items := p.Load(ctx, userID)
	if len(items) == 0 {
		items = []board.Item{board.WelcomeNote(name)}
	}
	s.store.Load(items)

	s.saver = debounce.New(opts.SaveDebounce, func() {
		s.mu.Lock()
		snapshot := s.store.Items()
		s.mu.Unlock()
		p.Save(userID, snapshot)
	})
	s.store.Subscribe(s.onChange)
	return s
}

func (s *Session) onChange(c board.Change) {
	s.logger.Debug("session: change",
		slog.String("user", s.userID), slog.String("kind", c.Kind.String()), slog.String("id", c.ID))
	s.saver.Trigger()
}

// UserID returns the owner of the board.
func (s *Session) UserID() string { return s.userID }

// Items returns a snapshot in collection order.
func (s *Session) Items() []board.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Items()
}

// Item returns one item by id.
func (s *Session) Item(id string) (board.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(id)
}

// PaintOrder returns a snapshot in draw order.
func (s *Session) PaintOrder() []board.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return board.PaintOrder(s.store.Items())
}

// View returns the current view.
func (s *Session) View() board.ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Mode returns the controller state.
func (s *Session) Mode() board.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Mode()
}

// Selected returns the selected item id.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Selected()
}

// Expenses returns every expense on the board.
func (s *Session) Expenses() []board.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Expenses()
}

// Resize records the viewport size used to place new items.
func (s *Session) Resize(width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if width > 0 && height > 0 {
		s.viewportW, s.viewportH = width, height
	}
}

// Create adds an item centred in the current viewport.
func (s *Session) Create(t board.ItemType) (board.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	center := s.view.ScreenToWorld(s.viewportW/2, s.viewportH/2)
	return s.store.Create(t, center)
}

// CreateAt adds an item centred on a world position.
func (s *Session) CreateAt(t board.ItemType, at board.Position) (board.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Create(t, at)
}

// Update applies a partial update.
func (s *Session) Update(id string, p board.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Update(id, p)
}

// Delete removes an item, ungrouping members of a deleted group.
func (s *Session) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.ctrl.Forget(id)
	return nil
}

// AddExpense records an expense on a widget.
func (s *Session) AddExpense(widgetID, description string, amount decimal.Decimal, category string) (board.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.AddExpense(widgetID, description, amount, category)
}

// PointerDown forwards to the controller.
func (s *Session) PointerDown(ev board.PointerEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.PointerDown(ev)
}

// PointerMove forwards to the controller.
func (s *Session) PointerMove(x, y float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.PointerMove(x, y)
}

// PointerUp forwards to the controller.
func (s *Session) PointerUp() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.PointerUp()
}

// Wheel forwards to the controller.
func (s *Session) Wheel(ev board.WheelEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Wheel(ev)
}

// Drag moves an item by a world-space delta as one complete gesture:
// grab, move, release. Drop-time group resolution applies.
func (s *Session) Drag(id string, dx, dy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("session: drag %s: %w", id, apperr.ErrNotFound)
	}
	if s.ctrl.Mode() != board.Idle {
		if err := s.ctrl.PointerUp(); err != nil {
			return fmt.Errorf("session: release before drag: %w", err)
		}
	}
	sx, sy := s.view.WorldToScreen(it.Position)
	s.ctrl.Grab(id, sx, sy)
	moveErr := s.ctrl.PointerMove(sx+dx*s.view.Scale, sy+dy*s.view.Scale)
	if err := errors.Join(moveErr, s.ctrl.PointerUp()); err != nil {
		return fmt.Errorf("session: drag %s: %w", id, err)
	}
	return nil
}

// Flush saves a pending change now.
func (s *Session) Flush() {
	s.saver.Flush()
}

// Close flushes pending work and stops the save timer.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.saver.Flush()
	s.saver.Stop()
}
