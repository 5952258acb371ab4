package board

import (
	"errors"

	"github.com/starford/corkboard/internal/apperr"
)

// Mode is the controller state.
type Mode int

const (
	Idle Mode = iota
	Panning
	Dragging
)

func (m Mode) String() string {
	switch m {
	case Panning:
		return "panning"
	case Dragging:
		return "dragging"
	}
	return "idle"
}

// Button identifies a pointer button, numbered like DOM MouseEvent.button.
type Button int

const (
	ButtonPrimary   Button = 0
	ButtonMiddle    Button = 1
	ButtonSecondary Button = 2
)

// PointerEvent is a pointer position in screen space plus the button.
type PointerEvent struct {
	X, Y   float64
	Button Button
}

// WheelEvent is a wheel or trackpad scroll at a screen position.
// ZoomModifier is true when Ctrl or Meta is held.
type WheelEvent struct {
	X, Y           float64
	DeltaX, DeltaY float64
	ZoomModifier   bool
}

// Controller turns pointer and wheel events into view and store changes.
// Calls must be serialized by the owner.
type Controller struct {
	store       *Store
	view        *ViewState
	sensitivity float64

	mode     Mode
	dragID   string
	selected string
	anchorX  float64
	anchorY  float64
}

// NewController binds a controller to a store and a view. A non-positive
// sensitivity selects DefaultZoomSensitivity.
func NewController(store *Store, view *ViewState, sensitivity float64) *Controller {
	if sensitivity <= 0 {
		sensitivity = DefaultZoomSensitivity
	}
	return &Controller{store: store, view: view, sensitivity: sensitivity}
}

// Mode returns the current state.
func (c *Controller) Mode() Mode { return c.mode }

// DraggingID returns the id of the item being dragged, or "".
func (c *Controller) DraggingID() string { return c.dragID }

// Selected returns the selected item id, or "".
func (c *Controller) Selected() string { return c.selected }

// PointerDown starts a drag when the primary button lands on an item and a
// pan when the primary or middle button lands on the background. A gesture
// still in progress is released first; its error, if any, is returned.
func (c *Controller) PointerDown(ev PointerEvent) error {
	var err error
	if c.mode != Idle {
		err = c.PointerUp()
	}
	world := c.view.ScreenToWorld(ev.X, ev.Y)
	if ev.Button == ButtonPrimary {
		if it, ok := HitTest(c.store.items, world); ok {
			c.Grab(it.ID, ev.X, ev.Y)
			return err
		}
	}
	if ev.Button == ButtonPrimary || ev.Button == ButtonMiddle {
		c.mode = Panning
		c.selected = ""
		c.anchorX, c.anchorY = ev.X, ev.Y
	}
	return err
}

// Grab starts dragging id with the pointer at screen (x, y), selecting it
// and bringing it to the front. It returns false for an unknown id.
func (c *Controller) Grab(id string, x, y float64) bool {
	if c.store.BringToFront(id) != nil {
		return false
	}
	c.mode = Dragging
	c.dragID = id
	c.selected = id
	c.anchorX, c.anchorY = x, y
	return true
}

// PointerMove pans or drags by the delta since the previous event.
func (c *Controller) PointerMove(x, y float64) error {
	dx, dy := x-c.anchorX, y-c.anchorY
	switch c.mode {
	case Panning:
		c.view.Pan(dx, dy)
	case Dragging:
		err := c.store.MoveBy(c.dragID, dx/c.view.Scale, dy/c.view.Scale)
		if errors.Is(err, apperr.ErrNotFound) {
			// The item went away mid-drag.
			c.reset()
			return nil
		}
		if err != nil {
			return err
		}
	default:
		return nil
	}
	c.anchorX, c.anchorY = x, y
	return nil
}

// PointerUp ends the gesture. A dropped non-group item joins the first group
// containing its centre, or leaves its group when dropped outside. The
// gesture ends even when the drop fails.
func (c *Controller) PointerUp() error {
	var err error
	if c.mode == Dragging {
		err = c.resolveGroup(c.dragID)
	}
	c.reset()
	return err
}

// PointerLeave is treated as a release.
func (c *Controller) PointerLeave() error {
	return c.PointerUp()
}

func (c *Controller) reset() {
	c.mode = Idle
	c.dragID = ""
}

func (c *Controller) resolveGroup(id string) error {
	it, ok := c.store.Get(id)
	if !ok || it.IsGroup() {
		return nil
	}
	next := ""
	if g, ok := c.store.GroupAt(it.Center()); ok {
		next = g.ID
	}
	if next == it.GroupID {
		return nil
	}
	if err := c.store.Update(id, Patch{GroupID: &next}); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return nil
}

// Wheel zooms around the pointer when the modifier is held and pans
// otherwise. It returns true when the host should suppress its default
// scroll handling.
func (c *Controller) Wheel(ev WheelEvent) bool {
	if ev.ZoomModifier {
		c.view.ZoomAt(ev.X, ev.Y, -ev.DeltaY*c.sensitivity)
		return true
	}
	c.view.Pan(-ev.DeltaX, -ev.DeltaY)
	return false
}

// Select marks id as selected without starting a gesture.
func (c *Controller) Select(id string) {
	c.selected = id
}

// Forget drops any reference to id, e.g. after it was deleted.
func (c *Controller) Forget(id string) {
	if c.selected == id {
		c.selected = ""
	}
	if c.dragID == id {
		c.reset()
	}
}
