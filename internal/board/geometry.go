// Package board implements the whiteboard interaction engine: the viewport
// transform, the item store, the pointer state machine and the paint order.
package board

import "math"

// Zoom bounds and the wheel-to-scale factor.
const (
	ZoomMin = 0.2
	ZoomMax = 3.0

	DefaultZoomSensitivity = 0.001
)

// Position is a point in world space.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by (dx, dy).
func (p Position) Add(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Size is a width/height extent in world units.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned box in world space.
type Rect struct {
	Min Position
	Max Position
}

// Contains reports whether p lies inside r. Edges count as inside.
func (r Rect) Contains(p Position) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Union returns the smallest rect covering r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		Min: Position{X: math.Min(r.Min.X, o.Min.X), Y: math.Min(r.Min.Y, o.Min.Y)},
		Max: Position{X: math.Max(r.Max.X, o.Max.X), Y: math.Max(r.Max.Y, o.Max.Y)},
	}
}

// ViewState maps world space onto the screen: screen = world*Scale + Offset.
type ViewState struct {
	Scale  float64  `json:"scale"`
	Offset Position `json:"offset"`
}

// NewViewState returns the identity view.
func NewViewState() ViewState {
	return ViewState{Scale: 1}
}

// ClampScale limits s to [ZoomMin, ZoomMax].
func ClampScale(s float64) float64 {
	return math.Min(math.Max(s, ZoomMin), ZoomMax)
}

// ScreenToWorld converts a screen point to world coordinates.
func (v ViewState) ScreenToWorld(screenX, screenY float64) Position {
	return Position{
		X: (screenX - v.Offset.X) / v.Scale,
		Y: (screenY - v.Offset.Y) / v.Scale,
	}
}

// WorldToScreen converts a world point to screen coordinates.
func (v ViewState) WorldToScreen(p Position) (float64, float64) {
	return p.X*v.Scale + v.Offset.X, p.Y*v.Scale + v.Offset.Y
}

// ZoomAt changes the scale by delta while keeping the world point under
// (screenX, screenY) fixed on screen. The offset is recomputed with the
// clamped scale, so the anchor holds at the bounds as well.
func (v *ViewState) ZoomAt(screenX, screenY, delta float64) {
	before := v.ScreenToWorld(screenX, screenY)
	scale := ClampScale(v.Scale + delta)

	v.Scale = scale
	v.Offset = Position{
		X: screenX - before.X*scale,
		Y: screenY - before.Y*scale,
	}
}

// Pan moves the offset by a screen-space delta.
func (v *ViewState) Pan(dx, dy float64) {
	v.Offset = v.Offset.Add(dx, dy)
}

// CenterOn positions the view so that world point p sits at the middle of
// a viewport of the given size.
func (v *ViewState) CenterOn(p Position, viewportWidth, viewportHeight float64) {
	v.Offset = Position{
		X: viewportWidth/2 - p.X*v.Scale,
		Y: viewportHeight/2 - p.Y*v.Scale,
	}
}
