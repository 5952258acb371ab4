package board

import (
	"math"
	"testing"
)

const eps = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestScreenToWorldRoundTrip(t *testing.T) {
	v := ViewState{Scale: 1.5, Offset: Position{X: -40, Y: 25}}
	p := v.ScreenToWorld(310, 220)
	x, y := v.WorldToScreen(p)
	if !near(x, 310) || !near(y, 220) {
		t.Fatalf("round trip = (%v, %v), want (310, 220)", x, y)
	}
}

func TestZoomAtKeepsPointerAnchored(t *testing.T) {
	v := ViewState{Scale: 0.7, Offset: Position{X: 120, Y: -60}}
	const px, py = 512, 384
	before := v.ScreenToWorld(px, py)

	for _, d := range []float64{0.1, 0.25, -0.3, 0.05, 0.8, -0.4} {
		v.ZoomAt(px, py, d)
		x, y := v.WorldToScreen(before)
		if math.Abs(x-px) > 1e-6 || math.Abs(y-py) > 1e-6 {
			t.Fatalf("after delta %v world point maps to (%v, %v), want (%v, %v)", d, x, y, px, py)
		}
	}
}

func TestZoomAtClamps(t *testing.T) {
	v := NewViewState()
	v.ZoomAt(10, 10, 50)
	if v.Scale != ZoomMax {
		t.Fatalf("scale = %v, want %v", v.Scale, ZoomMax)
	}
	offset := v.Offset
	v.ZoomAt(10, 10, 50)
	if v.Scale != ZoomMax || v.Offset != offset {
		t.Fatalf("repeated max zoom changed view: %+v", v)
	}

	v.ZoomAt(10, 10, -50)
	if v.Scale != ZoomMin {
		t.Fatalf("scale = %v, want %v", v.Scale, ZoomMin)
	}
	v.ZoomAt(10, 10, -50)
	if v.Scale != ZoomMin {
		t.Fatalf("repeated min zoom changed scale: %v", v.Scale)
	}
}

func TestZoomAtBoundaryStillAnchors(t *testing.T) {
	v := ViewState{Scale: 2.9, Offset: Position{X: 15, Y: 30}}
	before := v.ScreenToWorld(200, 100)
	v.ZoomAt(200, 100, 1)
	x, y := v.WorldToScreen(before)
	if math.Abs(x-200) > 1e-6 || math.Abs(y-100) > 1e-6 {
		t.Fatalf("anchor drifted to (%v, %v)", x, y)
	}
}

func TestZoomScenario(t *testing.T) {
	v := NewViewState()
	c := NewController(NewStore(), &v, DefaultZoomSensitivity)
	// deltaY of -100 at 0.001 sensitivity is +0.1 scale.
	if !c.Wheel(WheelEvent{X: 400, Y: 300, DeltaY: -100, ZoomModifier: true}) {
		t.Fatal("zoom wheel should suppress default scrolling")
	}
	if !near(v.Scale, 1.1) {
		t.Fatalf("scale = %v, want 1.1", v.Scale)
	}
	if !near((400-0)/1.0, (400-v.Offset.X)/1.1) {
		t.Fatalf("offset.x = %v breaks the pointer anchor", v.Offset.X)
	}
	if !near((300-0)/1.0, (300-v.Offset.Y)/1.1) {
		t.Fatalf("offset.y = %v breaks the pointer anchor", v.Offset.Y)
	}
}

func TestRectContainsEdges(t *testing.T) {
	r := Rect{Min: Position{X: 0, Y: 0}, Max: Position{X: 10, Y: 10}}
	for _, p := range []Position{{0, 0}, {10, 10}, {5, 10}} {
		if !r.Contains(p) {
			t.Errorf("Contains(%v) = false", p)
		}
	}
	if r.Contains(Position{X: 10.01, Y: 5}) {
		t.Error("point outside reported inside")
	}
}

func TestCenterOn(t *testing.T) {
	v := NewViewState()
	v.CenterOn(Position{X: 400, Y: 300}, 1280, 800)
	if v.Offset != (Position{X: 240, Y: 100}) {
		t.Fatalf("offset = %+v", v.Offset)
	}
}
