package gesture

import (
	"math"
	"testing"

	"github.com/tracelay/tracelay/backend-go/internal/document"
	"github.com/tracelay/tracelay/backend-go/internal/geom"
	"github.com/tracelay/tracelay/backend-go/internal/overlay"
)

type fakeController struct {
	images   map[string]document.ImageTransform
	selected string
	selects  int
	updates  []document.Transform
}

func newFake(img document.ImageTransform) *fakeController {
	return &fakeController{images: map[string]document.ImageTransform{img.ID: img}}
}

func (f *fakeController) Image(id string) (document.ImageTransform, bool) {
	img, ok := f.images[id]
	return img, ok
}

func (f *fakeController) Select(id string) {
	f.selected = id
	f.selects++
}

func (f *fakeController) Update(id string, t document.Transform) {
	img, ok := f.images[id]
	if !ok || t.Validate() != nil {
		return
	}
	img.Transform = t
	f.images[id] = img
	f.updates = append(f.updates, t)
}

func (f *fakeController) transform(id string) document.Transform {
	return f.images[id].Transform
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func assertTransform(t *testing.T, got, want document.Transform) {
	t.Helper()
	if !near(got.X, want.X) || !near(got.Y, want.Y) || !near(got.Rotation, want.Rotation) ||
		!near(got.ScaleX, want.ScaleX) || !near(got.ScaleY, want.ScaleY) {
		t.Fatalf("transform = %+v, want %+v", got, want)
	}
}

func setup(tr document.Transform) (*fakeController, *Router) {
	img := document.NewImageTransform("a", "src")
	img.Transform = tr
	f := newFake(img)
	return f, NewRouter("a", f, overlay.NewHandleSet(overlay.FineStyle))
}

func TestDownSelects(t *testing.T) {
	f, r := setup(document.DefaultTransform())
	r.PointerDown(1, geom.Pt(60, 60), Target{})
	if f.selected != "a" || r.State() != Selecting {
		t.Fatalf("selected=%q state=%v", f.selected, r.State())
	}
	r.PointerDown(1, geom.Pt(60, 60), Target{})
	if f.selects != 1 || r.Contacts() != 1 {
		t.Errorf("repeated down: selects=%d contacts=%d", f.selects, r.Contacts())
	}
	r.PointerUp(1, geom.Pt(60, 60))
	if r.State() != Idle || len(f.updates) != 0 {
		t.Errorf("tap: state=%v updates=%d", r.State(), len(f.updates))
	}
}

func TestDragMovesPositionOnly(t *testing.T) {
	start := document.Transform{X: 50, Y: 50, Rotation: 30, ScaleX: 1.5, ScaleY: -2}
	f, r := setup(start)

	r.PointerDown(1, geom.Pt(10, 10), Target{})
	r.PointerMove(1, geom.Pt(80, 40))
	if r.State() != Dragging {
		t.Fatalf("state = %v, want dragging", r.State())
	}
	assertTransform(t, f.transform("a"), document.Transform{X: 120, Y: 80, Rotation: 30, ScaleX: 1.5, ScaleY: -2})

	r.PointerUp(1, geom.Pt(85, 45))
	assertTransform(t, f.transform("a"), document.Transform{X: 125, Y: 85, Rotation: 30, ScaleX: 1.5, ScaleY: -2})
	if r.State() != Idle {
		t.Errorf("state after release = %v", r.State())
	}
}

func TestNotDraggable(t *testing.T) {
	f, r := setup(document.DefaultTransform())
	r.Draggable = false
	r.PointerDown(1, geom.Pt(10, 10), Target{})
	r.PointerMove(1, geom.Pt(80, 40))
	if r.State() != Selecting || len(f.updates) != 0 {
		t.Errorf("state=%v updates=%d", r.State(), len(f.updates))
	}
}

func TestPinchScalesAroundMidpoint(t *testing.T) {
	f, r := setup(document.Transform{X: 120, Y: 80, ScaleX: 1, ScaleY: 1})

	r.PointerDown(1, geom.Pt(110, 100), Target{})
	res := r.PointerDown(2, geom.Pt(210, 100), Target{})
	if r.State() != Pinching || !res.PreventDefault {
		t.Fatalf("state=%v preventDefault=%v", r.State(), res.PreventDefault)
	}
	if r.InitialDistance() != 100 {
		t.Fatalf("initial distance = %v", r.InitialDistance())
	}

	r.PointerMove(1, geom.Pt(60, 100))
	assertTransform(t, f.transform("a"), document.Transform{X: 100, Y: 70, ScaleX: 1.5, ScaleY: 1.5})

	r.PointerMove(2, geom.Pt(260, 100))
	assertTransform(t, f.transform("a"), document.Transform{X: 80, Y: 60, ScaleX: 2, ScaleY: 2})
}

func TestPinchProperty(t *testing.T) {
	testCases := []struct {
		name   string
		s0     document.Transform
		a0, b0 geom.Point
		b1     geom.Point
	}{
		{"Grow", document.Transform{X: 0, Y: 0, ScaleX: 1, ScaleY: 1}, geom.Pt(0, 0), geom.Pt(10, 0), geom.Pt(30, 0)},
		{"Shrink", document.Transform{X: 40, Y: -20, ScaleX: 2, ScaleY: 3}, geom.Pt(5, 5), geom.Pt(5, 105), geom.Pt(5, 55)},
		{"Flipped", document.Transform{X: 7, Y: 9, ScaleX: -1, ScaleY: 1, Rotation: 45}, geom.Pt(1, 1), geom.Pt(4, 5), geom.Pt(7, 9)},
	}
	for _, tc := range testCases {
		f, r := setup(tc.s0)
		r.PointerDown(1, tc.a0, Target{})
		r.PointerDown(2, tc.b0, Target{})
		r.PointerMove(2, tc.b1)

		ratio := geom.Distance(tc.a0, tc.b1) / geom.Distance(tc.a0, tc.b0)
		m0 := geom.Midpoint(tc.a0, tc.b0)
		want := tc.s0
		want.ScaleX *= ratio
		want.ScaleY *= ratio
		want.X = m0.X + (tc.s0.X-m0.X)*ratio
		want.Y = m0.Y + (tc.s0.Y-m0.Y)*ratio
		got := f.transform("a")
		if !near(got.X, want.X) || !near(got.Y, want.Y) || !near(got.ScaleX, want.ScaleX) ||
			!near(got.ScaleY, want.ScaleY) || got.Rotation != want.Rotation {
			t.Errorf("%s: got %+v, want %+v", tc.name, got, want)
		}
	}
}

func TestSecondContactCancelsDrag(t *testing.T) {
	f, r := setup(document.DefaultTransform())
	r.PointerDown(1, geom.Pt(0, 0), Target{})
	r.PointerMove(1, geom.Pt(10, 0))
	assertTransform(t, f.transform("a"), document.Transform{X: 60, Y: 50, ScaleX: 1, ScaleY: 1})

	r.PointerDown(2, geom.Pt(10, 100), Target{})
	if r.State() != Pinching {
		t.Fatalf("state = %v, want pinching", r.State())
	}
	// A drag would put the image at x=70 now; the pinch barely moves it.
	r.PointerMove(1, geom.Pt(20, 0))
	got := f.transform("a")
	if near(got.X, 70) && near(got.Y, 50) {
		t.Errorf("drag still applied: %+v", got)
	}
}

func TestPinchSuppressesDegenerateScale(t *testing.T) {
	f, r := setup(document.Transform{X: 0, Y: 0, ScaleX: 1, ScaleY: 1})
	r.PointerDown(1, geom.Pt(0, 0), Target{})
	r.PointerDown(2, geom.Pt(100, 0), Target{})

	r.PointerMove(2, geom.Pt(50, 0))
	assertTransform(t, f.transform("a"), document.Transform{X: 25, Y: 0, ScaleX: 0.5, ScaleY: 0.5})
	before := len(f.updates)

	r.PointerMove(2, geom.Pt(5, 0))
	r.PointerMove(2, geom.Pt(1, 0))
	if len(f.updates) != before {
		t.Errorf("degenerate pinch produced %d updates", len(f.updates)-before)
	}
	assertTransform(t, f.transform("a"), document.Transform{X: 25, Y: 0, ScaleX: 0.5, ScaleY: 0.5})
}

func TestPinchWaitsForNonZeroDistance(t *testing.T) {
	f, r := setup(document.Transform{X: 0, Y: 0, ScaleX: 1, ScaleY: 1})
	r.PointerDown(1, geom.Pt(100, 100), Target{})
	r.PointerDown(2, geom.Pt(100, 100), Target{})
	if r.InitialDistance() != 0 {
		t.Fatalf("coincident contacts established distance %v", r.InitialDistance())
	}

	r.PointerMove(2, geom.Pt(150, 100))
	if r.InitialDistance() != 50 || len(f.updates) != 0 {
		t.Fatalf("first reading: distance=%v updates=%d", r.InitialDistance(), len(f.updates))
	}

	r.PointerMove(2, geom.Pt(200, 100))
	m0 := geom.Pt(125, 100)
	want := document.Transform{X: m0.X - m0.X*2, Y: m0.Y - m0.Y*2, ScaleX: 2, ScaleY: 2}
	assertTransform(t, f.transform("a"), want)
}

func TestPinchEnd(t *testing.T) {
	f, r := setup(document.Transform{X: 0, Y: 0, ScaleX: 1, ScaleY: 1})
	r.PointerDown(1, geom.Pt(0, 0), Target{})
	r.PointerDown(2, geom.Pt(100, 0), Target{})
	r.PointerMove(2, geom.Pt(200, 0))

	res := r.PointerUp(2, geom.Pt(200, 0))
	if r.InitialDistance() != 0 || r.State() != Selecting || res.PreventDefault {
		t.Fatalf("after one lift: distance=%v state=%v prevent=%v", r.InitialDistance(), r.State(), res.PreventDefault)
	}

	// the remaining finger drags from where it is now
	r.PointerMove(1, geom.Pt(10, 0))
	got := f.transform("a")
	if !near(got.ScaleX, 2) || !near(got.X, -40) {
		t.Errorf("drag after pinch = %+v", got)
	}

	r.PointerUp(1, geom.Pt(10, 0))
	if r.State() != Idle || r.Contacts() != 0 {
		t.Errorf("state=%v contacts=%d", r.State(), r.Contacts())
	}
}

func TestThirdContactSuspendsPinch(t *testing.T) {
	f, r := setup(document.Transform{X: 0, Y: 0, ScaleX: 1, ScaleY: 1})
	r.PointerDown(1, geom.Pt(0, 0), Target{})
	r.PointerDown(2, geom.Pt(100, 0), Target{})
	r.PointerDown(3, geom.Pt(50, 50), Target{})

	r.PointerMove(2, geom.Pt(300, 0))
	if len(f.updates) != 0 {
		t.Fatalf("three contacts produced updates: %+v", f.updates)
	}

	r.PointerUp(3, geom.Pt(50, 50))
	if r.State() != Pinching || r.InitialDistance() != 0 {
		t.Fatalf("state=%v distance=%v", r.State(), r.InitialDistance())
	}
	r.PointerMove(2, geom.Pt(300, 0))
	r.PointerMove(2, geom.Pt(600, 0))
	assertTransform(t, f.transform("a"), document.Transform{X: -150, Y: 0, ScaleX: 2, ScaleY: 2})
}

func TestAnchorResizeCommitsScale(t *testing.T) {
	f, r := setup(document.DefaultTransform())
	size := geom.Size{Width: 100, Height: 50}

	// grabbed on the padded anchor, 10px outside the real corner
	r.PointerDown(1, geom.Pt(160, 110), Target{Handle: overlay.BottomRight, Size: size})
	if r.State() != Transforming {
		t.Fatalf("state = %v, want transforming", r.State())
	}
	r.PointerMove(1, geom.Pt(210, 135))
	want := document.Transform{X: 50, Y: 50, ScaleX: 1.5, ScaleY: 1.5}
	assertTransform(t, f.transform("a"), want)

	r.PointerUp(1, geom.Pt(210, 135))
	assertTransform(t, f.transform("a"), want)
	if r.State() != Idle {
		t.Errorf("state after release = %v", r.State())
	}
}

func TestAnchorResizeRejectsTinyBox(t *testing.T) {
	f, r := setup(document.DefaultTransform())
	size := geom.Size{Width: 100, Height: 50}
	r.PointerDown(1, geom.Pt(150, 75), Target{Handle: overlay.MiddleRight, Size: size})

	r.PointerMove(1, geom.Pt(53, 75))
	assertTransform(t, f.transform("a"), document.DefaultTransform())

	r.PointerMove(1, geom.Pt(60, 75))
	assertTransform(t, f.transform("a"), document.Transform{X: 50, Y: 50, ScaleX: 0.1, ScaleY: 1})
}

func TestAnchorResizeKeepsBoxOnDegenerateScale(t *testing.T) {
	f, r := setup(document.DefaultTransform())
	size := geom.Size{Width: 1000, Height: 1000}
	r.PointerDown(1, geom.Pt(1050, 550), Target{Handle: overlay.MiddleRight, Size: size})

	// 8px wide passes the box minimum but scales below MinScale
	r.PointerMove(1, geom.Pt(58, 550))
	assertTransform(t, f.transform("a"), document.DefaultTransform())
	if r.box.Width != 1000 {
		t.Fatalf("box width = %v after rejected resize, want 1000", r.box.Width)
	}

	r.PointerMove(1, geom.Pt(150, 550))
	assertTransform(t, f.transform("a"), document.Transform{X: 50, Y: 50, ScaleX: 0.1, ScaleY: 1})
	if !near(r.box.Width, 100) {
		t.Errorf("box width = %v, want 100", r.box.Width)
	}
}

func TestRotaterTurnsAroundCenter(t *testing.T) {
	f, r := setup(document.Transform{X: 0, Y: 0, ScaleX: 1, ScaleY: 1})
	size := geom.Size{Width: 100, Height: 100}
	r.PointerDown(1, geom.Pt(50, -80), Target{Handle: overlay.Rotater, Size: size})
	r.PointerMove(1, geom.Pt(150, 50))
	assertTransform(t, f.transform("a"), document.Transform{X: 100, Y: 0, Rotation: 90, ScaleX: 1, ScaleY: 1})
}

func TestHandleIgnoredWithoutSize(t *testing.T) {
	_, r := setup(document.DefaultTransform())
	r.PointerDown(1, geom.Pt(0, 0), Target{Handle: overlay.BottomRight})
	if r.State() != Selecting {
		t.Errorf("state = %v, want selecting", r.State())
	}
}

func TestCancel(t *testing.T) {
	_, r := setup(document.DefaultTransform())
	r.PointerDown(1, geom.Pt(0, 0), Target{})
	r.PointerDown(2, geom.Pt(10, 0), Target{})
	r.Cancel()
	if r.State() != Idle || r.Contacts() != 0 || r.InitialDistance() != 0 {
		t.Errorf("state=%v contacts=%d distance=%v", r.State(), r.Contacts(), r.InitialDistance())
	}
	if r.PointerMove(1, geom.Pt(5, 5)).PreventDefault {
		t.Error("cancelled router still consuming")
	}
}
