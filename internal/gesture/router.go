package gesture

import (
	"math"
	"slices"

	"github.com/tracelay/tracelay/backend-go/internal/document"
	"github.com/tracelay/tracelay/backend-go/internal/geom"
	"github.com/tracelay/tracelay/backend-go/internal/overlay"
)

// State is the phase of the pointer sequence an object is handling.
type State int

const (
	Idle State = iota
	Selecting
	Dragging
	Transforming
	Pinching
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Dragging:
		return "dragging"
	case Transforming:
		return "transforming"
	case Pinching:
		return "pinching"
	}
	return "unknown"
}

// Controller owns the scene. The router only reads images from it and
// requests mutations; it never changes state itself.
type Controller interface {
	Image(id string) (document.ImageTransform, bool)
	Select(id string)
	Update(id string, t document.Transform)
}

// Target describes what the first contact landed on.
type Target struct {
	Handle overlay.HandleKind
	Size   geom.Size
}

// Result tells the host how to treat the platform event.
type Result struct {
	// PreventDefault is set while the router consumes a two-finger
	// interaction, so the page must not scroll or zoom.
	PreventDefault bool
}

type pinchState struct {
	initialDistance float64
	initialScaleX   float64
	initialScaleY   float64
	initialPosition geom.Point
	initialMidpoint geom.Point
}

// Router turns the raw contacts on one object into transform requests.
type Router struct {
	id        string
	ctl       Controller
	handles   *overlay.HandleSet
	Draggable bool

	state    State
	contacts map[int]geom.Point
	order    []int

	// single contact drag
	dragPointer int
	dragStart   geom.Point
	dragOrigin  geom.Point

	// handle drag
	handle        overlay.HandleKind
	handlePointer int
	size          geom.Size
	startBox      overlay.Box
	box           overlay.Box
	grab          geom.Point

	pinch pinchState
}

// NewRouter returns an idle router for object id.
func NewRouter(id string, ctl Controller, handles *overlay.HandleSet) *Router {
	return &Router{
		id:        id,
		ctl:       ctl,
		handles:   handles,
		Draggable: true,
		contacts:  make(map[int]geom.Point),
	}
}

// ID returns the object this router belongs to.
func (r *Router) ID() string {
	return r.id
}

// State returns the current gesture state.
func (r *Router) State() State {
	return r.state
}

// Contacts returns the number of active contact points.
func (r *Router) Contacts() int {
	return len(r.contacts)
}

// Holds reports whether pointerID is one of this router's contacts.
func (r *Router) Holds(pointerID int) bool {
	_, ok := r.contacts[pointerID]
	return ok
}

// InitialDistance returns the recorded pinch distance; zero means not established.
func (r *Router) InitialDistance() float64 {
	return r.pinch.initialDistance
}

// PointerDown registers a new contact on the object.
func (r *Router) PointerDown(pointerID int, p geom.Point, target Target) Result {
	if r.Holds(pointerID) {
		return r.result()
	}
	r.contacts[pointerID] = p
	r.order = append(r.order, pointerID)

	switch len(r.contacts) {
	case 1:
		r.ctl.Select(r.id)
		r.state = Selecting
		if target.Handle != overlay.HandleNone && !target.Size.IsZero() {
			r.beginTransform(pointerID, p, target)
		} else {
			r.beginDrag(pointerID, p)
		}
	case 2:
		if r.state == Selecting || r.state == Dragging {
			// the drag in progress is dropped, never mixed with the pinch
			r.state = Pinching
			r.beginPinch()
		}
	default:
		if r.state == Pinching {
			r.pinch.initialDistance = 0
		}
	}
	return r.result()
}

// PointerMove moves an existing contact.
func (r *Router) PointerMove(pointerID int, p geom.Point) Result {
	if !r.Holds(pointerID) {
		return r.result()
	}
	r.contacts[pointerID] = p

	switch r.state {
	case Selecting:
		if len(r.contacts) == 1 && r.Draggable && pointerID == r.dragPointer && p != r.dragStart {
			r.state = Dragging
			r.drag(p)
		}
	case Dragging:
		if pointerID == r.dragPointer {
			r.drag(p)
		}
	case Transforming:
		if pointerID == r.handlePointer {
			r.transform(p)
		}
	case Pinching:
		if len(r.contacts) == 2 {
			r.pinchMove()
		}
	}
	return r.result()
}

// PointerUp lifts a contact. The commit uses the position carried by the
// release so it reflects the last observed pointer.
func (r *Router) PointerUp(pointerID int, p geom.Point) Result {
	if !r.Holds(pointerID) {
		return r.result()
	}
	r.contacts[pointerID] = p

	switch r.state {
	case Dragging:
		if pointerID == r.dragPointer {
			r.drag(p)
			r.state = Selecting
		}
	case Transforming:
		if pointerID == r.handlePointer {
			r.transform(p)
			r.handle = overlay.HandleNone
			r.state = Selecting
		}
	}

	r.removeContact(pointerID)

	if r.state == Pinching {
		switch n := len(r.contacts); {
		case n >= 2:
			r.pinch.initialDistance = 0
		case n == 1:
			r.pinch.initialDistance = 0
			r.state = Selecting
			rest := r.order[0]
			r.beginDrag(rest, r.contacts[rest])
		}
	}

	if len(r.contacts) == 0 {
		r.reset()
	}
	return r.result()
}

// Cancel drops every contact and returns to Idle without committing.
func (r *Router) Cancel() {
	clear(r.contacts)
	r.order = r.order[:0]
	r.reset()
}

func (r *Router) reset() {
	r.state = Idle
	r.handle = overlay.HandleNone
	r.pinch = pinchState{}
}

func (r *Router) removeContact(pointerID int) {
	delete(r.contacts, pointerID)
	if i := slices.Index(r.order, pointerID); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}

func (r *Router) result() Result {
	return Result{PreventDefault: r.state == Pinching || len(r.contacts) >= 2}
}

func (r *Router) current() (document.Transform, bool) {
	img, ok := r.ctl.Image(r.id)
	if !ok {
		return document.Transform{}, false
	}
	return img.Transform, true
}

// --- drag ---

func (r *Router) beginDrag(pointerID int, p geom.Point) {
	r.dragPointer = pointerID
	r.dragStart = p
	if t, ok := r.current(); ok {
		r.dragOrigin = geom.Pt(t.X, t.Y)
	}
}

func (r *Router) drag(p geom.Point) {
	t, ok := r.current()
	if !ok {
		return
	}
	pos := r.dragOrigin.Add(p.Sub(r.dragStart))
	r.ctl.Update(r.id, t.WithPosition(pos.X, pos.Y))
}

// --- handles ---

func (r *Router) beginTransform(pointerID int, p geom.Point, target Target) {
	t, ok := r.current()
	if !ok {
		return
	}
	r.state = Transforming
	r.handle = target.Handle
	r.handlePointer = pointerID
	r.size = target.Size
	r.startBox = overlay.BoxOf(t, target.Size)
	r.box = r.startBox
	if target.Handle.IsAnchor() {
		r.grab = r.startBox.ToLocal(p).Sub(overlay.AnchorPoint(r.startBox, target.Handle))
	}
}

func (r *Router) transform(p geom.Point) {
	var proposed overlay.Box
	switch {
	case r.handle == overlay.Rotater:
		proposed = overlay.Rotate(r.box, p)
	case r.handle.IsAnchor():
		local := r.startBox.ToLocal(p).Sub(r.grab)
		keepRatio := r.handles != nil && r.handles.Style.KeepRatio
		proposed = overlay.Resize(r.startBox, r.handle, local, keepRatio)
	default:
		return
	}
	box := overlay.BoundBox(r.box, proposed)
	t := box.Transform(r.size)
	if err := t.Validate(); err != nil {
		// the box must keep matching the stored transform
		return
	}
	r.box = box
	r.ctl.Update(r.id, t)
}

// --- pinch ---

func (r *Router) pair() (geom.Point, geom.Point) {
	return r.contacts[r.order[0]], r.contacts[r.order[1]]
}

func (r *Router) beginPinch() {
	r.pinch = pinchState{}
	a, b := r.pair()
	if d := geom.Distance(a, b); d > 0 {
		r.establishPinch(d, geom.Midpoint(a, b))
	}
}

func (r *Router) establishPinch(distance float64, midpoint geom.Point) {
	t, ok := r.current()
	if !ok {
		return
	}
	r.pinch = pinchState{
		initialDistance: distance,
		initialScaleX:   t.ScaleX,
		initialScaleY:   t.ScaleY,
		initialPosition: geom.Pt(t.X, t.Y),
		initialMidpoint: midpoint,
	}
}

func (r *Router) pinchMove() {
	a, b := r.pair()
	d := geom.Distance(a, b)

	if r.pinch.initialDistance == 0 {
		if d > 0 {
			r.establishPinch(d, geom.Midpoint(a, b))
		}
		return
	}

	t, ok := r.current()
	if !ok {
		return
	}
	ratio := d / r.pinch.initialDistance
	sx := r.pinch.initialScaleX * ratio
	sy := r.pinch.initialScaleY * ratio
	if math.Abs(sx) <= document.MinScale || math.Abs(sy) <= document.MinScale {
		return
	}

	m0 := r.pinch.initialMidpoint
	pos := m0.Add(r.pinch.initialPosition.Sub(m0).Mul(ratio))
	t.X, t.Y = pos.X, pos.Y
	t.ScaleX, t.ScaleY = sx, sy
	r.ctl.Update(r.id, t)
}
