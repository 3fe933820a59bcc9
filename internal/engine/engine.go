package engine

import (
	"encoding/json"
	"log/slog"
	"slices"

	"github.com/tracelay/tracelay/backend-go/internal/document"
	"github.com/tracelay/tracelay/backend-go/internal/geom"
	"github.com/tracelay/tracelay/backend-go/internal/gesture"
	"github.com/tracelay/tracelay/backend-go/internal/overlay"
	"github.com/tracelay/tracelay/backend-go/internal/typeid"
)

// ImageSource resolves the natural size of decoded pixel data by source ref.
// An error means the image is not renderable yet.
type ImageSource interface {
	Resolve(ref string) (geom.Size, error)
}

// Engine is the scene controller. It owns the ordered image collection and
// the selection, and is the only writer of both. An Engine is not safe for
// concurrent use; callers drive it from a single event loop.
type Engine struct {
	images     []document.ImageTransform
	selectedID string

	// The one handle set, bound to the selection.
	handles *overlay.HandleSet

	// Gesture routing
	routers  map[string]*gesture.Router
	captures map[int]string // pointerID -> object id

	// Image data
	source ImageSource
	sizes  map[string]geom.Size

	newID  func() string
	logger *slog.Logger

	// Retained scene graph
	sceneGraph *SceneGraph
	dirty      bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithImageSource sets the collaborator used to resolve natural image sizes.
func WithImageSource(src ImageSource) Option {
	return func(e *Engine) { e.source = src }
}

// WithIDGenerator replaces the default typeid generator for new images.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an empty scene.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		handles:    overlay.NewHandleSet(overlay.FineStyle),
		routers:    make(map[string]*gesture.Router),
		captures:   make(map[int]string),
		sizes:      make(map[string]geom.Size),
		newID:      typeid.NewImageID,
		logger:     slog.Default(),
		sceneGraph: NewSceneGraph(),
		dirty:      true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --- Mutations ---

// Add appends a new image with the default transform, selects it and returns its id.
func (e *Engine) Add(sourceRef string) string {
	id := e.newID()
	for e.indexOf(id) >= 0 {
		id = e.newID()
	}
	e.images = append(e.images, document.NewImageTransform(id, sourceRef))
	e.routers[id] = gesture.NewRouter(id, e, e.handles)
	e.Select(id)
	e.dirty = true

	e.logger.Debug("image added", "id", id, "src", sourceRef)
	return id
}

// Update replaces the transform of id. Unknown ids and degenerate transforms
// are ignored and the previous transform is kept. Order never changes.
func (e *Engine) Update(id string, t document.Transform) {
	i := e.indexOf(id)
	if i < 0 {
		return
	}
	if err := t.Validate(); err != nil {
		e.logger.Debug("transform rejected", "id", id, "error", err)
		return
	}
	e.images[i].Transform = t
	e.dirty = true
}

// Remove deletes id. Removing the selected image clears the selection.
func (e *Engine) Remove(id string) {
	i := e.indexOf(id)
	if i < 0 {
		return
	}
	e.images = slices.Delete(e.images, i, i+1)

	if r, ok := e.routers[id]; ok {
		r.Cancel()
		delete(e.routers, id)
	}
	for pointerID, owner := range e.captures {
		if owner == id {
			delete(e.captures, pointerID)
		}
	}
	if e.selectedID == id {
		e.Deselect()
	}
	e.dirty = true

	e.logger.Debug("image removed", "id", id)
}

// RemoveSelected deletes the selected image, if any.
func (e *Engine) RemoveSelected() {
	if e.selectedID != "" {
		e.Remove(e.selectedID)
	}
}

// Select makes id the selection and binds the handles to it.
// An empty id deselects; an unknown id is ignored.
func (e *Engine) Select(id string) {
	if id == "" {
		e.Deselect()
		return
	}
	if e.indexOf(id) < 0 || e.selectedID == id {
		return
	}
	e.selectedID = id
	e.handles.Bind(id)
	e.dirty = true
}

// Deselect clears the selection and detaches the handles.
func (e *Engine) Deselect() {
	if e.selectedID == "" {
		return
	}
	e.selectedID = ""
	e.handles.Detach()
	e.dirty = true
}

// SetOpacity sets the opacity of the selected image. The value is not
// clamped; the opacity control is responsible for keeping it in [0, 1].
func (e *Engine) SetOpacity(value float64) {
	i := e.indexOf(e.selectedID)
	if i < 0 {
		return
	}
	e.images[i].Opacity = value
	e.dirty = true
}

// SetPointerType switches the handle style between touch and mouse sizing.
func (e *Engine) SetPointerType(coarse bool) {
	e.handles.Style = overlay.StyleFor(coarse)
	e.dirty = true
}

// SetImageSize records the natural size of a source decoded by the host.
func (e *Engine) SetImageSize(ref string, width, height float64) {
	e.sizes[ref] = geom.Size{Width: width, Height: height}
	e.dirty = true
}

// --- Input ---

// PointerDown routes a new contact. Handles of the selected image are tested
// first, then images front to back; a press on empty background deselects.
// While an image is already being touched, further contacts join its gesture.
// Contacts arriving during a handle drag are ignored.
func (e *Engine) PointerDown(pointerID int, x, y float64) gesture.Result {
	p := geom.Pt(x, y)

	if r := e.activeRouter(); r != nil {
		if r.State() == gesture.Transforming {
			// a handle drag is single-pointer; extra contacts are ignored
			return gesture.Result{}
		}
		e.captures[pointerID] = r.ID()
		return r.PointerDown(pointerID, p, gesture.Target{})
	}

	sg := e.graph()
	if node, ok := sg.NodesById[e.selectedID]; ok && node.Renderable() && e.handles.BoundTo(node.ID) {
		if kind := e.handles.HitTest(node.Box, p); kind != overlay.HandleNone {
			return e.route(pointerID, node.ID, p, gesture.Target{Handle: kind, Size: node.Size})
		}
	}

	if id := HitTest(sg, x, y); id != "" {
		return e.route(pointerID, id, p, gesture.Target{Size: sg.NodesById[id].Size})
	}

	e.Deselect()
	return gesture.Result{}
}

// PointerMove forwards a move to the image that captured the pointer.
func (e *Engine) PointerMove(pointerID int, x, y float64) gesture.Result {
	r := e.captured(pointerID)
	if r == nil {
		return gesture.Result{}
	}
	return r.PointerMove(pointerID, geom.Pt(x, y))
}

// PointerUp releases a pointer and commits its gesture.
func (e *Engine) PointerUp(pointerID int, x, y float64) gesture.Result {
	r := e.captured(pointerID)
	delete(e.captures, pointerID)
	if r == nil {
		return gesture.Result{}
	}
	return r.PointerUp(pointerID, geom.Pt(x, y))
}

// PointerCancel aborts the gesture the pointer belongs to.
func (e *Engine) PointerCancel(pointerID int) {
	r := e.captured(pointerID)
	if r == nil {
		delete(e.captures, pointerID)
		return
	}
	r.Cancel()
	for id, owner := range e.captures {
		if owner == r.ID() {
			delete(e.captures, id)
		}
	}
}

func (e *Engine) route(pointerID int, id string, p geom.Point, target gesture.Target) gesture.Result {
	r, ok := e.routers[id]
	if !ok {
		return gesture.Result{}
	}
	e.captures[pointerID] = id
	return r.PointerDown(pointerID, p, target)
}

func (e *Engine) captured(pointerID int) *gesture.Router {
	id, ok := e.captures[pointerID]
	if !ok {
		return nil
	}
	return e.routers[id]
}

func (e *Engine) activeRouter() *gesture.Router {
	for _, id := range e.captures {
		if r, ok := e.routers[id]; ok && r.Contacts() > 0 {
			return r
		}
	}
	return nil
}

// --- Queries ---

// Image returns a copy of the image with the given id.
func (e *Engine) Image(id string) (document.ImageTransform, bool) {
	i := e.indexOf(id)
	if i < 0 {
		return document.ImageTransform{}, false
	}
	return e.images[i], true
}

// Images returns a copy of the collection in paint order.
func (e *Engine) Images() []document.ImageTransform {
	return slices.Clone(e.images)
}

// Selected returns the selected image id.
func (e *Engine) Selected() (string, bool) {
	return e.selectedID, e.selectedID != ""
}

// Len returns the number of images.
func (e *Engine) Len() int {
	return len(e.images)
}

// Router returns the gesture router of id.
func (e *Engine) Router(id string) (*gesture.Router, bool) {
	r, ok := e.routers[id]
	return r, ok
}

// Commands compiles the current scene into draw commands.
func (e *Engine) Commands() []DrawCommand {
	return CompileDrawCommands(e.graph())
}

// Render evaluates the scene graph and returns draw commands as JSON.
func (e *Engine) Render() string {
	result, err := DrawCommandsToJSON(e.Commands())
	if err != nil {
		e.logger.Error("marshal draw commands", "error", err)
	}
	return result
}

// HitTest returns the id of the topmost image at the given coordinates, or empty string.
func (e *Engine) HitTest(x, y float64) string {
	return HitTest(e.graph(), x, y)
}

// GetSelectionBounds returns the bounding box of the selected image as JSON.
func (e *Engine) GetSelectionBounds() string {
	if e.selectedID == "" {
		return RectToJSON(geom.Rect{})
	}
	return RectToJSON(GetSelectionBounds(e.graph(), e.selectedID))
}

// State is a snapshot of the collection and selection.
type State struct {
	Images   []document.ImageTransform `json:"images"`
	Selected *string                   `json:"selected"`
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() State {
	s := State{Images: e.Images()}
	if s.Images == nil {
		s.Images = []document.ImageTransform{}
	}
	if id, ok := e.Selected(); ok {
		s.Selected = &id
	}
	return s
}

// GetState returns the collection and selection as JSON.
func (e *Engine) GetState() string {
	data, _ := json.Marshal(e.Snapshot())
	return string(data)
}

// GetSelection returns the selected id as JSON (null when nothing is selected).
func (e *Engine) GetSelection() string {
	data, _ := json.Marshal(e.Snapshot().Selected)
	return string(data)
}

// --- internals ---

func (e *Engine) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(e.images, func(img document.ImageTransform) bool {
		return img.ID == id
	})
}

// graph rebuilds the scene graph if dirty and returns it. A graph built with
// pending images is stale, since their data may have resolved since.
func (e *Engine) graph() *SceneGraph {
	if e.dirty || e.sceneGraph.Pending {
		e.sceneGraph = BuildSceneGraph(e.images, e.sizeOf, e.selectedID, e.handles)
		e.dirty = false
	}
	return e.sceneGraph
}

func (e *Engine) sizeOf(ref string) geom.Size {
	if s, ok := e.sizes[ref]; ok {
		return s
	}
	if e.source == nil {
		return geom.Size{}
	}
	s, err := e.source.Resolve(ref)
	if err != nil {
		e.logger.Debug("image pending", "src", ref, "error", err)
		return geom.Size{}
	}
	e.sizes[ref] = s
	return s
}
