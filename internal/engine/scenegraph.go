package engine

import (
	"github.com/tracelay/tracelay/backend-go/internal/geom"
	"github.com/tracelay/tracelay/backend-go/internal/overlay"
)

// SceneGraph is the render-ready state of the overlay collection.
// It is rebuilt from the engine's images whenever they change.
type SceneGraph struct {
	Nodes     []*SceneNode // paint order, back to front
	NodesById map[string]*SceneNode

	// Pending is set when some node's image data was not available yet.
	Pending bool
}

// SceneNode is one image resolved for rendering and hit testing.
type SceneNode struct {
	ID        string
	SourceRef string

	WorldTransform geom.Matrix2D
	Opacity        float64
	Size           geom.Size // natural size; zero while the image is pending
	Selected       bool

	// Box is the rotated frame the handles are bound to.
	Box overlay.Box

	// Visuals are the painted elements: image, outline, handles.
	Visuals []overlay.Visual

	// Hit testing
	Bounds geom.Rect // axis-aligned bounding box in world space
}

// NewSceneGraph creates an empty scene graph.
func NewSceneGraph() *SceneGraph {
	return &SceneGraph{
		NodesById: make(map[string]*SceneNode),
	}
}

// Renderable reports whether the node's pixels are available.
func (n *SceneNode) Renderable() bool {
	return !n.Size.IsZero()
}
