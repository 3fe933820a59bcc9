package engine

import (
	"github.com/tracelay/tracelay/backend-go/internal/document"
	"github.com/tracelay/tracelay/backend-go/internal/geom"
	"github.com/tracelay/tracelay/backend-go/internal/overlay"
)

// BuildSceneGraph builds a render-ready scene graph from the image collection.
// sizeOf resolves natural sizes; a zero size leaves the node unpainted.
func BuildSceneGraph(
	images []document.ImageTransform,
	sizeOf func(ref string) geom.Size,
	selectedID string,
	handles *overlay.HandleSet,
) *SceneGraph {
	sg := NewSceneGraph()

	for _, img := range images {
		size := sizeOf(img.SourceRef)
		selected := img.ID == selectedID
		t := img.Transform

		node := &SceneNode{
			ID:             img.ID,
			SourceRef:      img.SourceRef,
			WorldTransform: geom.FromTransform(t.X, t.Y, t.ScaleX, t.ScaleY, t.Rotation),
			Opacity:        img.Opacity,
			Size:           size,
			Selected:       selected,
			Box:            overlay.BoxOf(t, size),
			Visuals:        overlay.Render(img, size, selected, handles),
		}
		if node.Renderable() {
			node.Bounds = node.Box.Bounds()
		} else {
			sg.Pending = true
		}

		sg.Nodes = append(sg.Nodes, node)
		sg.NodesById[img.ID] = node
	}

	return sg
}
