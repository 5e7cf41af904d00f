// Package scene models the animatable hierarchy this engine reads
// from and writes to. Nodes live in a flat per-run table and reference
// parents by index; the surrounding application owns node lifetime and
// is reached only through the Host interface.
package scene

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/animbridge/rotation"
)

const NoParent = -1

// Property identifies one animated transform component group.
type Property int

const (
	PropTranslation Property = iota
	PropRotation
	PropScale
)

var propertyNames = [...]string{"translation", "rotation", "scale"}

func (p Property) String() string { return propertyNames[p] }

var Properties = [...]Property{PropTranslation, PropRotation, PropScale}

// TransformSample is one frame's decomposed transform.
type TransformSample struct {
	Translation mgl64.Vec3
	Rotation    rotation.Rotation
	Scale       mgl64.Vec3
}

func IdentitySample() TransformSample {
	return TransformSample{
		Rotation: rotation.NewQuaternion(mgl64.QuatIdent()),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// Mat4 composes translation * rotation * scale.
func (s TransformSample) Mat4() mgl64.Mat4 {
	t := s.Translation
	m := mgl64.Translate3D(t[0], t[1], t[2])
	m = m.Mul4(s.Rotation.Quaternion().Mat4())
	return m.Mul4(mgl64.Scale3D(s.Scale[0], s.Scale[1], s.Scale[2]))
}

// Node describes one animatable entity. Rest is the rest-pose
// transform relative to the parent (or to the scene origin for roots).
type Node struct {
	Name      string
	Parent    int
	Rest      mgl64.Mat4
	RestScale mgl64.Vec3
	Mode      rotation.Mode
	Deform    bool
}

// Graph is the flat node table owned by a single conversion run.
type Graph struct {
	Nodes  []Node
	byName map[string]int
}

func NewGraph(nodes []Node) (*Graph, error) {
	g := &Graph{
		Nodes:  nodes,
		byName: make(map[string]int, len(nodes)),
	}
	for i := range nodes {
		n := &nodes[i]
		if _, dup := g.byName[n.Name]; dup {
			return nil, errors.Errorf("Duplicate node name %q in hierarchy", n.Name)
		}
		g.byName[n.Name] = i
		if n.Parent != NoParent && (n.Parent < 0 || n.Parent >= len(nodes)) {
			return nil, errors.Errorf("Node %q references parent %d outside table", n.Name, n.Parent)
		}
		if n.Parent >= i {
			return nil, errors.Errorf("Node %q must come after its parent in the table", n.Name)
		}
	}
	return g, nil
}

func (g *Graph) Lookup(name string) (int, bool) {
	i, ok := g.byName[name]
	return i, ok
}

// RestWorld multiplies rest transforms down the ancestor chain.
func (g *Graph) RestWorld(node int) mgl64.Mat4 {
	m := g.Nodes[node].Rest
	for p := g.Nodes[node].Parent; p != NoParent; p = g.Nodes[p].Parent {
		m = g.Nodes[p].Rest.Mul4(m)
	}
	return m
}

// Host is the scene collaborator: hierarchy snapshot, per-frame local
// transforms (in the host's native rest-space convention), keyframe
// queries and write-back for import.
type Host interface {
	Graph() (*Graph, error)
	// LocalAt samples the node's animated local transform at frame,
	// expressed relative to the node's rest pose.
	LocalAt(node int, frame int) (TransformSample, error)
	// KeyedFrames lists frames carrying keys for one property group,
	// ascending. Empty means the property is not animated.
	KeyedFrames(node int, prop Property) ([]int, error)
	FrameRange() (start, end int)
	FrameRate() float64
	// SetLocal writes an imported sample at frame, keying only the
	// listed properties.
	SetLocal(node int, frame int, props []Property, s TransformSample) error
}

// WorldAt chains animated local transforms (converted to parent space
// through each node's rest pose) from the root down to node.
func WorldAt(h Host, g *Graph, node int, frame int) (mgl64.Mat4, error) {
	m := mgl64.Ident4()
	for i := node; i != NoParent; i = g.Nodes[i].Parent {
		s, err := h.LocalAt(i, frame)
		if err != nil {
			return mgl64.Mat4{}, errors.Wrapf(err, "sampling %q at frame %d", g.Nodes[i].Name, frame)
		}
		m = g.Nodes[i].Rest.Mul4(s.Mat4()).Mul4(m)
	}
	return m, nil
}
