// Package rebase re-expresses animated transforms between parent-space
// conventions and bakes world-space motion back into decomposed
// per-frame samples.
package rebase

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/animbridge/rotation"
	"github.com/mogaika/animbridge/scene"
)

// Convention names what a "local transform" is measured against.
type Convention int

const (
	// ConventionRestSpace: curves are relative to the node's own
	// bind/rest pose (scene-graph hosts).
	ConventionRestSpace Convention = iota
	// ConventionParentSpace: curves are relative to the immediate
	// parent's current pose (the interchange format).
	ConventionParentSpace
)

func (c Convention) String() string {
	if c == ConventionRestSpace {
		return "rest-space"
	}
	return "parent-space"
}

const scaleEpsilon = 1e-8

// DegenerateScaleError reports a bake decomposition whose scale
// collapsed to zero, leaving the rotation unrecoverable.
type DegenerateScaleError struct {
	Node  string
	Frame int
	Scale mgl64.Vec3
}

func (e *DegenerateScaleError) Error() string {
	return fmt.Sprintf("degenerate scale %v on node %q at frame %d", e.Scale, e.Node, e.Frame)
}

// ResolveLocal samples the node's animated local transform at frame
// and re-expresses it from the src convention into dst.
//
// The full ancestor chain walk collapses algebraically: the world
// transform is parentWorld * rest * sample, so removing the parent's
// current world leaves rest * sample, and removing the node's own rest
// leaves the host sample unchanged. Root nodes fall out of the same
// arithmetic since their rest already is a world-origin transform.
func ResolveLocal(h scene.Host, g *scene.Graph, node int, frame int,
	src, dst Convention) (scene.TransformSample, error) {
	s, err := h.LocalAt(node, frame)
	if err != nil {
		return scene.TransformSample{}, errors.Wrapf(err, "sampling %q at frame %d", g.Nodes[node].Name, frame)
	}
	return Rebase(g, node, frame, s, src, dst)
}

// Rebase re-expresses an already sampled transform between conventions.
// Import paths use this directly since their samples come from channel
// data, not from the host.
func Rebase(g *scene.Graph, node int, frame int, s scene.TransformSample,
	src, dst Convention) (scene.TransformSample, error) {
	if src == dst {
		return s, nil
	}

	rest := g.Nodes[node].Rest
	var m mgl64.Mat4
	if dst == ConventionParentSpace {
		m = rest.Mul4(s.Mat4())
	} else {
		m = rest.Inv().Mul4(s.Mat4())
	}
	return Decompose(g.Nodes[node].Name, frame, m)
}

// Bake samples the node's full world transform at frame, applies the
// uniform boneScale to translation and scale (rotation is
// scale-invariant) and decomposes the result.
func Bake(h scene.Host, g *scene.Graph, node int, frame int, boneScale float64) (scene.TransformSample, error) {
	w, err := scene.WorldAt(h, g, node, frame)
	if err != nil {
		return scene.TransformSample{}, err
	}
	s, err := Decompose(g.Nodes[node].Name, frame, w)
	if err != nil {
		return scene.TransformSample{}, err
	}
	s.Translation = s.Translation.Mul(boneScale)
	s.Scale = s.Scale.Mul(boneScale)
	return s, nil
}

// Unbake inverts Bake for one imported world-space sample: the uniform
// boneScale comes off translation and scale, then the parent's current
// world transform and the node's own rest pose come off the matrix,
// leaving a rest-space local sample. The parent's world is sampled
// from the host, so ancestors must already carry their imported keys.
func Unbake(h scene.Host, g *scene.Graph, node int, frame int, boneScale float64,
	s scene.TransformSample) (scene.TransformSample, error) {
	s.Translation = s.Translation.Mul(1 / boneScale)
	s.Scale = s.Scale.Mul(1 / boneScale)

	m := g.Nodes[node].Rest.Inv()
	if p := g.Nodes[node].Parent; p != scene.NoParent {
		w, err := scene.WorldAt(h, g, p, frame)
		if err != nil {
			return scene.TransformSample{}, err
		}
		m = m.Mul4(w.Inv())
	}
	return Decompose(g.Nodes[node].Name, frame, m.Mul4(s.Mat4()))
}

// Decompose splits m into translation, rotation and scale in that
// extraction order. A mirrored matrix (negative determinant) folds its
// sign onto the X scale axis, always the same axis, so rotation curves
// stay continuous across runs regardless of input ordering.
func Decompose(node string, frame int, m mgl64.Mat4) (scene.TransformSample, error) {
	t := mgl64.Vec3{m.At(0, 3), m.At(1, 3), m.At(2, 3)}

	cols := [3]mgl64.Vec3{
		{m.At(0, 0), m.At(1, 0), m.At(2, 0)},
		{m.At(0, 1), m.At(1, 1), m.At(2, 1)},
		{m.At(0, 2), m.At(1, 2), m.At(2, 2)},
	}
	s := mgl64.Vec3{cols[0].Len(), cols[1].Len(), cols[2].Len()}
	for n := 0; n < 3; n++ {
		if s[n] < scaleEpsilon {
			return scene.TransformSample{}, &DegenerateScaleError{Node: node, Frame: frame, Scale: s}
		}
	}

	if m.Mat3().Det() < 0 {
		s[0] = -s[0]
	}

	r := mgl64.Mat4FromCols(
		cols[0].Mul(1/s[0]).Vec4(0),
		cols[1].Mul(1/s[1]).Vec4(0),
		cols[2].Mul(1/s[2]).Vec4(0),
		mgl64.Vec4{0, 0, 0, 1},
	)
	q := mgl64.Mat4ToQuat(r).Normalize()

	return scene.TransformSample{
		Translation: t,
		Rotation:    rotation.NewQuaternion(q),
		Scale:       s,
	}, nil
}
