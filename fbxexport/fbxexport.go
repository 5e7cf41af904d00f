// Package fbxexport renders a host scene and its animation into a
// binary FBX 7.4 document. Nodes become null models carrying their
// parent-relative transform; keyed properties become one animation
// stack of per-axis curves.
package fbxexport

import (
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mogaika/fbx"
	"github.com/mogaika/fbx/builders/bfbx73"

	"github.com/mogaika/animbridge/rebase"
	"github.com/mogaika/animbridge/rotation"
	"github.com/mogaika/animbridge/scene"
	"github.com/mogaika/animbridge/utils"
)

// FBX time resolution, ticks per second.
const ktimePerSecond = 46186158000

// eInterpolationLinear keyframe flag.
const keyLinear = 4

var lclProperties = map[scene.Property]string{
	scene.PropTranslation: "Lcl Translation",
	scene.PropRotation:    "Lcl Rotation",
	scene.PropScale:       "Lcl Scaling",
}

var curveNodeTags = map[scene.Property]string{
	scene.PropTranslation: "T",
	scene.PropRotation:    "R",
	scene.PropScale:       "S",
}

// Export writes the scene as a binary .fbx.
func Export(w io.Writer, h scene.Host, name string) error {
	b, err := Build(h, name)
	if err != nil {
		return err
	}
	return b.Write(w)
}

// Build assembles the document without serializing it.
func Build(h scene.Host, name string) (*Builder, error) {
	g, err := h.Graph()
	if err != nil {
		return nil, err
	}
	b := NewBuilder(name + ".fbx")

	start, end := h.FrameRange()
	fps := h.FrameRate()
	if fps <= 0 {
		fps = 24
	}

	modelIds := make([]int64, len(g.Nodes))
	for i := range g.Nodes {
		if err := b.addModel(h, g, i, start, modelIds); err != nil {
			return nil, err
		}
	}

	stackId := b.GenerateId()
	layerId := b.GenerateId()
	curves := 0

	for i := range g.Nodes {
		n, err := b.addNodeCurves(h, g, i, modelIds[i], layerId, fps)
		if err != nil {
			return nil, err
		}
		curves += n
	}

	if curves > 0 {
		b.AddObjects(
			animationStack(stackId, name, frameTicks(end, fps)),
			animationLayer(layerId),
		)
		b.AddConnections(bfbx73.C("OO", layerId, stackId))
	}
	return b, nil
}

// addModel emits the node's null model with its parent-relative static
// pose and links it under its parent model (or the scene root).
func (b *Builder) addModel(h scene.Host, g *scene.Graph, node, frame int, modelIds []int64) error {
	s, err := parentSpaceAt(h, g, node, frame)
	if err != nil {
		return err
	}
	t := s.Translation
	r := utils.RadToDegV3(rotation.ToEuler(s.Rotation.Quaternion(), rotation.OrderXYZ))

	name := g.Nodes[node].Name
	modelIds[node] = b.GenerateId()
	model := bfbx73.Model(modelIds[node], name+"\x00\x01Model", "Null").AddNodes(
		bfbx73.Version(232),
		bfbx73.Properties70().AddNodes(
			bfbx73.P("Lcl Translation", "Lcl Translation", "", "A+", t[0], t[1], t[2]),
			bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A+", r[0], r[1], r[2]),
			bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A+", s.Scale[0], s.Scale[1], s.Scale[2]),
		),
		bfbx73.Shading(true),
		bfbx73.Culling("CullingOff"),
	)

	nodeAttribute := bfbx73.NodeAttribute(b.GenerateId(), name+"\x00\x01NodeAttribute", "Null").AddNodes(
		bfbx73.TypeFlags("Null"),
	)

	parentId := int64(0)
	if p := g.Nodes[node].Parent; p != scene.NoParent {
		parentId = modelIds[p]
	}

	b.AddObjects(model, nodeAttribute)
	b.AddConnections(
		bfbx73.C("OO", nodeAttribute.Properties[0].(int64), modelIds[node]),
		bfbx73.C("OO", modelIds[node], parentId),
	)
	return nil
}

// addNodeCurves emits one animation curve node per keyed property and
// three per-axis curves under each, returning how many properties got
// curves.
func (b *Builder) addNodeCurves(h scene.Host, g *scene.Graph, node int, modelId, layerId int64, fps float64) (int, error) {
	curves := 0
	for _, prop := range scene.Properties {
		frames, err := h.KeyedFrames(node, prop)
		if err != nil {
			return curves, err
		}
		if len(frames) == 0 {
			continue
		}

		times := make([]int64, len(frames))
		values := make([]mgl64.Vec3, len(frames))
		var haveRef bool
		var eulerRef mgl64.Vec3
		for i, frame := range frames {
			times[i] = frameTicks(frame, fps)
			s, err := parentSpaceAt(h, g, node, frame)
			if err != nil {
				return curves, err
			}
			switch prop {
			case scene.PropTranslation:
				values[i] = s.Translation
			case scene.PropScale:
				values[i] = s.Scale
			case scene.PropRotation:
				q := s.Rotation.Quaternion()
				var e mgl64.Vec3
				if haveRef {
					e = rotation.ToEulerCompatible(q, rotation.OrderXYZ, eulerRef)
				} else {
					e = rotation.ToEuler(q, rotation.OrderXYZ)
					haveRef = true
				}
				eulerRef = e
				values[i] = utils.RadToDegV3(e)
			}
		}

		cnId := b.GenerateId()
		b.AddObjects(animationCurveNode(cnId, curveNodeTags[prop], values[0]))
		b.AddConnections(
			connectionOP(cnId, modelId, lclProperties[prop]),
			bfbx73.C("OO", cnId, layerId),
		)

		for axis, channel := range []string{"d|X", "d|Y", "d|Z"} {
			axisValues := make([]float32, len(values))
			for i := range values {
				axisValues[i] = float32(values[i][axis])
			}
			curveId := b.GenerateId()
			b.AddObjects(animationCurve(curveId, times, axisValues))
			b.AddConnections(connectionOP(curveId, cnId, channel))
		}
		curves++
	}
	return curves, nil
}

func parentSpaceAt(h scene.Host, g *scene.Graph, node, frame int) (scene.TransformSample, error) {
	return rebase.ResolveLocal(h, g, node, frame,
		rebase.ConventionRestSpace, rebase.ConventionParentSpace)
}

func frameTicks(frame int, fps float64) int64 {
	return int64(math.Round(float64(frame) / fps * ktimePerSecond))
}

func animationStack(id int64, name string, stop int64) *fbx.Node {
	stack := &fbx.Node{Name: "AnimationStack", Properties: []interface{}{id, name + "\x00\x01AnimStack", ""}}
	return stack.AddNodes(
		bfbx73.Properties70().AddNodes(
			bfbx73.P("LocalStop", "KTime", "Time", "", stop),
			bfbx73.P("ReferenceStop", "KTime", "Time", "", stop),
		),
	)
}

func animationLayer(id int64) *fbx.Node {
	return &fbx.Node{Name: "AnimationLayer", Properties: []interface{}{id, "BaseLayer\x00\x01AnimLayer", ""}}
}

func animationCurveNode(id int64, tag string, def mgl64.Vec3) *fbx.Node {
	cn := &fbx.Node{Name: "AnimationCurveNode", Properties: []interface{}{id, tag + "\x00\x01AnimCurveNode", ""}}
	return cn.AddNodes(
		bfbx73.Properties70().AddNodes(
			bfbx73.P("d|X", "Number", "", "A", def[0]),
			bfbx73.P("d|Y", "Number", "", "A", def[1]),
			bfbx73.P("d|Z", "Number", "", "A", def[2]),
		),
	)
}

func animationCurve(id int64, times []int64, values []float32) *fbx.Node {
	curve := &fbx.Node{Name: "AnimationCurve", Properties: []interface{}{id, "\x00\x01AnimCurve", ""}}
	return curve.AddNodes(
		&fbx.Node{Name: "Default", Properties: []interface{}{float64(values[0])}},
		&fbx.Node{Name: "KeyVer", Properties: []interface{}{int32(4008)}},
		&fbx.Node{Name: "KeyTime", Properties: []interface{}{times}},
		&fbx.Node{Name: "KeyValueFloat", Properties: []interface{}{values}},
		&fbx.Node{Name: "KeyAttrFlags", Properties: []interface{}{[]int32{keyLinear}}},
		&fbx.Node{Name: "KeyAttrDataFloat", Properties: []interface{}{[]float32{0, 0, 0, 0}}},
		&fbx.Node{Name: "KeyAttrRefCount", Properties: []interface{}{[]int32{int32(len(times))}}},
	)
}

// "OP" connections carry the destination property name.
func connectionOP(child, parent int64, property string) *fbx.Node {
	return &fbx.Node{Name: "C", Properties: []interface{}{"OP", child, parent, property}}
}
