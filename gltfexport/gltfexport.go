// Package gltfexport renders a host scene and its animation into a
// binary glTF document for previewing a conversion result in any web
// viewer. Nodes come out as an empty-mesh joint hierarchy with one
// animation covering every keyed property.
package gltfexport

import (
	"io"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/animbridge/rebase"
	"github.com/mogaika/animbridge/scene"
	"github.com/mogaika/animbridge/utils"
)

// Document builds the glTF document without encoding it.
func Document(h scene.Host, name string) (*gltf.Document, error) {
	g, err := h.Graph()
	if err != nil {
		return nil, err
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = "animbridge"

	for i := range g.Nodes {
		s, err := parentSpaceAt(h, g, i, firstKeyedFrame(h, g, i))
		if err != nil {
			return nil, err
		}
		node := &gltf.Node{
			Name:        g.Nodes[i].Name,
			Translation: utils.Vec3to32(s.Translation),
			Rotation:    utils.QuatTo32(s.Rotation.Quaternion()),
			Scale:       utils.Vec3to32(s.Scale),
		}
		doc.Nodes = append(doc.Nodes, node)

		if p := g.Nodes[i].Parent; p != scene.NoParent {
			doc.Nodes[p].Children = append(doc.Nodes[p].Children, uint32(i))
		} else {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(i))
		}
	}

	anim, err := buildAnimation(doc, h, g, name)
	if err != nil {
		return nil, err
	}
	if anim != nil {
		doc.Animations = append(doc.Animations, anim)
	}
	return doc, nil
}

// Export writes the scene as a self-contained .glb.
func Export(w io.Writer, h scene.Host, name string) error {
	doc, err := Document(h, name)
	if err != nil {
		return err
	}
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

// firstKeyedFrame picks the frame the static node pose is sampled at.
func firstKeyedFrame(h scene.Host, g *scene.Graph, node int) int {
	first, _ := h.FrameRange()
	for _, prop := range scene.Properties {
		keyed, err := h.KeyedFrames(node, prop)
		if err == nil && len(keyed) > 0 && keyed[0] < first {
			first = keyed[0]
		}
	}
	return first
}

// parentSpaceAt samples the node's full parent-relative transform,
// rest pose folded in, which is what a glTF node TRS holds.
func parentSpaceAt(h scene.Host, g *scene.Graph, node, frame int) (scene.TransformSample, error) {
	return rebase.ResolveLocal(h, g, node, frame,
		rebase.ConventionRestSpace, rebase.ConventionParentSpace)
}

var trsPaths = map[scene.Property]gltf.TRSProperty{
	scene.PropTranslation: gltf.TRSTranslation,
	scene.PropRotation:    gltf.TRSRotation,
	scene.PropScale:       gltf.TRSScale,
}

func buildAnimation(doc *gltf.Document, h scene.Host, g *scene.Graph, name string) (*gltf.Animation, error) {
	fps := h.FrameRate()
	if fps <= 0 {
		fps = 24
	}

	anim := &gltf.Animation{Name: name}
	for node := range g.Nodes {
		for _, prop := range scene.Properties {
			frames, err := h.KeyedFrames(node, prop)
			if err != nil {
				return nil, err
			}
			if len(frames) == 0 {
				continue
			}

			times := make([]float32, len(frames))
			var vec3s [][3]float32
			var quats [][4]float32
			for i, frame := range frames {
				times[i] = float32(float64(frame) / fps)
				s, err := parentSpaceAt(h, g, node, frame)
				if err != nil {
					return nil, err
				}
				switch prop {
				case scene.PropTranslation:
					vec3s = append(vec3s, utils.Vec3to32(s.Translation))
				case scene.PropRotation:
					quats = append(quats, utils.QuatTo32(s.Rotation.Quaternion()))
				case scene.PropScale:
					vec3s = append(vec3s, utils.Vec3to32(s.Scale))
				}
			}

			input := modeler.WriteAccessor(doc, 0, times)
			var output uint32
			if prop == scene.PropRotation {
				output = modeler.WriteAccessor(doc, 0, quats)
			} else {
				output = modeler.WriteAccessor(doc, 0, vec3s)
			}

			sampler := uint32(len(anim.Samplers))
			anim.Samplers = append(anim.Samplers, &gltf.AnimationSampler{
				Input:         gltf.Index(input),
				Output:        gltf.Index(output),
				Interpolation: gltf.InterpolationLinear,
			})
			anim.Channels = append(anim.Channels, &gltf.Channel{
				Sampler: gltf.Index(sampler),
				Target: gltf.ChannelTarget{
					Node: gltf.Index(uint32(node)),
					Path: trsPaths[prop],
				},
			})
		}
	}
	if len(anim.Channels) == 0 {
		return nil, nil
	}
	return anim, nil
}
