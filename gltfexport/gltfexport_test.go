package gltfexport_test

import (
	"bytes"
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/mogaika/animbridge/gltfexport"
	"github.com/mogaika/animbridge/scene"
)

func f3(x, y, z float64) *[3]float64 { return &[3]float64{x, y, z} }

func previewScene() *scene.FileHost {
	return &scene.FileHost{
		Fps:        24,
		FrameStart: 1,
		FrameEnd:   10,
		Nodes: []*scene.FileNode{
			{
				Name: "root",
				Rest: scene.FilePose{Translation: f3(0, 1, 0)},
				Keys: []*scene.FileKey{
					{Frame: 1, Translation: f3(0, 0, 0)},
					{Frame: 10, Translation: f3(2, 0, 0)},
				},
			},
			{
				Name:   "tip",
				Parent: "root",
				Rest:   scene.FilePose{Translation: f3(0, 2, 0)},
				Keys: []*scene.FileKey{
					{Frame: 1, EulerDeg: f3(0, 0, 0), Scale: f3(1, 1, 1)},
					{Frame: 10, EulerDeg: f3(0, 90, 0), Scale: f3(1, 2, 1)},
				},
			},
		},
	}
}

func TestDocumentHierarchy(t *testing.T) {
	doc, err := gltfexport.Document(previewScene(), "walk")
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Nodes) != 2 {
		t.Fatalf("node count %d", len(doc.Nodes))
	}
	if doc.Nodes[0].Name != "root" || doc.Nodes[1].Name != "tip" {
		t.Errorf("node names %q %q", doc.Nodes[0].Name, doc.Nodes[1].Name)
	}
	if len(doc.Nodes[0].Children) != 1 || doc.Nodes[0].Children[0] != 1 {
		t.Errorf("root children %v", doc.Nodes[0].Children)
	}
	if len(doc.Scenes[0].Nodes) != 1 || doc.Scenes[0].Nodes[0] != 0 {
		t.Errorf("scene roots %v", doc.Scenes[0].Nodes)
	}
	// Rest pose folds into the node transform.
	if doc.Nodes[1].Translation != [3]float32{0, 2, 0} {
		t.Errorf("tip rest translation %v", doc.Nodes[1].Translation)
	}
}

func TestDocumentAnimation(t *testing.T) {
	doc, err := gltfexport.Document(previewScene(), "walk")
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Animations) != 1 {
		t.Fatalf("animation count %d", len(doc.Animations))
	}
	anim := doc.Animations[0]
	if anim.Name != "walk" {
		t.Errorf("animation name %q", anim.Name)
	}
	if len(anim.Channels) != 3 || len(anim.Samplers) != 3 {
		t.Fatalf("%d channels, %d samplers", len(anim.Channels), len(anim.Samplers))
	}

	paths := map[uint32][]gltf.TRSProperty{}
	for _, ch := range anim.Channels {
		node := *ch.Target.Node
		paths[node] = append(paths[node], ch.Target.Path)
		if int(*ch.Sampler) >= len(anim.Samplers) {
			t.Errorf("channel sampler %d out of range", *ch.Sampler)
		}
	}
	if len(paths[0]) != 1 || paths[0][0] != gltf.TRSTranslation {
		t.Errorf("root paths %v", paths[0])
	}
	if len(paths[1]) != 2 {
		t.Errorf("tip paths %v", paths[1])
	}
}

func TestStaticSceneHasNoAnimation(t *testing.T) {
	h := previewScene()
	for _, n := range h.Nodes {
		n.Keys = nil
	}
	doc, err := gltfexport.Document(h, "pose")
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Animations) != 0 {
		t.Errorf("static scene produced %d animations", len(doc.Animations))
	}
}

func TestExportBinary(t *testing.T) {
	var buf bytes.Buffer
	if err := gltfexport.Export(&buf, previewScene(), "walk"); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty glb")
	}
	if string(buf.Bytes()[:4]) != "glTF" {
		t.Errorf("bad glb magic %q", buf.Bytes()[:4])
	}
}
