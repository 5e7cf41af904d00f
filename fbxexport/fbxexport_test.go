package fbxexport

import (
	"bytes"
	"testing"

	"github.com/mogaika/fbx"

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

func objectCounts(b *Builder) map[string]int {
	counts := map[string]int{}
	for _, n := range b.objects.Nodes {
		counts[n.Name]++
	}
	return counts
}

func findModel(b *Builder, name string) *fbx.Node {
	for _, n := range b.objects.Nodes {
		if n.Name == "Model" && n.Properties[1].(string) == name+"\x00\x01Model" {
			return n
		}
	}
	return nil
}

func TestBuildObjects(t *testing.T) {
	b, err := Build(previewScene(), "walk")
	if err != nil {
		t.Fatal(err)
	}

	counts := objectCounts(b)
	want := map[string]int{
		"Model":              2,
		"NodeAttribute":      2,
		"AnimationStack":     1,
		"AnimationLayer":     1,
		"AnimationCurveNode": 3, // root T, tip R, tip S
		"AnimationCurve":     9,
	}
	for name, n := range want {
		if counts[name] != n {
			t.Errorf("%s count %d, want %d", name, counts[name], n)
		}
	}

	if findModel(b, "root") == nil || findModel(b, "tip") == nil {
		t.Fatal("models missing")
	}
}

func TestBuildHierarchyConnections(t *testing.T) {
	b, err := Build(previewScene(), "walk")
	if err != nil {
		t.Fatal(err)
	}

	rootId := findModel(b, "root").Properties[0].(int64)
	tipId := findModel(b, "tip").Properties[0].(int64)

	var tipParent, rootParent int64 = -1, -1
	opProps := map[string]int{}
	for _, c := range b.connections.Nodes {
		switch c.Properties[0].(string) {
		case "OO":
			child := c.Properties[1].(int64)
			if child == tipId {
				tipParent = c.Properties[2].(int64)
			}
			if child == rootId {
				rootParent = c.Properties[2].(int64)
			}
		case "OP":
			opProps[c.Properties[3].(string)]++
		}
	}
	if rootParent != 0 {
		t.Errorf("root connected to %d, want scene root", rootParent)
	}
	if tipParent != rootId {
		t.Errorf("tip connected to %d, want root model %d", tipParent, rootId)
	}

	// One property connection per curve node, one axis connection per curve.
	if opProps["Lcl Translation"] != 1 || opProps["Lcl Rotation"] != 1 || opProps["Lcl Scaling"] != 1 {
		t.Errorf("property connections %v", opProps)
	}
	if opProps["d|X"] != 3 || opProps["d|Y"] != 3 || opProps["d|Z"] != 3 {
		t.Errorf("axis connections %v", opProps)
	}
}

func TestCurveKeyTimes(t *testing.T) {
	b, err := Build(previewScene(), "walk")
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range b.objects.Nodes {
		if n.Name != "AnimationCurve" {
			continue
		}
		times := n.GetNode("KeyTime").Properties[0].([]int64)
		values := n.GetNode("KeyValueFloat").Properties[0].([]float32)
		if len(times) != 2 || len(values) != 2 {
			t.Fatalf("curve key counts %d/%d", len(times), len(values))
		}
		if times[0] != frameTicks(1, 24) || times[1] != frameTicks(10, 24) {
			t.Errorf("key times %v", times)
		}
	}
}

func TestStaticSceneHasNoStack(t *testing.T) {
	h := previewScene()
	for _, n := range h.Nodes {
		n.Keys = nil
	}
	b, err := Build(h, "pose")
	if err != nil {
		t.Fatal(err)
	}
	counts := objectCounts(b)
	if counts["AnimationStack"] != 0 || counts["AnimationCurve"] != 0 {
		t.Errorf("static scene got animation objects: %v", counts)
	}
	if counts["Model"] != 2 {
		t.Errorf("model count %d", counts["Model"])
	}
}

func TestWriteBinary(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf, previewScene(), "walk"); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty fbx")
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("Kaydara FBX Binary")) {
		t.Errorf("bad fbx magic %q", buf.Bytes()[:18])
	}
}
