package convert_test

import (
	"math"
	"testing"

	"github.com/mogaika/animbridge/animfile"
	"github.com/mogaika/animbridge/config"
	"github.com/mogaika/animbridge/convert"
	"github.com/mogaika/animbridge/rotation"
	"github.com/mogaika/animbridge/scene"
	"github.com/mogaika/animbridge/utils"
)

func f3(x, y, z float64) *[3]float64 { return &[3]float64{x, y, z} }

func newConverter(t *testing.T, cfg config.Config) *convert.Converter {
	t.Helper()
	c, err := convert.NewConverter(cfg, utils.Logger{})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func singleBoneSweep() *scene.FileHost {
	keys := make([]*scene.FileKey, 0, 10)
	for f := 1; f <= 10; f++ {
		keys = append(keys, &scene.FileKey{
			Frame:    f,
			EulerDeg: f3(0, float64(f-1)*10, 0),
		})
	}
	return &scene.FileHost{
		Fps:        24,
		FrameStart: 1,
		FrameEnd:   10,
		Nodes: []*scene.FileNode{
			{Name: "joint1", Deform: true, Keys: keys},
		},
	}
}

func TestExportRotateSweep(t *testing.T) {
	c := newConverter(t, config.Default())
	clip, err := c.Export(singleBoneSweep())
	if err != nil {
		t.Fatal(err)
	}

	if clip.TimeUnit != "film" || clip.StartTime != 1 || clip.EndTime != 10 {
		t.Errorf("header %+v", clip)
	}
	if len(clip.Curves) != 3 {
		t.Fatalf("got %d curves, want rotate triple", len(clip.Curves))
	}

	byAttr := map[string]*animfile.Curve{}
	for _, cv := range clip.Curves {
		if cv.Node != "joint1" {
			t.Errorf("curve node %q", cv.Node)
		}
		byAttr[cv.Attr] = cv
	}
	for _, attr := range []string{"rotateX", "rotateZ"} {
		cv := byAttr[attr]
		if cv == nil || len(cv.Keys) != 1 || cv.Keys[0].Value != 0 {
			t.Errorf("%s: want single zero key, got %+v", attr, cv)
		}
	}
	ry := byAttr["rotateY"]
	if ry == nil {
		t.Fatal("rotateY missing")
	}
	if ry.Output != "angular" || ry.Input != "time" {
		t.Errorf("rotateY units %+v", ry)
	}
	if len(ry.Keys) != 10 {
		t.Fatalf("rotateY has %d keys", len(ry.Keys))
	}
	for i, k := range ry.Keys {
		want := float64(i) * 10
		if math.Abs(k.Value-want) > 1e-5 || k.Time != float64(i+1) {
			t.Errorf("key %d = %+v, want (%d, %v)", i, k, i+1, want)
		}
		if i > 0 && k.Value <= ry.Keys[i-1].Value {
			t.Errorf("rotateY not monotonic at %d", i)
		}
	}
}

func twoBoneScene() *scene.FileHost {
	return &scene.FileHost{
		Fps: 24,
		Nodes: []*scene.FileNode{
			{
				Name:   "root",
				Deform: true,
				Rest:   scene.FilePose{Translation: f3(0, 1, 0)},
				Keys: []*scene.FileKey{
					{Frame: 1, Translation: f3(0, 0, 0)},
					{Frame: 10, Translation: f3(2, 0, 0)},
				},
			},
			{
				Name:   "tip",
				Parent: "root",
				Deform: true,
				Rest: scene.FilePose{
					Translation: f3(0, 2, 0),
					EulerDeg:    f3(0, 0, 90),
				},
				Keys: []*scene.FileKey{
					{Frame: 1, EulerDeg: f3(0, 0, 0), Translation: f3(0, 0, 0), Scale: f3(1, 1, 1)},
					{Frame: 5, EulerDeg: f3(30, 0, 10), Translation: f3(0.5, 0, 0), Scale: f3(1, 2, 1)},
					{Frame: 10, EulerDeg: f3(60, 45, 20), Translation: f3(1, 0.25, 0), Scale: f3(1, 1, 1.5)},
				},
			},
		},
	}
}

func clearKeys(h *scene.FileHost) *scene.FileHost {
	for _, n := range h.Nodes {
		n.Keys = nil
	}
	return h
}

func TestExportImportRoundTrip(t *testing.T) {
	src := twoBoneScene()
	c := newConverter(t, config.Default())
	clip, err := c.Export(src)
	if err != nil {
		t.Fatal(err)
	}

	dst := clearKeys(twoBoneScene())
	if err := c.Import(dst, clip); err != nil {
		t.Fatal(err)
	}

	for ni := range src.Nodes {
		for _, frame := range []int{1, 5, 10} {
			want, err := src.LocalAt(ni, frame)
			if err != nil {
				t.Fatal(err)
			}
			got, err := dst.LocalAt(ni, frame)
			if err != nil {
				t.Fatal(err)
			}
			if got.Translation.Sub(want.Translation).Len() > 1e-5 {
				t.Errorf("node %d frame %d translation %v, want %v", ni, frame, got.Translation, want.Translation)
			}
			if got.Scale.Sub(want.Scale).Len() > 1e-5 {
				t.Errorf("node %d frame %d scale %v, want %v", ni, frame, got.Scale, want.Scale)
			}
			d := math.Abs(got.Rotation.Quaternion().Dot(want.Rotation.Quaternion()))
			if d < 1-1e-5 {
				t.Errorf("node %d frame %d rotation dot %v", ni, frame, d)
			}
		}
	}
}

func TestAxisConversionRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.AxisConversion = true
	src := twoBoneScene()
	c := newConverter(t, cfg)
	clip, err := c.Export(src)
	if err != nil {
		t.Fatal(err)
	}

	// Converted values differ from the host's, but importing with the
	// same frame inverts the conversion exactly.
	dst := clearKeys(twoBoneScene())
	if err := c.Import(dst, clip); err != nil {
		t.Fatal(err)
	}
	want, err := src.LocalAt(1, 5)
	if err != nil {
		t.Fatal(err)
	}
	got, err := dst.LocalAt(1, 5)
	if err != nil {
		t.Fatal(err)
	}
	if got.Translation.Sub(want.Translation).Len() > 1e-5 {
		t.Errorf("translation %v, want %v", got.Translation, want.Translation)
	}
	if d := math.Abs(got.Rotation.Quaternion().Dot(want.Rotation.Quaternion())); d < 1-1e-5 {
		t.Errorf("rotation dot %v", d)
	}
}

func TestUnknownBoneFilter(t *testing.T) {
	cfg := config.Default()
	cfg.BoneFilter = []string{"no_such_bone"}
	c := newConverter(t, cfg)
	_, err := c.Export(twoBoneScene())
	if err == nil {
		t.Fatal("expected unknown bone error")
	}
	ube, ok := err.(*convert.UnknownBoneError)
	if !ok {
		t.Fatalf("error type %T", err)
	}
	if ube.Name != "no_such_bone" {
		t.Errorf("error names %q", ube.Name)
	}
}

func TestAxisAngleRejected(t *testing.T) {
	h := singleBoneSweep()
	h.Nodes[0].RotationMode = "AXIS_ANGLE"
	c := newConverter(t, config.Default())
	_, err := c.Export(h)
	if err == nil {
		t.Fatal("expected unsupported mode error")
	}
	if _, ok := err.(*rotation.UnsupportedRotationModeError); !ok {
		t.Fatalf("error type %T: %v", err, err)
	}
}

func TestDeformOnlySkips(t *testing.T) {
	cfg := config.Default()
	cfg.DeformOnly = true
	h := twoBoneScene()
	h.Nodes[1].Deform = false

	c := newConverter(t, cfg)
	clip, err := c.Export(h)
	if err != nil {
		t.Fatal(err)
	}
	for _, cv := range clip.Curves {
		if cv.Node == "tip" {
			t.Errorf("non-deform node exported: %+v", cv)
		}
	}
}

func TestFrameRangeLimit(t *testing.T) {
	cfg := config.Default()
	cfg.AllKeys = false
	cfg.FrameStart = 3
	cfg.FrameEnd = 7

	c := newConverter(t, cfg)
	clip, err := c.Export(singleBoneSweep())
	if err != nil {
		t.Fatal(err)
	}
	if clip.StartTime != 3 || clip.EndTime != 7 {
		t.Errorf("clip range %d..%d", clip.StartTime, clip.EndTime)
	}
	for _, cv := range clip.Curves {
		for _, k := range cv.Keys {
			if k.Time < 3 || k.Time > 7 {
				t.Errorf("key outside range: %+v", k)
			}
		}
	}
}

func TestImportFrameOffset(t *testing.T) {
	src := singleBoneSweep()
	c := newConverter(t, config.Default())
	clip, err := c.Export(src)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.FrameOffset = 100
	ci := newConverter(t, cfg)
	dst := clearKeys(singleBoneSweep())
	if err := ci.Import(dst, clip); err != nil {
		t.Fatal(err)
	}

	frames, err := dst.KeyedFrames(0, scene.PropRotation)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 10 || frames[0] != 101 || frames[len(frames)-1] != 110 {
		t.Errorf("offset frames %v", frames)
	}
}

func TestBakedExportWorldMotion(t *testing.T) {
	cfg := config.Default()
	cfg.BakeWorldTransform = true
	cfg.BoneScale = 10

	c := newConverter(t, cfg)
	clip, err := c.Export(twoBoneScene())
	if err != nil {
		t.Fatal(err)
	}

	// tip world y at frame 1 is root rest y=1 plus tip rest offset y=2,
	// scaled by the bone scale.
	var ty *animfile.Curve
	for _, cv := range clip.Curves {
		if cv.Node == "tip" && cv.Attr == "translateY" {
			ty = cv
		}
	}
	if ty == nil {
		t.Fatal("tip translateY missing")
	}
	first := ty.Keys[0]
	wantM := 30.0 // meters, written as cm
	got, err := animfile.ConvertUnits(first.Value, "cm", "m")
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got-wantM) > 1e-5 {
		t.Errorf("baked translateY %v m, want %v", got, wantM)
	}
}

func TestBakedImportRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.BakeWorldTransform = true

	src := twoBoneScene()
	c := newConverter(t, cfg)
	clip, err := c.Export(src)
	if err != nil {
		t.Fatal(err)
	}

	// Curves come out parents first, so by the time a node's world
	// values are un-baked its ancestors already carry their keys.
	dst := clearKeys(twoBoneScene())
	if err := c.Import(dst, clip); err != nil {
		t.Fatal(err)
	}

	for ni := range src.Nodes {
		for _, frame := range []int{1, 5, 10} {
			want, err := src.LocalAt(ni, frame)
			if err != nil {
				t.Fatal(err)
			}
			got, err := dst.LocalAt(ni, frame)
			if err != nil {
				t.Fatal(err)
			}
			if got.Translation.Sub(want.Translation).Len() > 1e-5 {
				t.Errorf("node %d frame %d translation %v, want %v", ni, frame, got.Translation, want.Translation)
			}
			if got.Scale.Sub(want.Scale).Len() > 1e-5 {
				t.Errorf("node %d frame %d scale %v, want %v", ni, frame, got.Scale, want.Scale)
			}
			d := math.Abs(got.Rotation.Quaternion().Dot(want.Rotation.Quaternion()))
			if d < 1-1e-5 {
				t.Errorf("node %d frame %d rotation dot %v", ni, frame, d)
			}
		}
	}
}

func restScaleScene() *scene.FileHost {
	return &scene.FileHost{
		Fps: 24,
		Nodes: []*scene.FileNode{
			{Name: "root", Deform: true},
			{
				Name:   "limb",
				Parent: "root",
				Deform: true,
				Rest: scene.FilePose{
					Translation: f3(0, 1, 0),
					Scale:       f3(2, 2, 2),
				},
				Keys: []*scene.FileKey{
					{Frame: 1, Translation: f3(0, 0, 0), Scale: f3(1, 1, 1)},
					{Frame: 5, Translation: f3(0.5, 0, 0), Scale: f3(1, 1.5, 1)},
				},
			},
		},
	}
}

func TestRestScaleRoundTrip(t *testing.T) {
	src := restScaleScene()
	c := newConverter(t, config.Default())
	clip, err := c.Export(src)
	if err != nil {
		t.Fatal(err)
	}

	dst := clearKeys(restScaleScene())
	if err := c.Import(dst, clip); err != nil {
		t.Fatal(err)
	}

	for _, frame := range []int{1, 5} {
		want, err := src.LocalAt(1, frame)
		if err != nil {
			t.Fatal(err)
		}
		got, err := dst.LocalAt(1, frame)
		if err != nil {
			t.Fatal(err)
		}
		if got.Scale.Sub(want.Scale).Len() > 1e-5 {
			t.Errorf("frame %d scale %v, want %v", frame, got.Scale, want.Scale)
		}
		if got.Translation.Sub(want.Translation).Len() > 1e-5 {
			t.Errorf("frame %d translation %v, want %v", frame, got.Translation, want.Translation)
		}
	}
}

func TestImportFrameRangeLimit(t *testing.T) {
	src := singleBoneSweep()
	c := newConverter(t, config.Default())
	clip, err := c.Export(src)
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.AllKeys = false
	cfg.FrameStart = 3
	cfg.FrameEnd = 7
	ci := newConverter(t, cfg)
	dst := clearKeys(singleBoneSweep())
	if err := ci.Import(dst, clip); err != nil {
		t.Fatal(err)
	}

	frames, err := dst.KeyedFrames(0, scene.PropRotation)
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 5 || frames[0] != 3 || frames[len(frames)-1] != 7 {
		t.Errorf("imported frames %v, want 3..7", frames)
	}
}

func TestVerboseZeroLogger(t *testing.T) {
	cfg := config.Default()
	cfg.Verbose = true
	c := newConverter(t, cfg)

	clip, err := c.Export(singleBoneSweep())
	if err != nil {
		t.Fatal(err)
	}
	dst := clearKeys(singleBoneSweep())
	if err := c.Import(dst, clip); err != nil {
		t.Fatal(err)
	}
}
