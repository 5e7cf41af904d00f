package animfile_test

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/mogaika/animbridge/animfile"
)

const sampleClip = `animVersion 1.1;
mayaVersion 4.2.1; # source application build
timeUnit film;
linearUnit cm;
angularUnit deg;
startTime 1;
endTime 10;
anim rotate.rotateY rotateY joint1 0 1 0;
animData {
  input time;
  output angular;
  weighted 1;
  preInfinity constant;
  postInfinity constant;
  keys {
    1 0.000000 linear linear 1 0 0;
    5 45.000000 fixed fixed 1 0 0 12.5 1.2 12.5 1.2;
    10 90.000000 linear linear 1 0 0;
  }
}
anim joint2 0 0 0;
`

func TestParseClip(t *testing.T) {
	clip, err := animfile.Parse(strings.NewReader(sampleClip))
	if err != nil {
		t.Fatal(err)
	}

	if clip.Version != "1.1" {
		t.Errorf("version %q", clip.Version)
	}
	if clip.SourceVersion != "4.2.1" {
		t.Errorf("source version %q", clip.SourceVersion)
	}
	if clip.TimeUnit != "film" || clip.FrameRate() != 24 {
		t.Errorf("time unit %q rate %v", clip.TimeUnit, clip.FrameRate())
	}
	if clip.LinearUnit != "cm" || clip.AngularUnit != "deg" {
		t.Errorf("units %q %q", clip.LinearUnit, clip.AngularUnit)
	}
	if clip.StartTime != 1 || clip.EndTime != 10 {
		t.Errorf("range %d..%d", clip.StartTime, clip.EndTime)
	}
	if err := clip.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}

	if len(clip.Curves) != 2 {
		t.Fatalf("got %d curves", len(clip.Curves))
	}
	cv := clip.Curves[0]
	if cv.Node != "joint1" || cv.Attr != "rotateY" || cv.Placeholder() {
		t.Errorf("curve header %+v", cv)
	}
	if cv.Children != 1 || cv.Index != 0 {
		t.Errorf("curve hierarchy info %+v", cv)
	}
	if cv.Input != "time" || cv.Output != "angular" || !cv.Weighted {
		t.Errorf("animData %+v", cv)
	}
	if len(cv.Keys) != 3 {
		t.Fatalf("got %d keys", len(cv.Keys))
	}
	mid := cv.Keys[1]
	if mid.Time != 5 || mid.Value != 45 {
		t.Errorf("mid key %+v", mid)
	}
	if mid.TanIn != "fixed" || mid.InAngle != 12.5 || mid.InWeight != 1.2 {
		t.Errorf("mid in tangent %+v", mid)
	}
	if mid.TanOut != "fixed" || mid.OutAngle != 12.5 || mid.OutWeight != 1.2 {
		t.Errorf("mid out tangent %+v", mid)
	}

	ph := clip.Curves[1]
	if !ph.Placeholder() || ph.Node != "joint2" {
		t.Errorf("placeholder %+v", ph)
	}
}

func TestWriteParseRoundTrip(t *testing.T) {
	clip, err := animfile.Parse(strings.NewReader(sampleClip))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := clip.Write(&buf); err != nil {
		t.Fatal(err)
	}
	back, err := animfile.Parse(&buf)
	if err != nil {
		t.Fatal(err)
	}

	if back.TimeUnit != clip.TimeUnit || back.LinearUnit != clip.LinearUnit ||
		back.AngularUnit != clip.AngularUnit ||
		back.StartTime != clip.StartTime || back.EndTime != clip.EndTime {
		t.Errorf("header drifted: %+v", back)
	}
	if len(back.Curves) != len(clip.Curves) {
		t.Fatalf("curve count %d, want %d", len(back.Curves), len(clip.Curves))
	}
	for i, cv := range clip.Curves {
		bc := back.Curves[i]
		if bc.Node != cv.Node || bc.Attr != cv.Attr {
			t.Errorf("curve %d header drifted: %+v", i, bc)
		}
		if len(bc.Keys) != len(cv.Keys) {
			t.Fatalf("curve %d key count %d, want %d", i, len(bc.Keys), len(cv.Keys))
		}
		for j, k := range cv.Keys {
			bk := bc.Keys[j]
			if bk.Time != k.Time || math.Abs(bk.Value-k.Value) > 1e-6 {
				t.Errorf("curve %d key %d drifted: %+v", i, j, bk)
			}
			if bk.TanIn != k.TanIn || bk.TanOut != k.TanOut {
				t.Errorf("curve %d key %d tangents drifted: %+v", i, j, bk)
			}
		}
	}
}

func TestParseErrors(t *testing.T) {
	bad := []string{
		"anim a.b c;\n",
		"animData {\n",
		"animVersion 1.1;\nanim x.y y n 0 0 0;\nanimData {\n  keys {\n    1;\n  }\n}\n",
		"startTime one;\n",
	}
	for _, text := range bad {
		if _, err := animfile.Parse(strings.NewReader(text)); err == nil {
			t.Errorf("accepted %q", text)
		}
	}
}

func TestUnitConversion(t *testing.T) {
	cases := []struct {
		v        float64
		from, to string
		want     float64
	}{
		{1, "m", "cm", 100},
		{1000, "mm", "m", 1},
		{1, "ft", "in", 12},
		{180, "deg", "rad", math.Pi},
		{math.Pi, "rad", "deg", 180},
	}
	for _, c := range cases {
		got, err := animfile.ConvertUnits(c.v, c.from, c.to)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("%v %s->%s = %v, want %v", c.v, c.from, c.to, got, c.want)
		}
	}
	if _, err := animfile.ConvertUnits(1, "m", "parsec"); err == nil {
		t.Error("accepted unknown unit")
	}
}

func TestTimeUnits(t *testing.T) {
	name, ok := animfile.TimeUnitName(30)
	if !ok || name != "ntsc" {
		t.Errorf("30fps -> %q", name)
	}
	fps, ok := animfile.TimeUnitRate("pal")
	if !ok || fps != 25 {
		t.Errorf("pal -> %d", fps)
	}
	if _, ok := animfile.TimeUnitName(23); ok {
		t.Error("accepted unknown rate")
	}
}
