// Package animfile reads and writes the textual channel interchange
// format: a header with unit declarations followed by per-curve anim
// statements, each carrying an animData block of sampled keys.
package animfile

import (
	"bufio"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const Version = "1.1"

// Clip is one parsed or to-be-written file.
type Clip struct {
	Version       string
	SourceVersion string
	TimeUnit      string
	LinearUnit    string
	AngularUnit   string
	StartTime     int
	EndTime       int
	Curves        []*Curve
}

// Curve is one anim statement. Placeholder statements (hierarchy rows
// without animation) have an empty Attr and no keys; they keep curve
// order aligned with the node hierarchy for consumers that map curves
// by position.
type Curve struct {
	Node     string
	Attr     string
	Row      int
	Children int
	Index    int

	Input            string
	Output           string
	Weighted         bool
	TangentAngleUnit string
	PreInfinity      string
	PostInfinity     string

	Keys []Keyframe
}

func (c *Curve) Placeholder() bool { return c.Attr == "" }

// Keyframe carries one sample plus its tangent description. Angle and
// weight pairs are only meaningful for fixed tangents.
type Keyframe struct {
	Time        float64
	Value       float64
	TanIn       string
	TanOut      string
	LockTangent bool
	LockWeight  bool
	Breakdown   bool

	InAngle   float64
	InWeight  float64
	OutAngle  float64
	OutWeight float64
}

// FrameRate resolves the clip's named time unit, defaulting to film
// rate when the name is unknown.
func (c *Clip) FrameRate() float64 {
	if fps, ok := TimeUnitRate(c.TimeUnit); ok {
		return float64(fps)
	}
	return 24
}

func (c *Clip) Validate() error {
	if !validLinearUnit(c.LinearUnit) {
		return errors.Errorf("Unknown linear unit %q", c.LinearUnit)
	}
	if !validAngularUnit(c.AngularUnit) {
		return errors.Errorf("Unknown angular unit %q", c.AngularUnit)
	}
	if c.EndTime < c.StartTime {
		return errors.Errorf("Frame range %d..%d is inverted", c.StartTime, c.EndTime)
	}
	return nil
}

const tab = "  "

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fmtFrame(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// Write serializes the clip. Value formatting is fixed at six decimal
// places to keep files diffable between runs.
func (c *Clip) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)

	version := c.Version
	if version == "" {
		version = Version
	}
	fmt.Fprintf(bw, "animVersion %s;\n", version)
	if c.SourceVersion != "" {
		fmt.Fprintf(bw, "mayaVersion %s;\n", c.SourceVersion)
	}
	fmt.Fprintf(bw, "timeUnit %s;\n", c.TimeUnit)
	fmt.Fprintf(bw, "linearUnit %s;\n", c.LinearUnit)
	fmt.Fprintf(bw, "angularUnit %s;\n", c.AngularUnit)
	fmt.Fprintf(bw, "startTime %d;\n", c.StartTime)
	fmt.Fprintf(bw, "endTime %d;\n", c.EndTime)

	for _, curve := range c.Curves {
		if curve.Placeholder() {
			fmt.Fprintf(bw, "anim %s %d %d %d;\n", curve.Node, curve.Row, curve.Children, curve.Index)
			continue
		}
		fmt.Fprintf(bw, "anim %s.%s %s %s %d %d %d;\n",
			attrGroup(curve.Attr), curve.Attr, curve.Attr,
			curve.Node, curve.Row, curve.Children, curve.Index)
		if err := curve.writeAnimData(bw); err != nil {
			return err
		}
	}
	return errors.Wrapf(bw.Flush(), "Failed to flush clip")
}

// attrGroup maps a component attribute to its anim statement group
// prefix (translateX belongs to group translate).
func attrGroup(attr string) string {
	for _, g := range []string{"translate", "rotate", "scale"} {
		if len(attr) == len(g)+1 && attr[:len(g)] == g {
			return g
		}
	}
	return attr
}

func (c *Curve) writeAnimData(w io.Writer) error {
	fmt.Fprintf(w, "animData {\n")
	fmt.Fprintf(w, "%sinput %s;\n", tab, c.Input)
	fmt.Fprintf(w, "%soutput %s;\n", tab, c.Output)
	fmt.Fprintf(w, "%sweighted %d;\n", tab, boolInt(c.Weighted))
	if c.TangentAngleUnit != "" {
		fmt.Fprintf(w, "%stangentAngleUnit %s;\n", tab, c.TangentAngleUnit)
	}
	fmt.Fprintf(w, "%spreInfinity %s;\n", tab, c.PreInfinity)
	fmt.Fprintf(w, "%spostInfinity %s;\n", tab, c.PostInfinity)
	fmt.Fprintf(w, "%skeys {\n", tab)
	for _, k := range c.Keys {
		fmt.Fprintf(w, "%s%s %.6f %s %s %d %d %d",
			tab+tab, fmtFrame(k.Time), k.Value, k.TanIn, k.TanOut,
			boolInt(k.LockTangent), boolInt(k.LockWeight), boolInt(k.Breakdown))
		if k.TanIn == "fixed" {
			fmt.Fprintf(w, " %g %g", k.InAngle, k.InWeight)
		}
		if k.TanOut == "fixed" {
			fmt.Fprintf(w, " %g %g", k.OutAngle, k.OutWeight)
		}
		fmt.Fprintf(w, ";\n")
	}
	fmt.Fprintf(w, "%s}\n", tab)
	fmt.Fprintf(w, "}\n")
	return nil
}
