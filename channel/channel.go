// Package channel builds and consumes per-frame sampled transform
// channels, the flat value streams the interchange format is made of.
package channel

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/animbridge/rotation"
	"github.com/mogaika/animbridge/scene"
	"github.com/mogaika/animbridge/utils"
)

// Kind is one animatable transform component.
type Kind int

const (
	TranslateX Kind = iota
	TranslateY
	TranslateZ
	RotateX
	RotateY
	RotateZ
	ScaleX
	ScaleY
	ScaleZ
	KindCount
)

var kindNames = [...]string{
	"translateX", "translateY", "translateZ",
	"rotateX", "rotateY", "rotateZ",
	"scaleX", "scaleY", "scaleZ",
}

func (k Kind) String() string {
	if k < 0 || k >= KindCount {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

func ParseKind(s string) (Kind, bool) {
	for i, n := range kindNames {
		if n == s {
			return Kind(i), true
		}
	}
	return 0, false
}

func KindOf(prop scene.Property, axis int) Kind {
	return Kind(int(prop)*3 + axis)
}

func (k Kind) Property() scene.Property { return scene.Property(int(k) / 3) }

// Axis is 0, 1 or 2 for the X, Y and Z component.
func (k Kind) Axis() int { return int(k) % 3 }

// Angular channels carry degrees on the wire; everything else is
// linear or unitless.
func (k Kind) Angular() bool { return k.Property() == scene.PropRotation }

// Key is one sampled value on a channel.
type Key struct {
	Frame int
	Value float64
}

// Channel is a named scalar stream bound to one node and component.
// The interpolation tag is opaque and passed through to the writer.
// A static channel carries no keys, only its default value.
type Channel struct {
	Node    string
	Kind    Kind
	Interp  string
	Static  bool
	Default float64
	Keys    []Key
}

// Name is the channel's wire identifier, nodeName_componentName.
func (c *Channel) Name() string {
	return c.Node + "_" + c.Kind.String()
}

// staticEpsilon decides when a sampled stream collapses to a static
// channel.
const staticEpsilon = 1e-9

// Sampler produces the node's final (already re-based and
// axis-converted) transform at a frame.
type Sampler func(frame int) (scene.TransformSample, error)

// Build samples the node over frames (ascending) and emits one channel
// triple per listed property. Rotations are emitted as XYZ euler
// degrees; branch selection is seeded from the first frame and kept
// compatible afterwards so curves stay free of wrap jumps. Channels
// whose values never move collapse to static ones.
func Build(node string, frames []int, props []scene.Property, interp string, sample Sampler) ([]*Channel, error) {
	if len(frames) == 0 || len(props) == 0 {
		return nil, nil
	}

	want := make(map[scene.Property]bool, len(props))
	for _, p := range props {
		want[p] = true
	}

	values := make([][]float64, KindCount)
	for k := range values {
		values[k] = make([]float64, 0, len(frames))
	}

	var prevEuler mgl64.Vec3
	for i, frame := range frames {
		s, err := sample(frame)
		if err != nil {
			return nil, err
		}

		if want[scene.PropTranslation] {
			for a := 0; a < 3; a++ {
				values[KindOf(scene.PropTranslation, a)] = append(values[KindOf(scene.PropTranslation, a)], s.Translation[a])
			}
		}
		if want[scene.PropRotation] {
			q := s.Rotation.Quaternion()
			var e mgl64.Vec3
			if i == 0 {
				e = rotation.ToEuler(q, rotation.OrderXYZ)
			} else {
				e = rotation.ToEulerCompatible(q, rotation.OrderXYZ, prevEuler)
			}
			prevEuler = e
			for a := 0; a < 3; a++ {
				values[KindOf(scene.PropRotation, a)] = append(values[KindOf(scene.PropRotation, a)], utils.RadToDeg(e[a]))
			}
		}
		if want[scene.PropScale] {
			for a := 0; a < 3; a++ {
				values[KindOf(scene.PropScale, a)] = append(values[KindOf(scene.PropScale, a)], s.Scale[a])
			}
		}
	}

	channels := make([]*Channel, 0, 3*len(props))
	for k := Kind(0); k < KindCount; k++ {
		vals := values[k]
		if len(vals) == 0 {
			continue
		}
		c := &Channel{Node: node, Kind: k, Interp: interp}
		if constant(vals) {
			c.Static = true
			c.Default = vals[0]
		} else {
			c.Keys = make([]Key, len(vals))
			for i, v := range vals {
				c.Keys[i] = Key{Frame: frames[i], Value: v}
			}
		}
		channels = append(channels, c)
	}
	return channels, nil
}

func constant(vals []float64) bool {
	for _, v := range vals[1:] {
		if v > vals[0]+staticEpsilon || v < vals[0]-staticEpsilon {
			return false
		}
	}
	return true
}

// Track is one node property decoded from a channel triple: per frame,
// a transform sample carrying only that property.
type Track struct {
	Node    string
	Prop    scene.Property
	Frames  []int
	Samples []scene.TransformSample
}

// Apply groups channels by node, validates that every present property
// has its full X/Y/Z triple and decodes each triple into a per-frame
// track. Frames are the union of the triple's keyed frames; a channel
// missing a key at one of those frames contributes a linearly
// interpolated fill value (clamped outside its own key range), and a
// static channel contributes its default everywhere. Rotation values
// are XYZ euler degrees on the wire and come back as euler radians.
func Apply(channels []*Channel) ([]*Track, error) {
	var order []*nodeGroup
	byNode := map[string]*nodeGroup{}

	for _, c := range channels {
		g, ok := byNode[c.Node]
		if !ok {
			g = &nodeGroup{name: c.Node}
			byNode[c.Node] = g
			order = append(order, g)
		}
		g.kinds[c.Kind] = c
	}

	var tracks []*Track
	for _, g := range order {
		for _, prop := range scene.Properties {
			triple, present, err := g.triple(prop)
			if err != nil {
				return nil, err
			}
			if !present {
				continue
			}
			tracks = append(tracks, decodeTriple(g.name, prop, triple))
		}
	}
	return tracks, nil
}

type nodeGroup struct {
	name  string
	kinds [KindCount]*Channel
}

// triple collects the property's three axis channels, reporting
// whether the property is present at all and failing on partial sets.
func (g *nodeGroup) triple(prop scene.Property) ([3]*Channel, bool, error) {
	var triple [3]*Channel
	var present []Kind
	for a := 0; a < 3; a++ {
		k := KindOf(prop, a)
		if c := g.kinds[k]; c != nil {
			triple[a] = c
			present = append(present, k)
		}
	}
	if len(present) == 0 {
		return triple, false, nil
	}
	if len(present) != 3 {
		return triple, false, &IncompleteChannelTripleError{Node: g.name, Prop: prop, Present: present}
	}
	return triple, true, nil
}

func decodeTriple(node string, prop scene.Property, triple [3]*Channel) *Track {
	frameSet := map[int]bool{}
	for _, c := range triple {
		for _, k := range c.Keys {
			frameSet[k.Frame] = true
		}
	}
	frames := make([]int, 0, len(frameSet))
	for f := range frameSet {
		frames = append(frames, f)
	}
	sort.Ints(frames)
	if len(frames) == 0 {
		// All three channels static: the triple is a single pose.
		frames = []int{0}
	}

	tr := &Track{
		Node:    node,
		Prop:    prop,
		Frames:  frames,
		Samples: make([]scene.TransformSample, len(frames)),
	}
	for i, frame := range frames {
		var v mgl64.Vec3
		for a := 0; a < 3; a++ {
			v[a] = valueAt(triple[a], frame)
		}
		s := scene.IdentitySample()
		switch prop {
		case scene.PropTranslation:
			s.Translation = v
		case scene.PropRotation:
			s.Rotation = rotation.NewEuler(utils.DegToRadV3(v), rotation.OrderXYZ)
		case scene.PropScale:
			s.Scale = v
		}
		tr.Samples[i] = s
	}
	return tr
}

// valueAt reads the channel at frame, filling holes by linear
// interpolation between the neighboring keys.
func valueAt(c *Channel, frame int) float64 {
	if c.Static || len(c.Keys) == 0 {
		return c.Default
	}
	var prev, next *Key
	for i := range c.Keys {
		k := &c.Keys[i]
		if k.Frame <= frame {
			prev = k
		} else {
			next = k
			break
		}
	}
	switch {
	case prev == nil:
		return next.Value
	case next == nil || prev.Frame == frame:
		return prev.Value
	}
	t := float64(frame-prev.Frame) / float64(next.Frame-prev.Frame)
	return utils.Lerp(prev.Value, next.Value, t)
}

// IncompleteChannelTripleError flags a node importing only part of a
// component triple, which has no unambiguous playback.
type IncompleteChannelTripleError struct {
	Node    string
	Prop    scene.Property
	Present []Kind
}

func (e *IncompleteChannelTripleError) Error() string {
	names := make([]string, len(e.Present))
	for i, k := range e.Present {
		names[i] = k.String()
	}
	return fmt.Sprintf("node %q has incomplete %v channel triple: only %s present",
		e.Node, e.Prop, strings.Join(names, ", "))
}

// NameCollisionError reports two node names collapsing to the same
// sanitized identifier.
type NameCollisionError struct {
	First     string
	Second    string
	Sanitized string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("names %q and %q both sanitize to %q", e.First, e.Second, e.Sanitized)
}

// SanitizeMode selects how node and channel names are rewritten for
// the wire.
type SanitizeMode int

const (
	SanitizeNone SanitizeMode = iota
	// SanitizeNoSpaces replaces whitespace with underscores.
	SanitizeNoSpaces
	// SanitizeASCII additionally rewrites every rune outside
	// [A-Za-z0-9_] to an underscore.
	SanitizeASCII
)

var sanitizeNames = [...]string{"none", "no-spaces", "ascii-safe"}

func (m SanitizeMode) String() string {
	if m < 0 || int(m) >= len(sanitizeNames) {
		return fmt.Sprintf("SanitizeMode(%d)", int(m))
	}
	return sanitizeNames[m]
}

func ParseSanitizeMode(s string) (SanitizeMode, bool) {
	for i, n := range sanitizeNames {
		if n == s {
			return SanitizeMode(i), true
		}
	}
	return 0, false
}

func Sanitize(name string, mode SanitizeMode) string {
	switch mode {
	case SanitizeNoSpaces:
		return strings.Map(func(r rune) rune {
			if unicode.IsSpace(r) {
				return '_'
			}
			return r
		}, name)
	case SanitizeASCII:
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
				return r
			}
			return '_'
		}, name)
	}
	return name
}

// SanitizeNames rewrites every name per mode and verifies the results
// stay unique. The returned map is original to sanitized.
func SanitizeNames(names []string, mode SanitizeMode) (map[string]string, error) {
	out := make(map[string]string, len(names))
	taken := make(map[string]string, len(names))
	for _, name := range names {
		s := Sanitize(name, mode)
		if first, clash := taken[s]; clash {
			return nil, &NameCollisionError{First: first, Second: name, Sanitized: s}
		}
		taken[s] = name
		out[name] = s
	}
	return out, nil
}
