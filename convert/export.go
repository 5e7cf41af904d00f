package convert

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/mogaika/animbridge/animfile"
	"github.com/mogaika/animbridge/channel"
	"github.com/mogaika/animbridge/rebase"
	"github.com/mogaika/animbridge/scene"
	"github.com/mogaika/animbridge/utils"
)

// Export runs a full host-to-clip conversion. Curves come out in
// hierarchy order, parents before children, since consumers map them
// by position; nodes selected but not animated leave a placeholder
// statement to keep that order intact.
func (c *Converter) Export(h scene.Host) (*animfile.Clip, error) {
	g, err := h.Graph()
	if err != nil {
		return nil, err
	}
	selected, err := c.selectNodes(g)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(selected))
	for i, node := range selected {
		names[i] = g.Nodes[node].Name
	}
	sanitized, err := channel.SanitizeNames(names, c.cfg.SanitizeMode())
	if err != nil {
		return nil, err
	}

	fps := int(h.FrameRate() + 0.5)
	timeUnit, ok := animfile.TimeUnitName(fps)
	if !ok {
		return nil, errors.Errorf("No named time unit for %d fps", fps)
	}

	clip := &animfile.Clip{
		Version:     animfile.Version,
		TimeUnit:    timeUnit,
		LinearUnit:  c.cfg.LinearUnit,
		AngularUnit: c.cfg.AngularUnit,
	}
	c.verbosef("[convert] export of %d nodes starting", len(selected))
	if c.cfg.Verbose {
		c.log.Println(utils.SDump(c.cfg))
	}

	children := childCounts(g)
	haveRange := false
	for _, node := range selected {
		frames, props, err := c.exportFrames(h, node)
		if err != nil {
			return nil, err
		}
		name := sanitized[g.Nodes[node].Name]

		if len(frames) == 0 {
			clip.Curves = append(clip.Curves, &animfile.Curve{
				Node: name, Children: children[node],
			})
			continue
		}

		if !haveRange {
			clip.StartTime, clip.EndTime = frames[0], frames[len(frames)-1]
			haveRange = true
		} else {
			if frames[0] < clip.StartTime {
				clip.StartTime = frames[0]
			}
			if last := frames[len(frames)-1]; last > clip.EndTime {
				clip.EndTime = last
			}
		}

		chans, err := channel.Build(name, frames, props, c.cfg.Interp, c.sampler(h, g, node))
		if err != nil {
			return nil, err
		}
		c.verbosef("[convert] node %q: %d frames, %d channels", name, len(frames), len(chans))
		for i, ch := range chans {
			curve, err := c.encodeCurve(ch, i, children[node], frames[0])
			if err != nil {
				return nil, err
			}
			clip.Curves = append(clip.Curves, curve)
		}
	}

	if !haveRange {
		clip.StartTime, clip.EndTime = h.FrameRange()
	}
	if !c.cfg.AllKeys {
		clip.StartTime, clip.EndTime = c.cfg.FrameStart, c.cfg.FrameEnd
	}
	return clip, nil
}

// exportFrames collects the node's keyed frames (union across animated
// properties), constrained to the configured range.
func (c *Converter) exportFrames(h scene.Host, node int) ([]int, []scene.Property, error) {
	frameSet := map[int]bool{}
	var props []scene.Property
	for _, prop := range scene.Properties {
		keyed, err := h.KeyedFrames(node, prop)
		if err != nil {
			return nil, nil, err
		}
		inRange := keyed[:0:0]
		for _, f := range keyed {
			if !c.cfg.AllKeys && (f < c.cfg.FrameStart || f > c.cfg.FrameEnd) {
				continue
			}
			inRange = append(inRange, f)
		}
		if len(inRange) == 0 {
			continue
		}
		props = append(props, prop)
		for _, f := range inRange {
			frameSet[f] = true
		}
	}
	frames := make([]int, 0, len(frameSet))
	for f := range frameSet {
		frames = append(frames, f)
	}
	sort.Ints(frames)
	return frames, props, nil
}

// sampler produces the node's final exported sample for one frame:
// world bake or rest-to-parent re-basing, bone scaling, then axis
// conversion.
func (c *Converter) sampler(h scene.Host, g *scene.Graph, node int) channel.Sampler {
	name := g.Nodes[node].Name
	isBone := g.Nodes[node].Parent != scene.NoParent
	return func(frame int) (scene.TransformSample, error) {
		var s scene.TransformSample
		var err error
		if c.cfg.BakeWorldTransform {
			s, err = rebase.Bake(h, g, node, frame, c.cfg.BoneScale)
		} else {
			s, err = rebase.ResolveLocal(h, g, node, frame,
				rebase.ConventionRestSpace, rebase.ConventionParentSpace)
			if err == nil && isBone {
				s.Translation = s.Translation.Mul(c.cfg.BoneScale)
			}
		}
		if err != nil {
			return scene.TransformSample{}, err
		}
		return c.convertSample(name, frame, s)
	}
}

// encodeCurve turns a channel into its file statement, converting
// values from host units (meters, degrees) into the clip's declared
// units. Scale stays unitless. Static channels collapse to one key at
// the node's first frame.
func (c *Converter) encodeCurve(ch *channel.Channel, index, children, firstFrame int) (*animfile.Curve, error) {
	curve := &animfile.Curve{
		Node:         ch.Node,
		Attr:         ch.Kind.String(),
		Children:     children,
		Index:        index,
		Input:        "time",
		Output:       "unitless",
		Weighted:     true,
		PreInfinity:  "constant",
		PostInfinity: "constant",
	}

	fromUnit, toUnit := "", ""
	switch ch.Kind.Property() {
	case scene.PropTranslation:
		curve.Output = "linear"
		fromUnit, toUnit = "m", c.cfg.LinearUnit
	case scene.PropRotation:
		curve.Output = "angular"
		fromUnit, toUnit = "deg", c.cfg.AngularUnit
	}

	keys := ch.Keys
	if ch.Static {
		keys = []channel.Key{{Frame: firstFrame, Value: ch.Default}}
	}
	curve.Keys = make([]animfile.Keyframe, len(keys))
	for i, k := range keys {
		v := k.Value
		if fromUnit != "" {
			var err error
			if v, err = animfile.ConvertUnits(v, fromUnit, toUnit); err != nil {
				return nil, err
			}
		}
		curve.Keys[i] = animfile.Keyframe{
			Time:        float64(k.Frame),
			Value:       v,
			TanIn:       ch.Interp,
			TanOut:      ch.Interp,
			LockTangent: true,
		}
	}
	return curve, nil
}
