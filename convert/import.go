package convert

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/animbridge/animfile"
	"github.com/mogaika/animbridge/channel"
	"github.com/mogaika/animbridge/rebase"
	"github.com/mogaika/animbridge/rotation"
	"github.com/mogaika/animbridge/scene"
	"github.com/mogaika/animbridge/utils"
)

// Import applies a parsed clip onto the host scene. The first fatal
// error aborts the run; transforms already written for earlier nodes
// stay written, there is no rollback.
func (c *Converter) Import(h scene.Host, clip *animfile.Clip) error {
	if err := clip.Validate(); err != nil {
		return err
	}
	g, err := h.Graph()
	if err != nil {
		return err
	}
	selected, err := c.selectNodes(g)
	if err != nil {
		return err
	}
	wanted := make(map[string]int, len(selected))
	for _, node := range selected {
		wanted[g.Nodes[node].Name] = node
	}

	c.verbosef("[convert] import of %d curves starting", len(clip.Curves))
	if c.cfg.Verbose {
		c.log.Println(utils.SDump(clip.Curves))
	}

	channels, err := c.decodeCurves(clip)
	if err != nil {
		return err
	}
	tracks, err := channel.Apply(channels)
	if err != nil {
		return err
	}

	for _, tr := range tracks {
		node, ok := wanted[tr.Node]
		if !ok {
			c.verbosef("[convert] clip node %q not in target hierarchy, skipping", tr.Node)
			continue
		}
		if err := c.applyTrack(h, g, node, tr); err != nil {
			return err
		}
	}
	return nil
}

// decodeCurves converts file curves into channels, mapping values back
// to host units. Placeholder statements and attributes outside the
// transform set carry no channel data.
func (c *Converter) decodeCurves(clip *animfile.Clip) ([]*channel.Channel, error) {
	channels := make([]*channel.Channel, 0, len(clip.Curves))
	for _, curve := range clip.Curves {
		if curve.Placeholder() {
			continue
		}
		kind, ok := channel.ParseKind(curve.Attr)
		if !ok || len(curve.Keys) == 0 {
			c.verbosef("[convert] ignoring curve %q.%s", curve.Node, curve.Attr)
			continue
		}

		fromUnit, toUnit := "", ""
		switch {
		case curve.Output == "linear" && kind.Property() != scene.PropScale:
			fromUnit, toUnit = clip.LinearUnit, "m"
		case curve.Output == "angular":
			fromUnit, toUnit = clip.AngularUnit, "deg"
		}

		ch := &channel.Channel{
			Node:   curve.Node,
			Kind:   kind,
			Interp: curve.Keys[0].TanOut,
			Keys:   make([]channel.Key, len(curve.Keys)),
		}
		for i, k := range curve.Keys {
			v := k.Value
			if fromUnit != "" {
				var err error
				if v, err = animfile.ConvertUnits(v, fromUnit, toUnit); err != nil {
					return nil, err
				}
			}
			ch.Keys[i] = channel.Key{Frame: int(k.Time), Value: v}
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// applyTrack writes one decoded property track onto the host node:
// inverse axis conversion, inverse re-basing (un-baking for world
// clips) into the host's rest-space convention, then per-frame key
// writes at the configured range and offset. Euler-mode nodes get
// branch-compatible angles so written curves stay continuous.
func (c *Converter) applyTrack(h scene.Host, g *scene.Graph, node int, tr *channel.Track) error {
	n := &g.Nodes[node]
	isBone := n.Parent != scene.NoParent
	props := []scene.Property{tr.Prop}

	var haveRef bool
	var eulerRef mgl64.Vec3

	for i, frame := range tr.Frames {
		if !c.cfg.AllKeys && (frame < c.cfg.FrameStart || frame > c.cfg.FrameEnd) {
			continue
		}
		s, err := c.invertSample(n.Name, frame, tr.Samples[i])
		if err != nil {
			return err
		}
		switch {
		case c.cfg.BakeWorldTransform:
			if s, err = rebase.Unbake(h, g, node, frame, c.cfg.BoneScale, s); err != nil {
				return err
			}
		case tr.Prop == scene.PropScale:
			// Export folds the rest pose into the parent-space
			// matrix, so the rest scale comes back off here.
			for a := 0; a < 3; a++ {
				if n.RestScale[a] == 0 {
					return &rebase.DegenerateScaleError{Node: n.Name, Frame: frame, Scale: n.RestScale}
				}
				s.Scale[a] /= n.RestScale[a]
			}
		default:
			if isBone && tr.Prop == scene.PropTranslation {
				s.Translation = s.Translation.Mul(c.cfg.BoneScale)
			}
			if s, err = rebase.Rebase(g, node, frame, s,
				rebase.ConventionParentSpace, rebase.ConventionRestSpace); err != nil {
				return err
			}
		}

		if tr.Prop == scene.PropRotation && n.Mode.IsEuler() {
			order := n.Mode.EulerOrder()
			q := s.Rotation.Quaternion()
			var e mgl64.Vec3
			if haveRef {
				e = rotation.ToEulerCompatible(q, order, eulerRef)
			} else {
				e = rotation.ToEuler(q, order)
				haveRef = true
			}
			eulerRef = e
			s.Rotation = rotation.NewEuler(e, order)
		}

		if err := h.SetLocal(node, frame+c.cfg.FrameOffset, props, s); err != nil {
			return errors.Wrapf(err, "writing %q at frame %d", n.Name, frame)
		}
	}
	return nil
}
