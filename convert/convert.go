// Package convert drives full export and import runs: it validates the
// configuration once, resolves the bone filter against the live
// hierarchy and walks every node/frame pair through re-basing, axis
// conversion and channel coding.
package convert

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/animbridge/axisframe"
	"github.com/mogaika/animbridge/config"
	"github.com/mogaika/animbridge/rebase"
	"github.com/mogaika/animbridge/rotation"
	"github.com/mogaika/animbridge/scene"
	"github.com/mogaika/animbridge/utils"
)

// UnknownBoneError reports a bone filter entry that does not resolve
// against the hierarchy.
type UnknownBoneError struct {
	Name string
}

func (e *UnknownBoneError) Error() string {
	return fmt.Sprintf("bone filter references unknown node %q", e.Name)
}

// Converter is one configured conversion pipeline. The zero logger
// discards all output.
type Converter struct {
	cfg   config.Config
	frame axisframe.Frame
	log   utils.Logger
}

func NewConverter(cfg config.Config, log utils.Logger) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	frame, err := cfg.Frame()
	if err != nil {
		return nil, err
	}
	return &Converter{cfg: cfg, frame: frame, log: log}, nil
}

func (c *Converter) verbosef(format string, args ...interface{}) {
	if c.cfg.Verbose {
		c.log.Printf(format, args...)
	}
}

// selectNodes resolves the bone filter into graph indices, keeping
// hierarchy order, and rejects axis-angle nodes before any frame work
// starts.
func (c *Converter) selectNodes(g *scene.Graph) ([]int, error) {
	wanted := make(map[int]bool, len(g.Nodes))
	if c.cfg.FilterAll() {
		for i := range g.Nodes {
			wanted[i] = true
		}
	} else {
		for _, name := range c.cfg.BoneFilter {
			i, ok := g.Lookup(name)
			if !ok {
				return nil, &UnknownBoneError{Name: name}
			}
			wanted[i] = true
		}
	}

	selected := make([]int, 0, len(wanted))
	for i := range g.Nodes {
		if !wanted[i] {
			continue
		}
		n := &g.Nodes[i]
		if n.Mode == rotation.ModeAxisAngle {
			return nil, &rotation.UnsupportedRotationModeError{Node: n.Name, Mode: n.Mode}
		}
		if c.cfg.DeformOnly && !n.Deform {
			c.verbosef("[convert] skipping non-deform node %q", n.Name)
			continue
		}
		selected = append(selected, i)
	}
	return selected, nil
}

// childCounts tallies direct children per node.
func childCounts(g *scene.Graph) []int {
	counts := make([]int, len(g.Nodes))
	for i := range g.Nodes {
		if p := g.Nodes[i].Parent; p != scene.NoParent {
			counts[p]++
		}
	}
	return counts
}

func frameMat4(f axisframe.Frame) mgl64.Mat4 {
	return f.Mat3().Mat4()
}

// convertSample re-expresses a parent-space sample in the target axis
// convention by conjugating its matrix with the frame. Reflection
// frames fold their sign onto the X scale axis during decomposition.
func (c *Converter) convertSample(node string, frame int, s scene.TransformSample) (scene.TransformSample, error) {
	if c.frame.IsIdentity() {
		return s, nil
	}
	return conjugateSample(c.frame, node, frame, s)
}

// invertSample undoes convertSample for imported samples.
func (c *Converter) invertSample(node string, frame int, s scene.TransformSample) (scene.TransformSample, error) {
	if c.frame.IsIdentity() {
		return s, nil
	}
	return conjugateSample(c.frame.Inverse(), node, frame, s)
}

func conjugateSample(f axisframe.Frame, node string, frame int, s scene.TransformSample) (scene.TransformSample, error) {
	m := frameMat4(f).Mul4(s.Mat4()).Mul4(frameMat4(f.Inverse()))
	return rebase.Decompose(node, frame, m)
}
