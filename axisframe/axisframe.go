// Package axisframe maps vectors and rotations between two axis
// conventions (differing up/forward axes) through a fixed signed
// permutation of the world basis.
package axisframe

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/animbridge/rotation"
)

// Frame is an orthonormal change of basis from source world axes to
// target world axes. Only signed permutations are representable, so a
// frame is either a proper rotation (det +1) or a flagged reflection
// (det -1); anything in between is rejected at construction.
type Frame struct {
	m   mgl64.Mat3
	det float64
}

func Identity() Frame {
	return Frame{m: mgl64.Ident3(), det: 1}
}

// FromMat3 validates that m is a signed permutation and wraps it.
func FromMat3(m mgl64.Mat3) (Frame, error) {
	for r := 0; r < 3; r++ {
		rowHits, colHits := 0, 0
		for c := 0; c < 3; c++ {
			switch av := math.Abs(m.At(r, c)); {
			case av > 0.5:
				if math.Abs(av-1) > 1e-9 {
					return Frame{}, errors.Errorf("Axis frame entry (%d,%d)=%v is not a unit", r, c, m.At(r, c))
				}
				rowHits++
			case av > 1e-9:
				return Frame{}, errors.Errorf("Axis frame entry (%d,%d)=%v is neither 0 nor a unit", r, c, m.At(r, c))
			}
			if math.Abs(m.At(c, r)) > 0.5 {
				colHits++
			}
		}
		if rowHits != 1 || colHits != 1 {
			return Frame{}, errors.Errorf("Axis frame is not a signed permutation (row/col %d)", r)
		}
	}
	return Frame{m: m, det: m.Det()}, nil
}

func parseAxis(s string) (mgl64.Vec3, error) {
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var v mgl64.Vec3
	switch strings.ToUpper(s) {
	case "X":
		v = mgl64.Vec3{1, 0, 0}
	case "Y":
		v = mgl64.Vec3{0, 1, 0}
	case "Z":
		v = mgl64.Vec3{0, 0, 1}
	default:
		return v, errors.Errorf("Unknown axis %q", s)
	}
	if neg {
		v = v.Mul(-1)
	}
	return v, nil
}

func basis(forward, up string) (mgl64.Mat3, error) {
	f, err := parseAxis(forward)
	if err != nil {
		return mgl64.Mat3{}, err
	}
	u, err := parseAxis(up)
	if err != nil {
		return mgl64.Mat3{}, err
	}
	if math.Abs(f.Dot(u)) > 1e-9 {
		return mgl64.Mat3{}, errors.Errorf("Forward %q and up %q are not orthogonal", forward, up)
	}
	return mgl64.Mat3FromCols(f, u, f.Cross(u)), nil
}

// FromForwardUp builds the frame carrying the source convention onto
// the target one. Both bases are completed right-handed, so the result
// is always a proper rotation; reflections only enter through FromMat3.
func FromForwardUp(srcForward, srcUp, dstForward, dstUp string) (Frame, error) {
	bs, err := basis(srcForward, srcUp)
	if err != nil {
		return Frame{}, errors.Wrap(err, "source basis")
	}
	bd, err := basis(dstForward, dstUp)
	if err != nil {
		return Frame{}, errors.Wrap(err, "target basis")
	}
	return FromMat3(bd.Mul3(bs.Transpose()))
}

// MirrorX is the canonical reflection frame, negating the X axis.
func MirrorX() Frame {
	m := mgl64.Diag3(mgl64.Vec3{-1, 1, 1})
	return Frame{m: m, det: -1}
}

func (f Frame) Mat3() mgl64.Mat3 { return f.m }

func (f Frame) IsIdentity() bool { return f.m == mgl64.Ident3() }

// Reflection reports det -1 frames, which need the rotation-direction
// correction in ConvertRotation and the sign fold in the baker.
func (f Frame) Reflection() bool { return f.det < 0 }

// Inverse of a signed permutation is its transpose.
func (f Frame) Inverse() Frame {
	return Frame{m: f.m.Transpose(), det: f.det}
}

func (f Frame) ConvertVector(v mgl64.Vec3) mgl64.Vec3 {
	return f.m.Mul3x1(v)
}

// ConvertRotation re-expresses q in the target basis. For proper
// frames this is plain conjugation; for reflections the rotation angle
// flips sign as well, otherwise the handedness of the rotation
// direction would invert.
func (f Frame) ConvertRotation(q mgl64.Quat) mgl64.Quat {
	axis, angle := rotation.ToAxisAngle(q)
	if angle == 0 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatRotate(f.det*angle, f.m.Mul3x1(axis))
}

// ConvertScale permutes per-axis scale magnitudes. Signs are dropped
// here: a reflection's mirror sign is folded onto a designated axis by
// the bake decomposition, not scattered per channel.
func (f Frame) ConvertScale(s mgl64.Vec3) mgl64.Vec3 {
	var out mgl64.Vec3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if math.Abs(f.m.At(r, c)) > 0.5 {
				out[r] = s[c]
			}
		}
	}
	return out
}
