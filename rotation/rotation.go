package rotation

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var axisVectors = [3]mgl64.Vec3{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

// Rotation is a tagged transform rotation: either a quaternion or an
// euler triple with an explicit order. Producers set the tag, consumers
// dispatch on it instead of guessing the representation.
type Rotation struct {
	Mode  Mode
	Quat  mgl64.Quat
	Euler mgl64.Vec3 // radians, valid for euler modes
}

func NewQuaternion(q mgl64.Quat) Rotation {
	return Rotation{Mode: ModeQuaternion, Quat: q}
}

func NewEuler(e mgl64.Vec3, order Order) Rotation {
	return Rotation{Mode: ModeXYZ + Mode(order), Euler: e}
}

// Quaternion collapses any representation to a normalized quaternion.
func (r Rotation) Quaternion() mgl64.Quat {
	if r.Mode.IsEuler() {
		return FromEuler(r.Euler, r.Mode.EulerOrder())
	}
	return r.Quat.Normalize()
}

// EulerIn returns the rotation as euler angles in the requested order,
// principal-valued.
func (r Rotation) EulerIn(order Order) mgl64.Vec3 {
	if r.Mode.IsEuler() && r.Mode.EulerOrder() == order {
		return r.Euler
	}
	return ToEuler(r.Quaternion(), order)
}

// FromEuler composes per-axis rotations in the order's application
// sequence. Angles are indexed by axis (e[0] is always the X angle).
func FromEuler(e mgl64.Vec3, order Order) mgl64.Quat {
	ax := orderAxes[order]
	qi := mgl64.QuatRotate(e[ax[0]], axisVectors[ax[0]])
	qj := mgl64.QuatRotate(e[ax[1]], axisVectors[ax[1]])
	qk := mgl64.QuatRotate(e[ax[2]], axisVectors[ax[2]])
	return qk.Mul(qj).Mul(qi).Normalize()
}

func FromEulerXYZ(e mgl64.Vec3) mgl64.Quat {
	return FromEuler(e, OrderXYZ)
}

// permutation maps the canonical XYZ frame onto the order's axis
// sequence; conjugating by it reduces every order to the XYZ
// extraction. Odd permutations flip the extracted angle signs.
func permutation(order Order) (p mgl64.Mat3, sign float64) {
	ax := orderAxes[order]
	p = mgl64.Mat3FromCols(axisVectors[ax[0]], axisVectors[ax[1]], axisVectors[ax[2]])
	return p, p.Det()
}

// eulerXYZCandidates extracts both euler solutions from a rotation
// matrix composed as Rz*Ry*Rx. At gimbal configurations (cos of the
// middle angle ~0) the two solutions collapse and the last angle is
// pinned to zero.
func eulerXYZCandidates(m mgl64.Mat3) (e1, e2 mgl64.Vec3) {
	cy := math.Hypot(m.At(0, 0), m.At(1, 0))

	if cy > 1e-8 {
		e1[0] = math.Atan2(m.At(2, 1), m.At(2, 2))
		e1[1] = math.Atan2(-m.At(2, 0), cy)
		e1[2] = math.Atan2(m.At(1, 0), m.At(0, 0))

		e2[0] = math.Atan2(-m.At(2, 1), -m.At(2, 2))
		e2[1] = math.Atan2(-m.At(2, 0), -cy)
		e2[2] = math.Atan2(-m.At(1, 0), -m.At(0, 0))
	} else {
		e1[0] = math.Atan2(-m.At(1, 2), m.At(1, 1))
		e1[1] = math.Atan2(-m.At(2, 0), cy)
		e1[2] = 0
		e2 = e1
	}
	return e1, e2
}

func quatMat3(q mgl64.Quat) mgl64.Mat3 {
	return q.Normalize().Mat4().Mat3()
}

func toEulerCandidates(q mgl64.Quat, order Order) (mgl64.Vec3, mgl64.Vec3) {
	p, sign := permutation(order)
	m := p.Transpose().Mul3(quatMat3(q)).Mul3(p)
	c1, c2 := eulerXYZCandidates(m)

	ax := orderAxes[order]
	var e1, e2 mgl64.Vec3
	for n := 0; n < 3; n++ {
		e1[ax[n]] = sign * c1[n]
		e2[ax[n]] = sign * c2[n]
	}
	return e1, e2
}

func absSum(v mgl64.Vec3) float64 {
	return math.Abs(v[0]) + math.Abs(v[1]) + math.Abs(v[2])
}

// ToEuler extracts euler angles in the given order, choosing the
// smallest-magnitude of the two branch solutions. This is the seed
// convention for the first sampled frame; later frames should use
// ToEulerCompatible against the previous frame instead.
func ToEuler(q mgl64.Quat, order Order) mgl64.Vec3 {
	e1, e2 := toEulerCandidates(q, order)
	if absSum(e2) < absSum(e1) {
		return e2
	}
	return e1
}

// CompatibleEuler unwinds every component of e by full turns so it
// lands as close as possible to ref. Keeps sampled euler curves free of
// 360-degree jumps between consecutive frames.
func CompatibleEuler(e, ref mgl64.Vec3) mgl64.Vec3 {
	for n := 0; n < 3; n++ {
		e[n] += 2 * math.Pi * math.Round((ref[n]-e[n])/(2*math.Pi))
	}
	return e
}

// ToEulerCompatible extracts euler angles picking the branch solution
// closest to ref. Gimbal configurations remain lossy: both branches
// collapse there and continuity of the reconstructed curve is the best
// this representation can guarantee.
func ToEulerCompatible(q mgl64.Quat, order Order, ref mgl64.Vec3) mgl64.Vec3 {
	e1, e2 := toEulerCandidates(q, order)
	e1 = CompatibleEuler(e1, ref)
	e2 = CompatibleEuler(e2, ref)
	if absSum(e2.Sub(ref)) < absSum(e1.Sub(ref)) {
		return e2
	}
	return e1
}

// Reorder re-expresses an euler triple in another order, preferring the
// solution closest to the input angles.
func Reorder(e mgl64.Vec3, from, to Order) mgl64.Vec3 {
	if from == to {
		return e
	}
	return ToEulerCompatible(FromEuler(e, from), to, e)
}

// ToAxisAngle decomposes a quaternion into a unit axis and an angle in
// radians. Identity rotations report the X axis with zero angle.
func ToAxisAngle(q mgl64.Quat) (mgl64.Vec3, float64) {
	q = q.Normalize()
	if q.W < 0 {
		q = q.Scale(-1)
	}
	w := q.W
	if w > 1 {
		w = 1
	}
	angle := 2 * math.Acos(w)
	s := math.Sqrt(1 - w*w)
	if s < 1e-12 {
		return axisVectors[0], 0
	}
	return q.V.Mul(1 / s), angle
}
