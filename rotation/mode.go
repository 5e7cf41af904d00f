package rotation

import (
	"fmt"

	"github.com/pkg/errors"
)

// Order is an euler rotation order. The first named axis is applied
// first, so for OrderXYZ the composed matrix is Rz * Ry * Rx.
type Order int

const (
	OrderXYZ Order = iota
	OrderXZY
	OrderYXZ
	OrderYZX
	OrderZXY
	OrderZYX
)

var orderNames = [...]string{"XYZ", "XZY", "YXZ", "YZX", "ZXY", "ZYX"}

// axes returns indices of the first, middle and last applied axis.
var orderAxes = [...][3]int{
	OrderXYZ: {0, 1, 2},
	OrderXZY: {0, 2, 1},
	OrderYXZ: {1, 0, 2},
	OrderYZX: {1, 2, 0},
	OrderZXY: {2, 0, 1},
	OrderZYX: {2, 1, 0},
}

func (o Order) String() string {
	if o < 0 || int(o) >= len(orderNames) {
		return fmt.Sprintf("Order(%d)", int(o))
	}
	return orderNames[o]
}

// Mode tags how a node authors its rotation. Mirrors the usual
// scene-graph rotation mode enum: one quaternion mode, six euler
// orders and axis-angle (which this engine refuses to convert).
type Mode int

const (
	ModeQuaternion Mode = iota
	ModeXYZ
	ModeXZY
	ModeYXZ
	ModeYZX
	ModeZXY
	ModeZYX
	ModeAxisAngle
)

var modeNames = [...]string{
	"QUATERNION", "XYZ", "XZY", "YXZ", "YZX", "ZXY", "ZYX", "AXIS_ANGLE",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

func (m Mode) IsEuler() bool {
	return m >= ModeXYZ && m <= ModeZYX
}

// EulerOrder panics for non-euler modes.
func (m Mode) EulerOrder() Order {
	if !m.IsEuler() {
		panic(fmt.Sprintf("rotation mode %v has no euler order", m))
	}
	return Order(m - ModeXYZ)
}

func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if n == s {
			return Mode(i), nil
		}
	}
	return 0, errors.Errorf("Unknown rotation mode %q", s)
}

// UnsupportedRotationModeError rejects node rotation modes the
// interchange pipeline cannot express (axis-angle).
type UnsupportedRotationModeError struct {
	Node string
	Mode Mode
}

func (e *UnsupportedRotationModeError) Error() string {
	return fmt.Sprintf("unsupported rotation mode %v on node %q", e.Mode, e.Node)
}
