package utils

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

func DegToRad(v float64) float64 {
	return v * (math.Pi / 180.0)
}

func RadToDeg(v float64) float64 {
	return v * (180.0 / math.Pi)
}

func DegToRadV3(v mgl64.Vec3) mgl64.Vec3 {
	return v.Mul(math.Pi / 180.0)
}

func RadToDegV3(v mgl64.Vec3) mgl64.Vec3 {
	return v.Mul(180.0 / math.Pi)
}

func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func FloatArray64to32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

func Vec3to32(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

func QuatTo32(q mgl64.Quat) [4]float32 {
	return [4]float32{float32(q.X()), float32(q.Y()), float32(q.Z()), float32(q.W)}
}

// NormalizeAngle wraps v into (-pi, pi].
func NormalizeAngle(v float64) float64 {
	v = math.Mod(v, 2*math.Pi)
	if v > math.Pi {
		v -= 2 * math.Pi
	} else if v <= -math.Pi {
		v += 2 * math.Pi
	}
	return v
}
