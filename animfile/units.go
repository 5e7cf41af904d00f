package animfile

import (
	"math"

	"github.com/pkg/errors"
)

// Unit reference factors: how many of the unit fit in the reference
// quantity (one meter, one full turn, one second).
var unitFactors = map[string]float64{
	"mm": 1000.0,
	"cm": 100.0,
	"m":  1.0,
	"km": 0.001,
	"in": 1.0 / 0.0254,
	"ft": 1.0 / 0.3048,
	"mi": 1.0 / 1609.344,

	"deg": 360.0,
	"rad": math.Pi * 2.0,

	"sec": 1.0,
}

var timeUnits = map[int]string{
	15: "game",
	24: "film",
	25: "pal",
	30: "ntsc",
	48: "show",
	50: "palf",
	60: "ntscf",
}

// TimeUnitName maps a frame rate to its named time unit.
func TimeUnitName(fps int) (string, bool) {
	name, ok := timeUnits[fps]
	return name, ok
}

// TimeUnitRate maps a named time unit back to frames per second.
func TimeUnitRate(name string) (int, bool) {
	for fps, n := range timeUnits {
		if n == name {
			return fps, true
		}
	}
	return 0, false
}

// ConvertUnits rescales v between two units of the same dimension.
func ConvertUnits(v float64, from, to string) (float64, error) {
	ff, ok := unitFactors[from]
	if !ok {
		return 0, errors.Errorf("Unknown unit %q", from)
	}
	ft, ok := unitFactors[to]
	if !ok {
		return 0, errors.Errorf("Unknown unit %q", to)
	}
	return v * ft / ff, nil
}

func validLinearUnit(u string) bool {
	switch u {
	case "mm", "cm", "m", "km", "in", "ft", "mi":
		return true
	}
	return false
}

func validAngularUnit(u string) bool {
	return u == "deg" || u == "rad"
}
