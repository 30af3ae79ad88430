package geometry

import "math"

// CurveFunc parametrizes a boundary curve. For closed curves the
// parametrization wraps at t=1.
type CurveFunc func(t float64) (x, y float64)

func Circle(radius float64) CurveFunc {
	return func(t float64) (x, y float64) {
		phi := 2 * math.Pi * t
		return radius * math.Cos(phi), radius * math.Sin(phi)
	}
}

func Ellipse(a, b float64) CurveFunc {
	return func(t float64) (x, y float64) {
		phi := 2 * math.Pi * t
		return a * math.Cos(phi), b * math.Sin(phi)
	}
}
