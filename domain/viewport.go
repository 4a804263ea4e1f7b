package domain

import "math"

// Viewport is the map view state: center coordinates plus zoom level
type Viewport struct {
	Latitude  float64
	Longitude float64
	Zoom      float64
}

// ApproxEqual reports whether two viewports are within the given epsilons of
// each other. Used to suppress feedback loops between the engine and the map
// widget: a viewport the widget itself reported must not be pushed back in.
func (v Viewport) ApproxEqual(o Viewport, epsDegrees, epsZoom float64) bool {
	return math.Abs(v.Latitude-o.Latitude) <= epsDegrees &&
		math.Abs(v.Longitude-o.Longitude) <= epsDegrees &&
		math.Abs(v.Zoom-o.Zoom) <= epsZoom
}
