package domain

import "fmt"

// Location is a coordinate pair with optional reverse-geocoded labels
type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
	City      string
	Country   string
}

// Place holds the best-effort labels returned by a reverse geocode lookup
type Place struct {
	Address string
	City    string
	Country string
}

// CoordinateString renders the coordinates the way a degraded reverse
// geocode lookup labels them
func (l Location) CoordinateString() string {
	return fmt.Sprintf("%.4f, %.4f", l.Latitude, l.Longitude)
}
