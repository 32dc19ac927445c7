package models

import "fmt"

// Coordinates represents a geographical point shown by the map popup.
type Coordinates struct {
	Latitude  float64 // Latitude of the geographical point.
	Longitude float64 // Longitude of the geographical point.
}

// String formats the point the way the popup renders it.
func (c Coordinates) String() string {
	return fmt.Sprintf("(%g, %g)", c.Latitude, c.Longitude)
}
