package models

// Location is a catalog entry: a place with its geographic coordinate
type Location struct {
	ID          string   `yaml:"id" json:"id"`
	Name        string   `yaml:"name" json:"name"`
	Institution string   `yaml:"institution" json:"institution"`
	Years       string   `yaml:"years" json:"years"`
	Description string   `yaml:"description" json:"description"`
	Projects    []string `yaml:"projects" json:"projects"`
	Lat         float64  `yaml:"lat" json:"lat"`
	Lon         float64  `yaml:"lon" json:"lon"`
	// Verified is false for placeholder coordinates awaiting correction.
	Verified *bool `yaml:"verified,omitempty" json:"-"`
}

// IsVerified reports whether the coordinate is confirmed. Omitted means verified.
func (l Location) IsVerified() bool {
	return l.Verified == nil || *l.Verified
}

// Pin is a Location placed on an equirectangular map image.
// X and Y are percentages of the image width and height.
type Pin struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Institution string   `json:"institution"`
	Years       string   `json:"years"`
	Description string   `json:"description"`
	Projects    []string `json:"projects"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
}

// BoundingBox represents a rectangular area of the map in percent space
type BoundingBox struct {
	TopLeft     Position
	BottomRight Position
}

// Position is a point on the map image in percent space
type Position struct {
	X float64
	Y float64
}
