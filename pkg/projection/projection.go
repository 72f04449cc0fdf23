// Package projection places geographic coordinates on an equirectangular
// world map image, expressed as percentages of the image size.
package projection

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/1F47E/mappins/pkg/models"
)

// precision is the number of fractional digits kept in x/y.
const precision = 4

// ErrInvalidCoordinate is returned when a projected value is not finite.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// CoordinateError carries the coordinate that failed to project.
type CoordinateError struct {
	Lat float64
	Lon float64
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("invalid lat/lon (%v, %v)", e.Lat, e.Lon)
}

// Unwrap lets errors.Is match ErrInvalidCoordinate.
func (e *CoordinateError) Unwrap() error {
	return ErrInvalidCoordinate
}

// Project converts lat/lon in degrees to x/y percentages.
// lon -180..180 maps to x 0..100, lat 90..-90 maps to y 0..100.
// Out-of-range but finite input is projected outside 0..100.
func Project(lat, lon float64) (x, y float64, err error) {
	x = (lon + 180.0) / 360.0 * 100.0
	y = (90.0 - lat) / 180.0 * 100.0
	if !isFinite(x) || !isFinite(y) {
		return 0, 0, &CoordinateError{Lat: lat, Lon: lon}
	}
	return round(x), round(y), nil
}

// BuildPins projects every location in order. A single bad record fails
// the whole batch and no pins are returned.
func BuildPins(locations []models.Location) ([]models.Pin, error) {
	pins := make([]models.Pin, 0, len(locations))
	for _, loc := range locations {
		pin, err := NewPin(loc)
		if err != nil {
			return nil, err
		}
		pins = append(pins, pin)
	}
	return pins, nil
}

// NewPin builds the output record for a single location.
func NewPin(loc models.Location) (models.Pin, error) {
	x, y, err := Project(loc.Lat, loc.Lon)
	if err != nil {
		return models.Pin{}, fmt.Errorf("location %q: %w", loc.ID, err)
	}

	projects := make([]string, len(loc.Projects))
	copy(projects, loc.Projects)

	return models.Pin{
		ID:          loc.ID,
		Name:        loc.Name,
		Institution: loc.Institution,
		Years:       loc.Years,
		Description: loc.Description,
		Projects:    projects,
		Lat:         loc.Lat,
		Lon:         loc.Lon,
		X:           x,
		Y:           y,
	}, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// round works on the exact binary value, so ties like 57.80925 (stored
// as 57.809249...) go down rather than up.
func round(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', precision, 64), 64)
	if err != nil {
		return v
	}
	// avoid emitting -0
	if r == 0 {
		return 0
	}
	return r
}
