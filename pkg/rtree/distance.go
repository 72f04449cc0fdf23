package rtree

import (
	"math"

	"github.com/1F47E/mappins/pkg/models"
)

// meanEarthRadiusKm is the IUGG mean radius.
const meanEarthRadiusKm = 6371.0088

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Distance is the great-circle distance in km between the locations behind two pins.
func Distance(a, b models.Pin) float64 {
	phiA, phiB := radians(a.Lat), radians(b.Lat)
	halfDPhi := (phiB - phiA) / 2
	halfDLambda := radians(b.Lon-a.Lon) / 2

	h := math.Sin(halfDPhi)*math.Sin(halfDPhi) +
		math.Cos(phiA)*math.Cos(phiB)*math.Sin(halfDLambda)*math.Sin(halfDLambda)

	// clamp for antipodal rounding error
	return 2 * meanEarthRadiusKm * math.Asin(math.Sqrt(math.Min(1, h)))
}
