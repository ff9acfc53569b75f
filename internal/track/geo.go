package track

import "math"

const earthRadiusKm = 6371.0

// distanceBearing returns the great-circle distance in kilometers and the
// initial bearing in degrees from point 1 to point 2 (haversine).
func distanceBearing(lat1, lon1, lat2, lon2 float64) (float64, float64) {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	dist := earthRadiusKm * 2 * math.Asin(math.Sqrt(a))

	y := math.Sin(dLon) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) -
		math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(dLon)
	bearing := math.Mod(math.Atan2(y, x)*180/math.Pi+360, 360)

	return dist, bearing
}
