// Package cpr resolves Compact Position Reports into WGS-84 coordinates.
//
// Airborne positions arrive as 17-bit latitude/longitude fractions against
// two interleaved zone geometries (even: 60 latitude zones, odd: 59). A
// fresh even/odd pair pins the position globally; a single report can be
// resolved against a trusted nearby reference.
package cpr

import (
	"math"
	"time"
)

const (
	// Max is 2^17, the scale of the raw position fields.
	Max = 131072.0

	dlatEven = 360.0 / 60.0
	dlatOdd  = 360.0 / 59.0
)

// Frame is one raw CPR report.
type Frame struct {
	Odd  bool
	Lat  uint32
	Lon  uint32
	Time time.Time
}

// Valid reports whether the slot holds a captured report.
func (f Frame) Valid() bool {
	return !f.Time.IsZero()
}

// Position is a resolved WGS-84 fix.
type Position struct {
	Lat float64
	Lon float64
}

// nlBoundaries holds the transition latitudes of the NL function, from
// NL=59 down to NL=2. Derived once from the closed form; a table lookup
// keeps the zone checks off the acos path and nails down edge behavior at
// the boundaries.
var nlBoundaries = [58]float64{
	10.47047130, 14.82817437, 18.18626357, 21.02939493,
	23.54504487, 25.82924707, 27.93898710, 29.91135686,
	31.77209708, 33.53993436, 35.22899598, 36.85025108,
	38.41241892, 39.92256684, 41.38651832, 42.80914012,
	44.19454951, 45.54626723, 46.86733252, 48.16039128,
	49.42776439, 50.67150166, 51.89342469, 53.09516153,
	54.27817472, 55.44378444, 56.59318756, 57.72747354,
	58.84763776, 59.95459277, 61.04917774, 62.13216659,
	63.20427479, 64.26616523, 65.31845310, 66.36171008,
	67.39646774, 68.42322022, 69.44242631, 70.45451075,
	71.45986473, 72.45884545, 73.45177442, 74.43893416,
	75.42056257, 76.39684391, 77.36789461, 78.33374083,
	79.29428225, 80.24923213, 81.19801349, 82.13956981,
	83.07199445, 83.99173563, 84.89166191, 85.75541621,
	86.53536998, 87.00000000,
}

// NL returns the number of longitude zones at a latitude.
func NL(lat float64) int {
	lat = math.Abs(lat)
	for i, boundary := range nlBoundaries {
		if lat < boundary {
			return 59 - i
		}
	}
	return 1
}

// n returns the effective longitude zone count for a parity, never below 1.
func n(lat float64, odd bool) int {
	nl := NL(lat)
	if odd {
		nl--
	}
	if nl < 1 {
		nl = 1
	}
	return nl
}

// modInt is the always-positive modulus.
func modInt(a, b int) int {
	res := a % b
	if res < 0 {
		res += b
	}
	return res
}

// modFloat is the always-positive float modulus.
func modFloat(a, b float64) float64 {
	res := math.Mod(a, b)
	if res < 0 {
		res += b
	}
	return res
}

// DecodeGlobal resolves an even/odd report pair. It fails when the two
// reports straddle a latitude zone boundary (NL disagreement) or produce an
// out-of-range latitude; callers retry with a fresher pair. The longitude
// is computed in the zone geometry of the more recent report.
func DecodeGlobal(even, odd Frame) (Position, bool) {
	lat0 := float64(even.Lat)
	lat1 := float64(odd.Lat)
	lon0 := float64(even.Lon)
	lon1 := float64(odd.Lon)

	j := int(math.Floor((59*lat0 - 60*lat1) / Max + 0.5))

	rlat0 := dlatEven * (float64(modInt(j, 60)) + lat0/Max)
	rlat1 := dlatOdd * (float64(modInt(j, 59)) + lat1/Max)
	if rlat0 >= 270 {
		rlat0 -= 360
	}
	if rlat1 >= 270 {
		rlat1 -= 360
	}

	if rlat0 < -90 || rlat0 > 90 || rlat1 < -90 || rlat1 > 90 {
		return Position{}, false
	}
	if NL(rlat0) != NL(rlat1) {
		return Position{}, false
	}

	useOdd := odd.Time.After(even.Time)

	var rlat, lonRecent float64
	if useOdd {
		rlat = rlat1
		lonRecent = lon1
	} else {
		rlat = rlat0
		lonRecent = lon0
	}

	nl := NL(rlat)
	ni := n(rlat, useOdd)
	m := int(math.Floor((lon0*float64(nl-1) - lon1*float64(nl)) / Max + 0.5))

	rlon := 360.0 / float64(ni) * (float64(modInt(m, ni)) + lonRecent/Max)
	rlon -= math.Floor((rlon+180)/360) * 360

	return Position{Lat: rlat, Lon: rlon}, true
}

// DecodeLocal resolves a single report against a reference position. The
// reference must be trusted to lie within half a zone (about 180 NM in
// latitude) of the aircraft: the decode picks whichever zone candidate sits
// closest to it.
func DecodeLocal(f Frame, refLat, refLon float64) (Position, bool) {
	dlat := dlatEven
	if f.Odd {
		dlat = dlatOdd
	}

	latFrac := float64(f.Lat) / Max
	j := math.Floor(refLat/dlat) + math.Floor(modFloat(refLat, dlat)/dlat-latFrac+0.5)
	rlat := dlat * (j + latFrac)
	if rlat < -90 || rlat > 90 {
		return Position{}, false
	}

	dlon := 360.0 / float64(n(rlat, f.Odd))
	lonFrac := float64(f.Lon) / Max
	m := math.Floor(refLon/dlon) + math.Floor(modFloat(refLon, dlon)/dlon-lonFrac+0.5)
	rlon := dlon * (m + lonFrac)
	rlon -= math.Floor((rlon+180)/360) * 360

	return Position{Lat: rlat, Lon: rlon}, true
}
