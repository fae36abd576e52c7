// Package cpr resolves Compact Position Reports, the 17-bit lat/lon
// encoding used by ADS-B squitters. A global decode needs a paired
// odd/even half-frame; a relative decode needs a reference position
// within half a cell. The algorithm follows the description at
// http://www.lll.lu/~edward/edward/adsb/DecodingADSBposition.html and
// the zone tables of 1090-WP-9-14.
package cpr

import (
	"errors"
	"math"
)

// ErrNoFix is returned when a half-frame pair or reference cannot be
// resolved into a position (zone mismatch, out-of-range latitude, or a
// result more than half a cell from the reference).
var ErrNoFix = errors.New("cpr: no position fix")

const cprMax = 131072.0 /* 2^17 */

// Decoder implements the three CPR decode primitives. The zero value is
// ready to use.
type Decoder struct{}

// Airborne computes a global position from a paired airborne odd/even
// half-frame. The reported position is that of the half selected by
// useOdd.
func (Decoder) Airborne(evenLat, evenLon, oddLat, oddLon int, useOdd bool) (float64, float64, error) {
	const airDlat0 = 360.0 / 60
	const airDlat1 = 360.0 / 59

	lat0 := float64(evenLat)
	lat1 := float64(oddLat)
	lon0 := float64(evenLon)
	lon1 := float64(oddLon)

	/* Compute the Latitude Index "j" */
	j := int(math.Floor(((59*lat0 - 60*lat1) / cprMax) + 0.5))
	rlat0 := airDlat0 * (float64(cprMod(j, 60)) + lat0/cprMax)
	rlat1 := airDlat1 * (float64(cprMod(j, 59)) + lat1/cprMax)

	if rlat0 >= 270 {
		rlat0 -= 360
	}
	if rlat1 >= 270 {
		rlat1 -= 360
	}

	if rlat0 < -90 || rlat0 > 90 || rlat1 < -90 || rlat1 > 90 {
		return 0, 0, ErrNoFix
	}

	/* Both halves must fall in the same latitude zone, or the pair
	 * straddles a zone crossing and cannot be trusted. */
	if cprNL(rlat0) != cprNL(rlat1) {
		return 0, 0, ErrNoFix
	}

	var rlat, rlon float64
	if useOdd {
		ni := cprN(rlat1, 1)
		m := int(math.Floor((((lon0 * float64(cprNL(rlat1)-1)) -
			(lon1 * float64(cprNL(rlat1)))) / cprMax) + 0.5))
		rlon = cprDlon(rlat1, 1, false) * (float64(cprMod(m, ni)) + lon1/cprMax)
		rlat = rlat1
	} else {
		ni := cprN(rlat0, 0)
		m := int(math.Floor((((lon0 * float64(cprNL(rlat0)-1)) -
			(lon1 * float64(cprNL(rlat0)))) / cprMax) + 0.5))
		rlon = cprDlon(rlat0, 0, false) * (float64(cprMod(m, ni)) + lon0/cprMax)
		rlat = rlat0
	}

	/* Renormalize to -180 .. +180 */
	rlon -= math.Floor((rlon+180)/360) * 360

	return rlat, rlon, nil
}

// Surface computes a global position from a paired surface half-frame.
// Surface frames encode within a 90 degree quadrant, so a reference
// position (own last fix or the receiver) picks the quadrant; it has to
// be within roughly 45 NM of the target for the pick to be right.
func (Decoder) Surface(refLat, refLon float64, evenLat, evenLon, oddLat, oddLon int, useOdd bool) (float64, float64, error) {
	const airDlat0 = 90.0 / 60
	const airDlat1 = 90.0 / 59

	lat0 := float64(evenLat)
	lat1 := float64(oddLat)
	lon0 := float64(evenLon)
	lon1 := float64(oddLon)

	j := int(math.Floor(((59*lat0 - 60*lat1) / cprMax) + 0.5))
	rlat0 := airDlat0 * (float64(cprMod(j, 60)) + lat0/cprMax)
	rlat1 := airDlat1 * (float64(cprMod(j, 59)) + lat1/cprMax)

	/* Pick the quadrant closest to the reference location. Only two
	 * quadrants are possible for a legal message (-90..0 and 0..90);
	 * if the northern solution is more than 45 degrees from the
	 * reference, the southern one is closer. Zero is special: -90, 0
	 * and +90 all encode to it. */
	rlat0 = surfaceQuadrant(rlat0, refLat)
	rlat1 = surfaceQuadrant(rlat1, refLat)

	if rlat0 < -90 || rlat0 > 90 || rlat1 < -90 || rlat1 > 90 {
		return 0, 0, ErrNoFix
	}

	if cprNL(rlat0) != cprNL(rlat1) {
		return 0, 0, ErrNoFix
	}

	var rlat, rlon float64
	if useOdd {
		ni := cprN(rlat1, 1)
		m := int(math.Floor((((lon0 * float64(cprNL(rlat1)-1)) -
			(lon1 * float64(cprNL(rlat1)))) / cprMax) + 0.5))
		rlon = cprDlon(rlat1, 1, true) * (float64(cprMod(m, ni)) + lon1/cprMax)
		rlat = rlat1
	} else {
		ni := cprN(rlat0, 0)
		m := int(math.Floor((((lon0 * float64(cprNL(rlat0)-1)) -
			(lon1 * float64(cprNL(rlat0)))) / cprMax) + 0.5))
		rlon = cprDlon(rlat0, 0, true) * (float64(cprMod(m, ni)) + lon0/cprMax)
		rlat = rlat0
	}

	/* The longitude is encoded within a 90 degree segment; pick the
	 * segment closest to the reference, then renormalize. */
	rlon += math.Floor((refLon-rlon+45)/90) * 90
	rlon -= math.Floor((rlon+180)/360) * 360

	return rlat, rlon, nil
}

func surfaceQuadrant(rlat, refLat float64) float64 {
	if rlat == 0 {
		if refLat < -45 {
			return -90
		}
		if refLat > 45 {
			return 90
		}
		return 0
	}
	if rlat-refLat > 45 {
		return rlat - 90
	}
	return rlat
}

// Relative computes a position from a single half-frame anchored on a
// reference no more than half a cell away.
func (Decoder) Relative(refLat, refLon float64, cprLat, cprLon int, useOdd, surface bool) (float64, float64, error) {
	fracLat := float64(cprLat) / cprMax
	fracLon := float64(cprLon) / cprMax

	span := 360.0
	if surface {
		span = 90.0
	}
	zones := 60.0
	fflag := 0
	if useOdd {
		zones = 59.0
		fflag = 1
	}
	airDlat := span / zones

	/* Compute the Latitude Index "j" */
	j := int(math.Floor(refLat/airDlat) +
		math.Trunc(0.5+cprModF(refLat, airDlat)/airDlat-fracLat))

	rlat := airDlat * (float64(j) + fracLat)
	if rlat >= 270 {
		rlat -= 360
	}

	if rlat < -90 || rlat > 90 {
		return 0, 0, ErrNoFix
	}

	/* The answer is only unambiguous within half a cell of the
	 * reference. */
	if math.Abs(rlat-refLat) > airDlat/2 {
		return 0, 0, ErrNoFix
	}

	/* Compute the Longitude Index "m" */
	airDlon := cprDlon(rlat, fflag, surface)
	m := int(math.Floor(refLon/airDlon) +
		math.Trunc(0.5+cprModF(refLon, airDlon)/airDlon-fracLon))

	rlon := airDlon * (float64(m) + fracLon)
	if rlon > 180 {
		rlon -= 360
	}

	if math.Abs(rlon-refLon) > airDlon/2 {
		return 0, 0, ErrNoFix
	}

	return rlat, rlon, nil
}

/* Always positive MOD operation. */
func cprMod(a, b int) int {
	res := a % b
	if res < 0 {
		res += b
	}
	return res
}

func cprModF(a, b float64) float64 {
	res := math.Mod(a, b)
	if res < 0 {
		res += b
	}
	return res
}

func cprN(lat float64, isodd int) int {
	nl := cprNL(lat) - isodd
	if nl < 1 {
		nl = 1
	}
	return nl
}

func cprDlon(lat float64, isodd int, surface bool) float64 {
	span := 360.0
	if surface {
		span = 90.0
	}
	return span / float64(cprN(lat, isodd))
}

/* The NL function uses the precomputed table from 1090-WP-9-14 */
func cprNL(lat float64) int {
	/* Table is symmetric about the equator. */
	if lat < 0 {
		lat = -lat
	}

	switch {
	case lat < 10.47047130:
		return 59
	case lat < 14.82817437:
		return 58
	case lat < 18.18626357:
		return 57
	case lat < 21.02939493:
		return 56
	case lat < 23.54504487:
		return 55
	case lat < 25.82924707:
		return 54
	case lat < 27.93898710:
		return 53
	case lat < 29.91135686:
		return 52
	case lat < 31.77209708:
		return 51
	case lat < 33.53993436:
		return 50
	case lat < 35.22899598:
		return 49
	case lat < 36.85025108:
		return 48
	case lat < 38.41241892:
		return 47
	case lat < 39.92256684:
		return 46
	case lat < 41.38651832:
		return 45
	case lat < 42.80914012:
		return 44
	case lat < 44.19454951:
		return 43
	case lat < 45.54626723:
		return 42
	case lat < 46.86733252:
		return 41
	case lat < 48.16039128:
		return 40
	case lat < 49.42776439:
		return 39
	case lat < 50.67150166:
		return 38
	case lat < 51.89342469:
		return 37
	case lat < 53.09516153:
		return 36
	case lat < 54.27817472:
		return 35
	case lat < 55.44378444:
		return 34
	case lat < 56.59318756:
		return 33
	case lat < 57.72747354:
		return 32
	case lat < 58.84763776:
		return 31
	case lat < 59.95459277:
		return 30
	case lat < 61.04917774:
		return 29
	case lat < 62.13216659:
		return 28
	case lat < 63.20427479:
		return 27
	case lat < 64.26616523:
		return 26
	case lat < 65.31845310:
		return 25
	case lat < 66.36171008:
		return 24
	case lat < 67.39646774:
		return 23
	case lat < 68.42322022:
		return 22
	case lat < 69.44242631:
		return 21
	case lat < 70.45451075:
		return 20
	case lat < 71.45986473:
		return 19
	case lat < 72.45884545:
		return 18
	case lat < 73.45177442:
		return 17
	case lat < 74.43893416:
		return 16
	case lat < 75.42056257:
		return 15
	case lat < 76.39684391:
		return 14
	case lat < 77.36789461:
		return 13
	case lat < 78.33374083:
		return 12
	case lat < 79.29428225:
		return 11
	case lat < 80.24923213:
		return 10
	case lat < 81.19801349:
		return 9
	case lat < 82.13956981:
		return 8
	case lat < 83.07199445:
		return 7
	case lat < 83.99173563:
		return 6
	case lat < 84.89166191:
		return 5
	case lat < 85.75541621:
		return 4
	case lat < 86.53536998:
		return 3
	case lat < 87.00000000:
		return 2
	default:
		return 1
	}
}
