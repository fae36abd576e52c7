package track

import "math"

/* Position decoding outcomes. A bad result means the decode succeeded
 * but produced a physically implausible fix; it is the only case where
 * the tracker regresses its own state. */
const (
	cprOk   = 0
	cprSkip = -1
	cprBad  = -2
)

// speedCheck accepts a candidate position if the aircraft could
// plausibly have reached it since its last fix. With no prior fix there
// is nothing to check.
func (t *Tracker) speedCheck(a *Aircraft, lat, lon float64, surface bool) bool {
	if !a.PositionValid.Valid() {
		return true
	}

	elapsed := a.PositionValid.age(t.now)

	var speed float64
	switch {
	case a.GSValid.Valid():
		speed = a.GS
	case a.TASValid.Valid():
		speed = float64(a.TAS) * 4 / 3
	case a.IASValid.Valid():
		speed = float64(a.IAS) * 2
	case surface:
		speed = 100
	default:
		speed = 600
	}

	/* Work out a reasonable speed to use:
	 *   current speed + 1/3
	 *   surface speed min 20kt, max 150kt
	 *   airborne speed min 200kt, no max */
	speed = speed * 4 / 3
	if surface {
		speed = math.Max(20, math.Min(150, speed))
	} else {
		speed = math.Max(200, speed)
	}

	/* 100m (surface) or 500m (airborne) base distance to allow for minor
	 * errors, plus distance covered at the given speed for the elapsed
	 * time plus one second of slack. */
	base := 500.0
	if surface {
		base = 100.0
	}
	allowed := base + float64(elapsed+1000)/1000.0*speed*1852.0/3600.0

	distance := greatcircle(a.Lat, a.Lon, lat, lon)

	return distance <= allowed
}

// doGlobalCPR resolves the stored odd/even pair into a global position
// and validates it. nuc is the worse of the two halves, never better
// than the position it replaces.
func (t *Tracker) doGlobalCPR(a *Aircraft, m *Message) (lat, lon float64, nuc int, result int) {
	useOdd := m.CPROdd
	surface := m.CPRType == CPRSurface

	nuc = a.CPREven.NUC
	if a.CPROdd.NUC < nuc {
		nuc = a.CPROdd.NUC
	}
	if a.PositionValid.Valid() && a.PosNUC < nuc {
		nuc = a.PosNUC
	}

	var err error
	if surface {
		/* Surface cells are ~90NM apart; we need a reference to pick one.
		 * Prefer the aircraft's own last position, then the receiver. */
		var refLat, refLon float64
		switch {
		case a.PositionValid.Valid():
			refLat, refLon = a.Lat, a.Lon
		case t.cfg.UserLatLon:
			refLat, refLon = t.cfg.UserLat, t.cfg.UserLon
		default:
			return 0, 0, 0, cprSkip
		}
		lat, lon, err = t.cpr.Surface(refLat, refLon,
			a.CPREven.Lat, a.CPREven.Lon, a.CPROdd.Lat, a.CPROdd.Lon, useOdd)
	} else {
		lat, lon, err = t.cpr.Airborne(
			a.CPREven.Lat, a.CPREven.Lon, a.CPROdd.Lat, a.CPROdd.Lon, useOdd)
	}
	if err != nil {
		return 0, 0, 0, cprSkip
	}

	/* An out-of-range global fix is bad data, not a near miss. */
	if t.cfg.MaxRangeM > 0 && t.cfg.UserLatLon {
		r := greatcircle(t.cfg.UserLat, t.cfg.UserLon, lat, lon)
		if r > t.cfg.MaxRangeM {
			t.Stats.CPRGlobalRangeChecks++
			t.log.WithField("addr", a.HexAddr).WithField("range_m", r).
				Debug("global CPR rejected by range gate")
			return 0, 0, 0, cprBad
		}
	}

	/* MLAT positions have already been cross-checked upstream. */
	if m.Source == SourceMLAT {
		return lat, lon, nuc, cprOk
	}

	if a.PositionValid.Valid() && a.PosNUC >= nuc && !t.speedCheck(a, lat, lon, surface) {
		t.Stats.CPRGlobalSpeedChecks++
		t.log.WithField("addr", a.HexAddr).Debug("global CPR rejected by speed gate")
		return 0, 0, 0, cprBad
	}

	return lat, lon, nuc, cprOk
}

// doLocalCPR resolves the message's single half-frame against a local
// reference. Failures here are never treated as bad data, only skipped.
func (t *Tracker) doLocalCPR(a *Aircraft, m *Message) (lat, lon float64, nuc int, result int) {
	useOdd := m.CPROdd
	surface := m.CPRType == CPRSurface

	nuc = m.CPRNucp

	var refLat, refLon, rangeLimit float64
	switch {
	case a.PositionValid.Valid():
		refLat, refLon = a.Lat, a.Lon
		if a.PosNUC < nuc {
			nuc = a.PosNUC
		}
		rangeLimit = 50e3

	case !surface && t.cfg.UserLatLon:
		refLat, refLon = t.cfg.UserLat, t.cfg.UserLon

		/* The airborne cell is at least 360NM wide, so a receiver-anchored
		 * decode is only unambiguous while the target is within half a
		 * cell. A max_range beyond that leaves only the wrap-around
		 * margin; beyond a full cell there is nothing usable left. */
		switch {
		case t.cfg.MaxRangeM == 0 || t.cfg.MaxRangeM >= 1852*360:
			return 0, 0, 0, cprSkip
		case t.cfg.MaxRangeM <= 1852*180:
			rangeLimit = t.cfg.MaxRangeM
		default:
			rangeLimit = 1852*360 - t.cfg.MaxRangeM
		}

	default:
		return 0, 0, 0, cprSkip
	}

	lat, lon, err := t.cpr.Relative(refLat, refLon, m.CPRLat, m.CPRLon, useOdd, surface)
	if err != nil {
		return 0, 0, 0, cprSkip
	}

	if rangeLimit > 0 {
		r := greatcircle(refLat, refLon, lat, lon)
		if r > rangeLimit {
			t.Stats.CPRLocalRangeChecks++
			return 0, 0, 0, cprSkip
		}
	}

	if a.PositionValid.Valid() && a.PosNUC >= nuc && !t.speedCheck(a, lat, lon, surface) {
		t.Stats.CPRLocalSpeedChecks++
		return 0, 0, 0, cprSkip
	}

	return lat, lon, nuc, cprOk
}

// updatePosition runs after a message carrying a CPR half-frame has been
// folded into the aircraft: try a global decode off the stored pair,
// fall back to a locally-referenced decode, commit on success.
func (t *Tracker) updatePosition(a *Aircraft, m *Message) {
	surface := m.CPRType == CPRSurface
	if surface {
		t.Stats.CPRSurface++
	} else {
		t.Stats.CPRAirborne++
	}

	/* How far apart the odd and even halves may be and still pair up.
	 * Slow surface targets cross cell boundaries slowly, so they get a
	 * wider window. */
	var maxElapsed int64 = 10000
	if surface {
		maxElapsed = 25000
		if a.GSValid.Valid() && a.GS <= 25 {
			maxElapsed = 50000
		}
	}

	var lat, lon float64
	var nuc int
	result := cprSkip

	if a.CPREvenValid.Valid() && a.CPROddValid.Valid() &&
		a.CPREvenValid.source == a.CPROddValid.source &&
		a.CPREven.Type == a.CPROdd.Type &&
		absdiff(a.CPROddValid.updated, a.CPREvenValid.updated) <= maxElapsed {

		lat, lon, nuc, result = t.doGlobalCPR(a, m)

		switch result {
		case cprBad:
			/* Global decode produced an implausible fix: distrust both
			 * halves and the position's source until a fresh good pair
			 * arrives. The last coordinates are kept for display, but
			 * nothing will decode relative to them. */
			t.Stats.CPRGlobalBad++
			m.CPRDecoded = false
			a.CPREvenValid.source = SourceInvalid
			a.CPROddValid.source = SourceInvalid
			a.PositionValid.source = SourceInvalid
			return
		case cprSkip:
			t.Stats.CPRGlobalSkipped++
		default:
			t.Stats.CPRGlobalOk++
			combineValidity(&a.PositionValid, &a.CPREvenValid, &a.CPROddValid)
		}
	} else {
		t.Stats.CPRGlobalSkipped++
	}

	if result == cprSkip {
		lat, lon, nuc, result = t.doLocalCPR(a, m)

		if result == cprOk {
			t.Stats.CPRLocalOk++
			m.CPRRelative = true
			if m.CPROdd {
				a.PositionValid = a.CPROddValid
			} else {
				a.PositionValid = a.CPREvenValid
			}
		} else {
			t.Stats.CPRLocalSkipped++
		}
	}

	if result == cprOk {
		m.CPRDecoded = true
		m.DecodedLat = lat
		m.DecodedLon = lon

		a.Lat = lat
		a.Lon = lon
		a.PosNUC = nuc

		t.updateRangeHistogram(lat, lon)
	}
}

func (t *Tracker) updateRangeHistogram(lat, lon float64) {
	if !t.cfg.RangeHisto || !t.cfg.UserLatLon || t.cfg.MaxRangeM <= 0 {
		return
	}

	r := greatcircle(t.cfg.UserLat, t.cfg.UserLon, lat, lon)
	bucket := int(math.Round(r / t.cfg.MaxRangeM * float64(t.cfg.RangeBuckets)))
	if bucket < 0 {
		bucket = 0
	} else if bucket >= t.cfg.RangeBuckets {
		bucket = t.cfg.RangeBuckets - 1
	}
	t.Stats.RangeHistogram[bucket]++
}
